package transcribe

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoSpeech indicates the backend understood nothing in the clip
	ErrNoSpeech = errors.New("no speech detected")

	// ErrNotConfigured indicates no backend is available
	ErrNotConfigured = errors.New("speech recognition not configured")
)

// Audio is a captured clip
type Audio struct {
	Data []byte
	// Format is the file extension of the clip, e.g. "wav"
	Format string
}

// Transcriber converts audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
	Name() string
}

// Result is the outcome of an asynchronous transcription
type Result struct {
	Text string
	Err  error
}

// Start runs one transcription on its own goroutine; the channel yields one Result
func Start(ctx context.Context, t Transcriber, audio Audio) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		if t == nil {
			done <- Result{Err: ErrNotConfigured}
			return
		}
		text, err := t.Transcribe(ctx, audio)
		done <- Result{Text: text, Err: err}
	}()
	return done
}

// FallbackError carries the failures of both backends
type FallbackError struct {
	Primary   error
	Secondary error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("primary: %v; secondary: %v", e.Primary, e.Secondary)
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

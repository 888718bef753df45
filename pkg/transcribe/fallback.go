package transcribe

import (
	"context"
	"errors"

	"github.com/d4l-data4life/ollama-chat/pkg/config"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// Fallback tries Primary and, when it fails for any reason other than
// recognizing no speech, Secondary.
type Fallback struct {
	Primary   Transcriber
	Secondary Transcriber
}

// Name implements Transcriber
func (f *Fallback) Name() string {
	return "fallback"
}

// Transcribe implements Transcriber
func (f *Fallback) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if f.Primary == nil && f.Secondary == nil {
		return "", ErrNotConfigured
	}
	if f.Primary == nil {
		return f.Secondary.Transcribe(ctx, audio)
	}

	text, err := f.Primary.Transcribe(ctx, audio)
	if err == nil || errors.Is(err, ErrNoSpeech) || f.Secondary == nil {
		return text, err
	}

	logging.LogWarningf(err, "%s transcription failed, trying %s", f.Primary.Name(), f.Secondary.Name())
	text, secondaryErr := f.Secondary.Transcribe(ctx, audio)
	if secondaryErr != nil {
		if errors.Is(secondaryErr, ErrNoSpeech) {
			return "", secondaryErr
		}
		return "", &FallbackError{Primary: err, Secondary: secondaryErr}
	}
	return text, nil
}

// FromConfig builds the backend chain; it returns nil when no backend is configured
func FromConfig(cfg config.TranscribeConfig) Transcriber {
	var primary, secondary Transcriber
	if cfg.PrimaryURL != "" {
		primary = NewHTTPTranscriber("whisper", cfg.PrimaryURL, cfg.Timeout)
	}
	if cfg.SecondaryURL != "" {
		secondary = NewHTTPTranscriber("fallback-recognizer", cfg.SecondaryURL, cfg.Timeout)
	}
	if primary == nil && secondary == nil {
		return nil
	}
	return &Fallback{Primary: primary, Secondary: secondary}
}

package llm

import (
	"context"
	"time"
)

// Completion is the outcome of one asynchronous chat request
type Completion struct {
	Content  string
	Err      error
	Duration time.Duration
}

// Complete runs one chat request on its own goroutine. The returned channel
// delivers exactly one Completion and is then closed.
func Complete(ctx context.Context, client Client, baseURL string, request ChatRequest) <-chan Completion {
	done := make(chan Completion, 1)
	go func() {
		defer close(done)
		start := time.Now()
		content, err := client.Chat(ctx, baseURL, request)
		done <- Completion{
			Content:  content,
			Err:      err,
			Duration: time.Since(start),
		}
	}()
	return done
}

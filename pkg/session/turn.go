package session

import (
	"context"

	"github.com/d4l-data4life/ollama-chat/pkg/models"
)

// TurnResult is the resolution of one turn; exactly one of Reply and Err is set
type TurnResult struct {
	Reply *models.Message
	Err   error
}

// Turn is a dispatched request awaiting its reply
type Turn struct {
	UserMessage models.Message
	done        chan TurnResult
}

// Done delivers the result once and is then closed
func (t *Turn) Done() <-chan TurnResult {
	return t.done
}

// Wait blocks until the turn resolves or ctx ends
func (t *Turn) Wait(ctx context.Context) (TurnResult, error) {
	select {
	case res := <-t.done:
		return res, nil
	case <-ctx.Done():
		return TurnResult{}, ctx.Err()
	}
}

package llm

import (
	"errors"
	"fmt"
)

// ErrInvalidAttachment indicates an image was supplied without a user turn to carry it
var ErrInvalidAttachment = errors.New("cannot send image without a user message context")

// TransportError reports that the server could not be reached or timed out
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network/API error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError reports a non-success HTTP status
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ollama error %d: %s", e.StatusCode, e.Body)
}

// DecodeError reports a response body that could not be parsed
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding JSON response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

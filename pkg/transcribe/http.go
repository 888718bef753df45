package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// HTTPTranscriber posts clips to a whisper-compatible server which answers {"text": "..."}
type HTTPTranscriber struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewHTTPTranscriber creates a backend for url
func NewHTTPTranscriber(name, url string, timeout time.Duration) *HTTPTranscriber {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTranscriber{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Transcriber
func (h *HTTPTranscriber) Name() string {
	return h.name
}

// Transcribe implements Transcriber
func (h *HTTPTranscriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	format := audio.Format
	if format == "" {
		format = "wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "clip."+format)
	if err != nil {
		return "", errors.Wrap(err, "failed to build form")
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", errors.Wrap(err, "failed to build form")
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", errors.Wrap(err, "failed to build form")
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "failed to build form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, &body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	logging.LogDebugf("Sending %d bytes of audio to %s", len(audio.Data), h.name)
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "%s request failed", h.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s error %d: %s", h.name, resp.StatusCode, string(msg))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrapf(err, "failed to decode %s response", h.name)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

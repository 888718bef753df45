package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/ollama-chat/pkg/llm"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// Client implements the LLM client interface for Ollama
type Client struct {
	httpClient    *http.Client
	modelsTimeout time.Duration
}

// Config holds configuration for the Ollama client
type Config struct {
	// Timeout bounds one chat completion
	Timeout time.Duration
	// ModelsTimeout bounds model discovery
	ModelsTimeout time.Duration
	// Transport is optional, mainly for tests
	Transport http.RoundTripper
}

// NewClient creates a new Ollama client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.ModelsTimeout == 0 {
		config.ModelsTimeout = 10 * time.Second
	}

	logging.LogDebugf("Initialized Ollama client (timeout: %s, models timeout: %s)",
		config.Timeout, config.ModelsTimeout)

	return &Client{
		modelsTimeout: config.ModelsTimeout,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
	}
}

// Chat sends a non-streaming chat request and returns the assistant's reply text
func (c *Client) Chat(ctx context.Context, baseURL string, request llm.ChatRequest) (string, error) {
	messages, err := llm.PrepareMessages(request)
	if err != nil {
		return "", err
	}

	reqData, err := json.Marshal(ollamaChatRequest{
		Model:    request.Model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	logging.LogDebugf("Sending Ollama chat request: model=%s messages=%d image=%t",
		request.Model, len(messages), request.Image != "")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/chat", bytes.NewReader(reqData))
	if err != nil {
		return "", &llm.TransportError{Err: errors.Wrap(err, "failed to create HTTP request")}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &llm.TransportError{Err: err}
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.TransportError{Err: errors.Wrap(err, "failed to read response")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.ServerError{StatusCode: resp.StatusCode, Body: string(respData)}
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(respData, &ollamaResp); err != nil {
		return "", &llm.DecodeError{Err: err}
	}

	if ollamaResp.Message == nil || ollamaResp.Message.Content == nil {
		logging.LogWarningf(nil, "Ollama response without message content: model=%s", ollamaResp.Model)
		return llm.NoResponsePlaceholder, nil
	}

	content := *ollamaResp.Message.Content
	logging.LogDebugf("Received Ollama response: model=%s content_len=%d", ollamaResp.Model, len(content))
	return content, nil
}

// ListModels returns available models from Ollama
func (c *Client) ListModels(ctx context.Context, baseURL string) ([]llm.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, c.modelsTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &llm.TransportError{Err: errors.Wrap(err, "failed to create HTTP request")}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &llm.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &llm.ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tagsResp struct {
		Models []struct {
			Name       string `json:"name"`
			ModifiedAt string `json:"modified_at"`
			Size       int64  `json:"size"`
		} `json:"models"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, &llm.DecodeError{Err: err}
	}

	models := make([]llm.Model, 0, len(tagsResp.Models))
	for _, m := range tagsResp.Models {
		if m.Name == "" {
			continue
		}
		models = append(models, llm.Model{
			Name:       m.Name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}

	return models, nil
}

// Helper types for Ollama API

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/llm/ollama"
)

func TestClient_Chat(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		wantErrAs interface{}
	}{
		{"reply", http.StatusOK, `{"model":"m","message":{"role":"assistant","content":"hi"},"done":true}`, "hi", nil},
		{"empty reply is kept", http.StatusOK, `{"message":{"role":"assistant","content":""}}`, "", nil},
		{"missing content field", http.StatusOK, `{"message":{"role":"assistant"}}`, llm.NoResponsePlaceholder, nil},
		{"missing message", http.StatusOK, `{"done":true}`, llm.NoResponsePlaceholder, nil},
		{"server error", http.StatusInternalServerError, `boom`, "", new(*llm.ServerError)},
		{"not found", http.StatusNotFound, `{"error":"model not found"}`, "", new(*llm.ServerError)},
		{"malformed body", http.StatusOK, `{"message":`, "", new(*llm.DecodeError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/chat", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := ollama.NewClient(ollama.Config{})
			got, err := client.Chat(context.Background(), srv.URL, llm.ChatRequest{
				Model:    "m",
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
			})
			if tt.wantErrAs != nil {
				require.Error(t, err)
				assert.ErrorAs(t, err, tt.wantErrAs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ChatRequestBody(t *testing.T) {
	var received struct {
		Model    string        `json:"model"`
		Messages []llm.Message `json:"messages"`
		Stream   *bool         `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer srv.Close()

	client := ollama.NewClient(ollama.Config{})
	_, err := client.Chat(context.Background(), srv.URL, llm.ChatRequest{
		Model: "llava",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "first"},
			{Role: llm.RoleAssistant, Content: "answer"},
			{Role: llm.RoleUser, Content: ""},
		},
		Image: "aW1n",
	})
	require.NoError(t, err)

	assert.Equal(t, "llava", received.Model)
	require.NotNil(t, received.Stream)
	assert.False(t, *received.Stream)
	require.Len(t, received.Messages, 3)
	assert.Empty(t, received.Messages[0].Images)
	assert.Empty(t, received.Messages[1].Images)
	assert.Equal(t, []string{"aW1n"}, received.Messages[2].Images)
	assert.Equal(t, " ", received.Messages[2].Content)
}

func TestClient_ChatImageWithoutUserTurn(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	client := ollama.NewClient(ollama.Config{})
	_, err := client.Chat(context.Background(), srv.URL, llm.ChatRequest{
		Model: "llava",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "q"},
			{Role: llm.RoleAssistant, Content: "a"},
		},
		Image: "aW1n",
	})
	assert.ErrorIs(t, err, llm.ErrInvalidAttachment)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_ChatTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := ollama.NewClient(ollama.Config{Timeout: 20 * time.Millisecond})
	_, err := client.Chat(context.Background(), srv.URL, llm.ChatRequest{
		Model:    "m",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "q"}},
	})
	var transportErr *llm.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotNil(t, transportErr.Err)
}

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2","size":12},{"name":"llava"}]}`))
	}))
	defer srv.Close()

	client := ollama.NewClient(ollama.Config{})
	models, err := client.ListModels(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2", models[0].Name)
	assert.Equal(t, int64(12), models[0].Size)
	assert.Equal(t, "llava", models[1].Name)
}

func TestClient_ListModelsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := ollama.NewClient(ollama.Config{})
	_, err := client.ListModels(context.Background(), url)
	var transportErr *llm.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

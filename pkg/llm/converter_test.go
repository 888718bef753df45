package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/models"
)

func TestHistoryFromMessages(t *testing.T) {
	image := "/tmp/cat.png"
	stored := []models.Message{
		{Role: models.MessageRoleUser, Content: "Describe this image.", ImagePath: &image},
		{Role: models.MessageRoleAssistant, Content: "A cat."},
		{Role: models.MessageRoleSystem, Content: "Error: timeout"},
		{Role: models.MessageRoleUser, Content: "thanks"},
	}

	history := llm.HistoryFromMessages(stored)

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "Describe this image."},
		{Role: llm.RoleAssistant, Content: "A cat."},
		{Role: llm.RoleUser, Content: "thanks"},
	}, history)
}

func TestPrepareMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []llm.Message
		image    string
		wantErr  error
	}{
		{"no image", []llm.Message{{Role: llm.RoleAssistant, Content: "a"}}, "", nil},
		{"image on user turn", []llm.Message{{Role: llm.RoleUser, Content: "q"}}, "aW1n", nil},
		{"image after assistant", []llm.Message{{Role: llm.RoleUser, Content: "q"}, {Role: llm.RoleAssistant, Content: "a"}}, "aW1n", llm.ErrInvalidAttachment},
		{"image with empty history", nil, "aW1n", llm.ErrInvalidAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := llm.PrepareMessages(llm.ChatRequest{Messages: tt.messages, Image: tt.image})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.image != "" {
				assert.Equal(t, []string{tt.image}, got[len(got)-1].Images)
				assert.Empty(t, tt.messages[len(tt.messages)-1].Images, "input must not be mutated")
			}
		})
	}
}

func TestEndpoint(t *testing.T) {
	endpoint := llm.NewEndpoint("http://localhost:11434/")
	assert.Equal(t, "http://localhost:11434", endpoint.URL())
	assert.False(t, endpoint.Set("http://localhost:11434"))
	assert.True(t, endpoint.Set(" http://gpu-box:11434 "))
	assert.Equal(t, "http://gpu-box:11434", endpoint.URL())
}

type stubClient struct {
	reply string
	err   error
	url   string
}

func (s *stubClient) Chat(_ context.Context, baseURL string, _ llm.ChatRequest) (string, error) {
	s.url = baseURL
	return s.reply, s.err
}

func (s *stubClient) ListModels(context.Context, string) ([]llm.Model, error) {
	return nil, nil
}

func TestComplete(t *testing.T) {
	client := &stubClient{reply: "pong"}
	result := <-llm.Complete(context.Background(), client, "http://a", llm.ChatRequest{})
	require.NoError(t, result.Err)
	assert.Equal(t, "pong", result.Content)
	assert.Equal(t, "http://a", client.url)

	failing := &stubClient{err: errors.New("down")}
	done := llm.Complete(context.Background(), failing, "http://b", llm.ChatRequest{})
	result = <-done
	assert.EqualError(t, result.Err, "down")
	_, open := <-done
	assert.False(t, open)
}

package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/d4l-data4life/ollama-chat/pkg/llm"
)

// ChatCall is one request received by the fake server
type ChatCall struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

// FakeOllama is an httptest server speaking the /api/chat and /api/tags subset
type FakeOllama struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []ChatCall
	reply  string
	status int
	models []string
	gate   chan struct{}
}

// NewFakeOllama starts a fake server replying with reply to every chat request
func NewFakeOllama(t *testing.T, reply string, models ...string) *FakeOllama {
	t.Helper()
	f := &FakeOllama{reply: reply, status: http.StatusOK, models: models}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", f.chat)
	mux.HandleFunc("/api/tags", f.tags)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// SetStatus makes subsequent chat requests fail with the given status
func (f *FakeOllama) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Hold blocks chat requests until the returned func is called
func (f *FakeOllama) Hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Calls returns the chat requests received so far
func (f *FakeOllama) Calls() []ChatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChatCall(nil), f.calls...)
}

func (f *FakeOllama) chat(w http.ResponseWriter, r *http.Request) {
	var call ChatCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate, status, reply := f.gate, f.status, f.reply
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if status != http.StatusOK {
		http.Error(w, `{"error":"fake failure"}`, status)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"model":   call.Model,
		"message": map[string]string{"role": "assistant", "content": reply},
		"done":    true,
	})
}

func (f *FakeOllama) tags(w http.ResponseWriter, _ *http.Request) {
	type tag struct {
		Name string `json:"name"`
	}
	tags := make([]tag, 0, len(f.models))
	for _, m := range f.models {
		tags = append(tags, tag{Name: m})
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"models": tags})
}

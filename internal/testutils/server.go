package testutils

import (
	"testing"
	"time"

	"github.com/go-chi/cors"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/handlers"
	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/llm/ollama"
	"github.com/d4l-data4life/ollama-chat/pkg/metrics"
	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/server"
	"github.com/d4l-data4life/ollama-chat/pkg/store"
	"github.com/d4l-data4life/ollama-chat/pkg/transcribe"
)

// TestServer bundles the mocked server with the services behind it
type TestServer struct {
	*server.Server
	Store    *store.Store
	Registry *registry.Registry
	Ollama   *FakeOllama
}

// ServerOption adjusts the handler dependencies of a test server
type ServerOption func(*handlers.Dependencies)

// WithTranscriber enables transcription
func WithTranscriber(t transcribe.Transcriber) ServerOption {
	return func(d *handlers.Dependencies) {
		d.Transcriber = t
	}
}

// WithServiceSecret protects the API
func WithServiceSecret(secret string) ServerOption {
	return func(d *handlers.Dependencies) {
		d.ServiceSecret = secret
	}
}

// GetTestMockServer creates the mocked server for tests, backed by a sqlite
// store and a fake Ollama offering the given models
func GetTestMockServer(t *testing.T, models []string, opts ...ServerOption) *TestServer {
	t.Helper()
	st := NewTestStore(t)
	fake := NewFakeOllama(t, "a reply", models...)
	reg := registry.New(st,
		ollama.NewClient(ollama.Config{Timeout: 5 * time.Second}),
		llm.NewEndpoint(fake.URL),
		registry.Config{ModelsCacheTTL: time.Minute},
	)
	t.Cleanup(reg.CloseAll)

	deps := handlers.Dependencies{
		Registry:  reg,
		CorsHosts: []string{"http://localhost"},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	corsOptions := config.CorsConfig(deps.CorsHosts)
	srv := server.NewServer("TEST_SERVER", cors.New(corsOptions), 10, 10*time.Second)
	server.SetupRoutes(srv, st, deps)
	metrics.AddBuildInfoMetric()
	metrics.AddChatMetrics()

	return &TestServer{Server: srv, Store: st, Registry: reg, Ollama: fake}
}

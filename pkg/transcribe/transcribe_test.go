package transcribe_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/transcribe"
)

type fakeBackend struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Transcribe(context.Context, transcribe.Audio) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestFallback(t *testing.T) {
	broken := errors.New("model not loaded")
	tests := []struct {
		name           string
		primary        *fakeBackend
		secondary      *fakeBackend
		want           string
		wantErr        error
		secondaryCalls int
	}{
		{"primary succeeds", &fakeBackend{name: "p", text: "hello"}, &fakeBackend{name: "s"}, "hello", nil, 0},
		{"primary fails, secondary succeeds", &fakeBackend{name: "p", err: broken}, &fakeBackend{name: "s", text: "hi"}, "hi", nil, 1},
		{"primary hears nothing", &fakeBackend{name: "p", err: transcribe.ErrNoSpeech}, &fakeBackend{name: "s", text: "hi"}, "", transcribe.ErrNoSpeech, 0},
		{"both fail", &fakeBackend{name: "p", err: broken}, &fakeBackend{name: "s", err: errors.New("offline")}, "", broken, 1},
		{"secondary hears nothing", &fakeBackend{name: "p", err: broken}, &fakeBackend{name: "s", err: transcribe.ErrNoSpeech}, "", transcribe.ErrNoSpeech, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &transcribe.Fallback{Primary: tt.primary, Secondary: tt.secondary}
			got, err := f.Transcribe(context.Background(), transcribe.Audio{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.secondaryCalls, tt.secondary.calls)
		})
	}
}

func TestFallbackNotConfigured(t *testing.T) {
	_, err := (&transcribe.Fallback{}).Transcribe(context.Background(), transcribe.Audio{})
	assert.ErrorIs(t, err, transcribe.ErrNotConfigured)

	assert.Nil(t, transcribe.FromConfig(config.TranscribeConfig{}))

	result := <-transcribe.Start(context.Background(), nil, transcribe.Audio{})
	assert.ErrorIs(t, result.Err, transcribe.ErrNotConfigured)
}

func TestHTTPTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "clip.wav", header.Filename)
		assert.Equal(t, "RIFF", string(data))
		_, _ = w.Write([]byte(`{"text":"  turn on the lights "}`))
	}))
	defer srv.Close()

	backend := transcribe.NewHTTPTranscriber("whisper", srv.URL, 0)
	result := <-transcribe.Start(context.Background(), backend, transcribe.Audio{Data: []byte("RIFF")})
	require.NoError(t, result.Err)
	assert.Equal(t, "turn on the lights", result.Text)
}

func TestHTTPTranscriberNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	_, err := transcribe.NewHTTPTranscriber("whisper", srv.URL, 0).
		Transcribe(context.Background(), transcribe.Audio{Data: []byte("x")})
	assert.ErrorIs(t, err, transcribe.ErrNoSpeech)
}

func TestHTTPTranscriberServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := transcribe.NewHTTPTranscriber("whisper", srv.URL, 0).
		Transcribe(context.Background(), transcribe.Audio{Data: []byte("x")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, transcribe.ErrNoSpeech)
}

package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/ollama-chat/internal/testutils"
	"github.com/d4l-data4life/ollama-chat/pkg/llm"
	"github.com/d4l-data4life/ollama-chat/pkg/llm/ollama"
	"github.com/d4l-data4life/ollama-chat/pkg/models"
	"github.com/d4l-data4life/ollama-chat/pkg/registry"
	"github.com/d4l-data4life/ollama-chat/pkg/session"
	"github.com/d4l-data4life/ollama-chat/pkg/store"
)

func newRegistry(t *testing.T, url string) (*registry.Registry, *store.Store) {
	t.Helper()
	st := testutils.NewTestStore(t)
	reg := registry.New(st, ollama.NewClient(ollama.Config{Timeout: 5 * time.Second}), llm.NewEndpoint(url), registry.Config{ModelsCacheTTL: time.Minute})
	t.Cleanup(reg.CloseAll)
	return reg, st
}

func TestCreateSession_DefaultsToFirstModel(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "llama3.2", "llava")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()

	first, err := reg.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", first.Model())

	second, err := reg.CreateSession(ctx, "")
	require.NoError(t, err)

	c1, err := st.GetConversation(ctx, first.ID())
	require.NoError(t, err)
	c2, err := st.GetConversation(ctx, second.ID())
	require.NoError(t, err)
	assert.Equal(t, "Chat 1", c1.Name)
	assert.Equal(t, "Chat 2", c2.Name)

	got, ok := reg.Get(first.ID())
	assert.True(t, ok)
	assert.Same(t, first, got)
}

func TestCreateSession_WithoutModels(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	reg, _ := newRegistry(t, url)
	s, err := reg.CreateSession(context.Background(), "offline")
	require.NoError(t, err)
	assert.Empty(t, s.Model())
	assert.Empty(t, reg.Models(context.Background()))
}

func TestModels_CachedPerBaseURL(t *testing.T) {
	var hits int32
	tags := func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"models":[{"name":"m"}]}`))
	}
	first := httptest.NewServer(http.HandlerFunc(tags))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(tags))
	defer second.Close()

	reg, _ := newRegistry(t, first.URL)
	ctx := context.Background()

	assert.Len(t, reg.Models(ctx), 1)
	assert.Len(t, reg.Models(ctx), 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	reg.SetBaseURL(second.URL)
	assert.Equal(t, second.URL, reg.Endpoint().URL())
	assert.Len(t, reg.Models(ctx), 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestOpen_ReturnsAttachedSession(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "m")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()

	conversation, err := st.CreateConversation(ctx, "stored", "m")
	require.NoError(t, err)

	a, err := reg.Open(ctx, conversation.ID)
	require.NoError(t, err)
	b, err := reg.Open(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = reg.Open(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrConversationNotFound)
}

func TestListSessions_MarksOpenViews(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "m")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()

	closed, err := st.CreateConversation(ctx, "closed", "m")
	require.NoError(t, err)
	opened, err := reg.CreateSession(ctx, "opened")
	require.NoError(t, err)

	list, err := reg.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[uuid.UUID]bool{}
	for _, s := range list {
		byID[s.ID] = s.Open
	}
	assert.True(t, byID[opened.ID()])
	assert.False(t, byID[closed.ID])
}

func TestCloseView_KeepsData(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "m")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()

	s, err := reg.CreateSession(ctx, "keep")
	require.NoError(t, err)
	turn, err := s.SendTurn(ctx, "hello")
	require.NoError(t, err)
	_, err = turn.Wait(ctx)
	require.NoError(t, err)

	assert.True(t, reg.CloseView(s.ID()))
	assert.False(t, reg.CloseView(s.ID()))
	assert.True(t, s.Closed())

	messages, err := st.ListMessages(ctx, s.ID())
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	reopened, err := reg.Open(ctx, s.ID())
	require.NoError(t, err)
	assert.NotSame(t, s, reopened)
	assert.Len(t, reopened.Transcript(), 2)
}

func TestOpen_WaitsForTurnOfClosedView(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "m")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()
	release := fake.Hold()
	defer release()

	s, err := reg.CreateSession(ctx, "busy")
	require.NoError(t, err)
	turn, err := s.SendTurn(ctx, "first")
	require.NoError(t, err)
	require.True(t, reg.CloseView(s.ID()))

	_, err = reg.Open(ctx, s.ID())
	assert.ErrorIs(t, err, session.ErrTurnInProgress)
	_, ok := reg.Get(s.ID())
	assert.False(t, ok)

	release()
	res, err := turn.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, res.Err)

	reopened, err := reg.Open(ctx, s.ID())
	require.NoError(t, err)
	next, err := reopened.SendTurn(ctx, "second")
	require.NoError(t, err)
	res, err = next.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, res.Err)

	messages, err := st.ListMessages(ctx, s.ID())
	require.NoError(t, err)
	var roles []models.MessageRole
	for _, m := range messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []models.MessageRole{
		models.MessageRoleUser, models.MessageRoleAssistant,
		models.MessageRoleUser, models.MessageRoleAssistant,
	}, roles)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleAssistant, Content: "hi"},
		{Role: llm.RoleUser, Content: "second"},
	}, calls[1].Messages)
}

func TestDeleteSession(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "m")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()

	s, err := reg.CreateSession(ctx, "doomed")
	require.NoError(t, err)
	_, err = st.AppendMessage(ctx, store.NewMessage{ConversationID: s.ID(), Role: models.MessageRoleUser, Content: "x"})
	require.NoError(t, err)

	require.NoError(t, reg.DeleteSession(ctx, s.ID()))
	_, ok := reg.Get(s.ID())
	assert.False(t, ok)
	_, err = st.GetConversation(ctx, s.ID())
	assert.ErrorIs(t, err, store.ErrConversationNotFound)

	assert.ErrorIs(t, reg.DeleteSession(ctx, s.ID()), store.ErrConversationNotFound)
}

func TestRename(t *testing.T) {
	fake := testutils.NewFakeOllama(t, "hi", "m")
	reg, st := newRegistry(t, fake.URL)
	ctx := context.Background()

	s, err := reg.CreateSession(ctx, "old")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"explicit", "Research", "Research"},
		{"empty falls back", "", models.DefaultConversationName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, reg.Rename(ctx, s.ID(), tt.in))
			c, err := st.GetConversation(ctx, s.ID())
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
		})
	}
}

func TestBootstrap(t *testing.T) {
	t.Run("empty store with models creates default chat", func(t *testing.T) {
		fake := testutils.NewFakeOllama(t, "hi", "m")
		reg, _ := newRegistry(t, fake.URL)
		require.NoError(t, reg.Bootstrap(context.Background()))

		list, err := reg.ListSessions(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, registry.BootstrapName, list[0].Name)
		assert.True(t, list[0].Open)
	})

	t.Run("empty store without models stays empty", func(t *testing.T) {
		fake := testutils.NewFakeOllama(t, "hi")
		reg, _ := newRegistry(t, fake.URL)
		require.NoError(t, reg.Bootstrap(context.Background()))

		list, err := reg.ListSessions(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("stored chats are opened", func(t *testing.T) {
		fake := testutils.NewFakeOllama(t, "hi", "m")
		reg, st := newRegistry(t, fake.URL)
		ctx := context.Background()
		for _, name := range []string{"a", "b"} {
			_, err := st.CreateConversation(ctx, name, "")
			require.NoError(t, err)
		}
		require.NoError(t, reg.Bootstrap(ctx))

		list, err := reg.ListSessions(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, s := range list {
			assert.True(t, s.Open)
		}
	})
}

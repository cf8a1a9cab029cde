package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

func newTestStore() (*Store, *clock.Mock) {
	s := NewStore(nil, nil)
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC))
	s.Clock = mock
	return s, mock
}

func TestStore_Create(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	sess, err := s.Create(ctx, CreateParams{TenantID: "acme", UserID: "u1", Channel: "slack"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Zero(t, sess.MessagesCount)

	named, err := s.Create(ctx, CreateParams{ID: "s-1", TenantID: "acme", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", named.ID)

	again, err := s.Create(ctx, CreateParams{ID: "s-1", TenantID: "acme", UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "u1", again.UserID, "existing session is returned")

	_, err = s.Create(ctx, CreateParams{ID: "s-1", TenantID: "globex"})
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
	_, err = s.Create(ctx, CreateParams{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
}

func TestStore_ListAndCount(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()

	for _, p := range []CreateParams{
		{ID: "a1", TenantID: "acme", UserID: "u1"},
		{ID: "a2", TenantID: "acme", UserID: "u2"},
		{ID: "a3", TenantID: "acme", UserID: "u1"},
		{ID: "g1", TenantID: "globex", UserID: "u1"},
	} {
		_, err := s.Create(ctx, p)
		require.NoError(t, err)
		mock.Add(time.Second)
	}
	closed := domain.SessionClosed
	_, err := s.Update(ctx, "a3", Patch{Status: &closed})
	require.NoError(t, err)

	ids := func(list []*domain.Session) []string {
		var out []string
		for _, sess := range list {
			out = append(out, sess.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(s.List("acme", Filter{})))
	assert.Equal(t, []string{"a1", "a3"}, ids(s.List("acme", Filter{UserID: "u1"})))
	assert.Equal(t, []string{"a3"}, ids(s.List("acme", Filter{Status: domain.SessionClosed})))
	assert.Equal(t, []string{"a2"}, ids(s.List("acme", Filter{Offset: 1, Limit: 1})))
	assert.Empty(t, s.List("acme", Filter{Offset: 10}))
	assert.Equal(t, 2, s.Count("acme", Filter{Status: domain.SessionActive}))
	assert.Equal(t, 1, s.Count("globex", Filter{}))
}

func TestStore_UpdateStatus(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()
	_, err := s.Create(ctx, CreateParams{ID: "s-1", TenantID: "acme"})
	require.NoError(t, err)

	mock.Add(time.Minute)
	closed := domain.SessionClosed
	ok, err := s.Update(ctx, "s-1", Patch{Status: &closed, Metadata: &map[string]any{"reason": "done"}})
	require.NoError(t, err)
	require.True(t, ok)

	sess, _ := s.Get("s-1")
	assert.Equal(t, domain.SessionClosed, sess.Status)
	require.NotNil(t, sess.ClosedAt)
	assert.Equal(t, mock.Now().UTC(), *sess.ClosedAt)
	assert.Equal(t, "done", sess.Metadata["reason"])

	active := domain.SessionActive
	_, err = s.Update(ctx, "s-1", Patch{Status: &active})
	require.NoError(t, err)
	sess, _ = s.Get("s-1")
	assert.Nil(t, sess.ClosedAt)

	bogus := domain.SessionStatus("paused")
	_, err = s.Update(ctx, "s-1", Patch{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	ok, err = s.Update(ctx, "missing", Patch{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Messages(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()
	_, err := s.Create(ctx, CreateParams{ID: "s-1", TenantID: "acme"})
	require.NoError(t, err)

	for i, content := range []string{"hi", "hello", "bye"} {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_, ok, err := s.AppendMessage(ctx, "s-1", role, content, nil)
		require.NoError(t, err)
		require.True(t, ok)
		mock.Add(time.Second)
	}

	sess, _ := s.Get("s-1")
	assert.Equal(t, 3, sess.MessagesCount)

	msgs := s.Messages("s-1", 0)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)

	last := s.Messages("s-1", 2)
	require.Len(t, last, 2)
	assert.Equal(t, "hello", last[0].Content)

	_, _, err = s.AppendMessage(ctx, "s-1", "robot", "x", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, ok, err := s.AppendMessage(ctx, "missing", domain.RoleUser, "x", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	closed := domain.SessionClosed
	_, err = s.Update(ctx, "s-1", Patch{Status: &closed})
	require.NoError(t, err)
	_, ok, err = s.AppendMessage(ctx, "s-1", domain.RoleUser, "late", nil)
	assert.True(t, ok)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)

	ok, err = s.Delete(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.Messages("s-1", 0))
}

func TestStore_LoadMessagesOrders(t *testing.T) {
	s, mock := newTestStore()
	base := mock.Now()
	s.LoadMessages(
		&domain.Message{ID: "m2", SessionID: "s-1", Content: "second", CreatedAt: base.Add(time.Second)},
		&domain.Message{ID: "m1", SessionID: "s-1", Content: "first", CreatedAt: base},
	)

	msgs := s.Messages("s-1", 0)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}

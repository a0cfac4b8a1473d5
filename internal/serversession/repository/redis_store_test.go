package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/serversession/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "test:"

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, prefix, clock.NewFakeClock(now)), mr, client
}

func session(key, subject, sid string, renewed time.Duration) domain.ServerSideSession {
	return domain.ServerSideSession{
		Key:         key,
		Scheme:      "idadmin.cookie",
		SubjectID:   subject,
		SessionID:   sid,
		DisplayName: subject,
		Created:     now.Add(-time.Hour),
		Renewed:     now.Add(-renewed),
	}
}

func sessionKeys(sessions []domain.ServerSideSession) []string {
	keys := make([]string, 0, len(sessions))
	for _, s := range sessions {
		keys = append(keys, s.Key)
	}
	return keys
}

func TestCreateSessionAssignsKeyAndTimes(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()

	created, err := store.CreateSession(ctx, domain.ServerSideSession{SubjectID: "alice", Scheme: "idadmin.cookie"})
	require.NoError(t, err)
	assert.Len(t, created.Key, 26)
	assert.True(t, created.Created.Equal(now))
	assert.True(t, created.Renewed.Equal(now))

	got, err := store.GetSession(ctx, created.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.SubjectID)

	missing, err := store.GetSession(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetSessionsFiltersBySubject(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()

	for _, s := range []domain.ServerSideSession{
		session("a1", "alice", "sid-1", 30*time.Minute),
		session("a2", "alice", "sid-2", 5*time.Minute),
		session("b1", "bob", "sid-3", time.Minute),
	} {
		_, err := store.CreateSession(ctx, s)
		require.NoError(t, err)
	}

	sessions, err := store.GetSessions(ctx, domain.Filter{SubjectID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, sessionKeys(sessions))

	sessions, err = store.GetSessions(ctx, domain.Filter{SessionID: "sid-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, sessionKeys(sessions))

	sessions, err = store.GetSessions(ctx, domain.Filter{SubjectID: "alice", SessionID: "sid-3"})
	require.NoError(t, err)
	assert.Empty(t, sessions)

	sessions, err = store.GetSessions(ctx, domain.Filter{SubjectID: "carol"})
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	_, err = store.GetSessions(ctx, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrEmptyFilter)
}

func TestDeleteSession(t *testing.T) {
	store, _, client := newStore(t)
	ctx := context.Background()

	for _, s := range []domain.ServerSideSession{
		session("a1", "alice", "sid-1", time.Minute),
		session("a2", "alice", "sid-2", 2*time.Minute),
	} {
		_, err := store.CreateSession(ctx, s)
		require.NoError(t, err)
	}

	require.NoError(t, store.DeleteSession(ctx, "a1"))
	require.NoError(t, store.DeleteSession(ctx, "a1"))

	sessions, err := store.GetSessions(ctx, domain.Filter{SubjectID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, sessionKeys(sessions))

	members, err := client.SMembers(ctx, prefix+"session:sid:sid-1").Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestDeleteSessionsLeavesOtherSubjects(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()

	for _, s := range []domain.ServerSideSession{
		session("a1", "alice", "sid-1", time.Minute),
		session("a2", "alice", "sid-2", 2*time.Minute),
		session("b1", "bob", "sid-3", time.Minute),
	} {
		_, err := store.CreateSession(ctx, s)
		require.NoError(t, err)
	}

	require.NoError(t, store.DeleteSessions(ctx, domain.Filter{SubjectID: "alice"}))

	sessions, err := store.GetSessions(ctx, domain.Filter{SubjectID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, sessions)

	sessions, err = store.GetSessions(ctx, domain.Filter{SubjectID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, sessionKeys(sessions))

	assert.ErrorIs(t, store.DeleteSessions(ctx, domain.Filter{}), domain.ErrEmptyFilter)
}

func TestExpiredSessionsArePruned(t *testing.T) {
	store, mr, client := newStore(t)
	ctx := context.Background()

	expires := now.Add(time.Hour)
	s := session("a1", "alice", "sid-1", 0)
	s.Expires = &expires
	_, err := store.CreateSession(ctx, s)
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, session("a2", "alice", "sid-2", time.Minute))
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	sessions, err := store.GetSessions(ctx, domain.Filter{SubjectID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, sessionKeys(sessions))

	members, err := client.SMembers(ctx, prefix+"session:subject:alice").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, members)

	past := now.Add(-time.Second)
	s.Key = "a3"
	s.Expires = &past
	_, err = store.CreateSession(ctx, s)
	assert.ErrorIs(t, err, domain.ErrExpired)
}

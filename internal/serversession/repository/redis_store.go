package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/serversession/domain"
)

const (
	keySession        = "session:%s"
	keySubjectIndex   = "session:subject:%s"
	keySessionIDIndex = "session:sid:%s"
)

// RedisStore keeps each session as a JSON string with its expiry as TTL.
// Two sets index session keys by subject id and by session id; members whose
// record has expired are pruned lazily on read.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	clock     clock.Clock
}

func NewRedisStore(client redis.UniversalClient, keyPrefix string, clk clock.Clock) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix, clock: clk}
}

func (s *RedisStore) CreateSession(ctx context.Context, session domain.ServerSideSession) (*domain.ServerSideSession, error) {
	now := s.clock.Now()
	if strings.TrimSpace(session.Key) == "" {
		session.Key = ulid.Make().String()
	}
	if session.Created.IsZero() {
		session.Created = now
	}
	if session.Renewed.IsZero() {
		session.Renewed = session.Created
	}

	var ttl time.Duration
	if session.Expires != nil {
		ttl = session.Expires.Sub(now)
		if ttl <= 0 {
			return nil, domain.ErrExpired
		}
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.Key), payload, ttl)
	if session.SubjectID != "" {
		pipe.SAdd(ctx, s.subjectIndex(session.SubjectID), session.Key)
	}
	if session.SessionID != "" {
		pipe.SAdd(ctx, s.sessionIDIndex(session.SessionID), session.Key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisStore) GetSession(ctx context.Context, key string) (*domain.ServerSideSession, error) {
	if strings.TrimSpace(key) == "" {
		return nil, domain.ErrInvalidKey
	}
	raw, err := s.client.Get(ctx, s.sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session domain.ServerSideSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", key, err)
	}
	return &session, nil
}

func (s *RedisStore) GetSessions(ctx context.Context, filter domain.Filter) ([]domain.ServerSideSession, error) {
	if filter.Empty() {
		return nil, domain.ErrEmptyFilter
	}

	keys, err := s.indexedKeys(ctx, filter)
	if err != nil {
		return nil, err
	}
	sessions := []domain.ServerSideSession{}
	if len(keys) == 0 {
		return sessions, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.sessionKey(key)
	}
	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}

	var stale []string
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var session domain.ServerSideSession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session %s: %w", keys[i], err)
		}
		if filter.Matches(session) {
			sessions = append(sessions, session)
		}
	}
	if len(stale) > 0 {
		s.prune(ctx, filter, stale)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Renewed.Equal(sessions[j].Renewed) {
			return sessions[i].Renewed.After(sessions[j].Renewed)
		}
		return sessions[i].Key < sessions[j].Key
	})
	return sessions, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, key string) error {
	session, err := s.GetSession(ctx, key)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	return s.delete(ctx, []domain.ServerSideSession{*session})
}

func (s *RedisStore) DeleteSessions(ctx context.Context, filter domain.Filter) error {
	sessions, err := s.GetSessions(ctx, filter)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}
	return s.delete(ctx, sessions)
}

func (s *RedisStore) delete(ctx context.Context, sessions []domain.ServerSideSession) error {
	pipe := s.client.TxPipeline()
	for _, session := range sessions {
		pipe.Del(ctx, s.sessionKey(session.Key))
		if session.SubjectID != "" {
			pipe.SRem(ctx, s.subjectIndex(session.SubjectID), session.Key)
		}
		if session.SessionID != "" {
			pipe.SRem(ctx, s.sessionIDIndex(session.SessionID), session.Key)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) indexedKeys(ctx context.Context, filter domain.Filter) ([]string, error) {
	var (
		keys []string
		err  error
	)
	switch {
	case filter.SubjectID != "" && filter.SessionID != "":
		keys, err = s.client.SInter(ctx, s.subjectIndex(filter.SubjectID), s.sessionIDIndex(filter.SessionID)).Result()
	case filter.SubjectID != "":
		keys, err = s.client.SMembers(ctx, s.subjectIndex(filter.SubjectID)).Result()
	default:
		keys, err = s.client.SMembers(ctx, s.sessionIDIndex(filter.SessionID)).Result()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return keys, nil
}

// prune is best effort; a failure only leaves dangling index members.
func (s *RedisStore) prune(ctx context.Context, filter domain.Filter, keys []string) {
	members := make([]any, len(keys))
	for i, key := range keys {
		members[i] = key
	}
	pipe := s.client.Pipeline()
	if filter.SubjectID != "" {
		pipe.SRem(ctx, s.subjectIndex(filter.SubjectID), members...)
	}
	if filter.SessionID != "" {
		pipe.SRem(ctx, s.sessionIDIndex(filter.SessionID), members...)
	}
	_, _ = pipe.Exec(ctx)
}

func (s *RedisStore) sessionKey(key string) string {
	return s.keyPrefix + fmt.Sprintf(keySession, key)
}

func (s *RedisStore) subjectIndex(subjectID string) string {
	return s.keyPrefix + fmt.Sprintf(keySubjectIndex, subjectID)
}

func (s *RedisStore) sessionIDIndex(sessionID string) string {
	return s.keyPrefix + fmt.Sprintf(keySessionIDIndex, sessionID)
}

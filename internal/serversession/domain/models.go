package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyFilter = errors.New("empty_session_filter")
	ErrInvalidKey  = errors.New("invalid_session_key")
	ErrExpired     = errors.New("session_expired")
)

// ServerSideSession is a login session tracked outside the auth cookie.
type ServerSideSession struct {
	Key         string     `json:"key"`
	Scheme      string     `json:"scheme"`
	SubjectID   string     `json:"subject_id"`
	SessionID   string     `json:"session_id,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	Created     time.Time  `json:"created"`
	Renewed     time.Time  `json:"renewed"`
	Expires     *time.Time `json:"expires,omitempty"`
	Data        string     `json:"data,omitempty"`
}

// Filter selects sessions by subject, session id or both.
type Filter struct {
	SubjectID string
	SessionID string
}

func (f Filter) Empty() bool {
	return f.SubjectID == "" && f.SessionID == ""
}

func (f Filter) Matches(s ServerSideSession) bool {
	if f.SubjectID != "" && f.SubjectID != s.SubjectID {
		return false
	}
	if f.SessionID != "" && f.SessionID != s.SessionID {
		return false
	}
	return true
}

// Store is optional. Callers receive a nil Store when no backend is configured.
type Store interface {
	CreateSession(ctx context.Context, session ServerSideSession) (*ServerSideSession, error)
	GetSession(ctx context.Context, key string) (*ServerSideSession, error)
	// GetSessions returns matching sessions, most recently renewed first.
	GetSessions(ctx context.Context, filter Filter) ([]ServerSideSession, error)
	DeleteSession(ctx context.Context, key string) error
	DeleteSessions(ctx context.Context, filter Filter) error
}

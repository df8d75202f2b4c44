// ABOUTME: Store interface and record types for sessions and turn history.
// ABOUTME: The gateway promotes provisional sessions through CreateSession.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound indicates the requested session id has no durable record.
var ErrSessionNotFound = errors.New("session not found")

// Turn roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Session is one durable conversation thread.
type Session struct {
	ID             string
	Title          string
	OrganizationID string
	UserID         string
	CreatedAt      time.Time
}

// Turn is one message within a session, user or agent side.
type Turn struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store persists sessions and turns.
type Store interface {
	// CreateSession inserts a session record. ID and CreatedAt must be set
	// by the caller; the gateway owns id generation.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession returns the session or ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns an org/user's sessions, newest first.
	ListSessions(ctx context.Context, organizationID, userID string) ([]Session, error)

	// AppendTurn records one turn at the end of a session's history.
	AppendTurn(ctx context.Context, t *Turn) error

	// GetTurns returns a session's history in chronological order,
	// at most limit entries from the end (0 means no limit).
	GetTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	Close() error
}

// Package session stores pager sessions for multi-call listings such as the
// account user search. A session remembers the query and the current page
// so follow-up calls only name the session and the page they want.
//
// Sessions expire after a period of inactivity; every successful Get
// extends the lifetime.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the inactivity timeout of a session.
const DefaultTTL = 30 * time.Minute

// idPrefix marks session identifiers.
const idPrefix = "sess_"

var (
	// ErrSessionNotFound indicates the session does not exist or expired.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrInvalidSession indicates a session that cannot be stored.
	ErrInvalidSession = errors.New("invalid session")
)

// Session is the saved state of a paged account user search.
type Session struct {
	ID          string    `json:"id"`
	AccountID   int64     `json:"account_id"`
	SearchTerm  string    `json:"search_term,omitempty"`
	Sort        string    `json:"sort,omitempty"`
	Order       string    `json:"order,omitempty"`
	PerPage     int       `json:"per_page"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastAccess  time.Time `json:"last_access"`
}

// Store keeps sessions. Implementations are safe for concurrent use.
type Store interface {
	// Create stores s, assigning an ID when s.ID is empty.
	Create(ctx context.Context, s *Session) error

	// Get returns the session and refreshes its lifetime. Missing and
	// expired sessions yield ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Update replaces a stored session. It fails with ErrSessionNotFound
	// when the session is gone.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// NewID returns a fresh session identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// IsValidID reports whether id looks like an identifier from NewID.
func IsValidID(id string) bool {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// IsExpired reports whether s has been idle for longer than ttl at now.
func (s *Session) IsExpired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastAccess) > ttl
}

func (s *Session) clone() *Session {
	c := *s
	return &c
}

// prepare validates s and fills its ID and timestamps for creation.
func prepare(s *Session, now time.Time) error {
	if s == nil {
		return ErrInvalidSession
	}
	if s.AccountID <= 0 {
		return fmt.Errorf("%w: account_id must be positive", ErrInvalidSession)
	}
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CurrentPage <= 0 {
		s.CurrentPage = 1
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.LastAccess = now
	return nil
}

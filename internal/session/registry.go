package session

import (
	"context"
	"errors"

	"offer-collab-service/internal/domain"
)

// ErrSessionExpired covers every way a session id can stop being valid:
// never existed, timed out, ended, or superseded by a newer session for the
// same (user, offer) pair. The caller's only recovery is Start.
var ErrSessionExpired = errors.New("session expired or unknown")

// Registry owns the EditSession lifecycle. Sessions are liveness-tracked via
// heartbeats; expiry is a pure filter over registry state and never touches
// offer state. At most one session per (user, offer) pair is active; Start
// for an existing pair invalidates the prior session id.
type Registry interface {
	Start(ctx context.Context, documentID, userID uint64, role string) (*domain.EditSession, error)
	// Heartbeat refreshes liveness and replaces the advisory editing-fields set.
	Heartbeat(ctx context.Context, sessionID string, editingFields []string) (*domain.EditSession, error)
	// Touch refreshes liveness without changing editing fields. Used by every
	// other call a session makes, submitUpdate included.
	Touch(ctx context.Context, sessionID string) (*domain.EditSession, error)
	End(ctx context.Context, sessionID string) error
	ListActive(ctx context.Context, documentID uint64) ([]domain.EditSession, error)
	// Sweep evicts timed-out sessions eagerly. Optional housekeeping; reads
	// already filter stale sessions lazily.
	Sweep(ctx context.Context) (int, error)
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"offer-collab-service/internal/domain"

	"github.com/google/uuid"
)

// MemoryRegistry tracks sessions in process memory. The clock is injectable
// so tests can age sessions without sleeping.
type MemoryRegistry struct {
	mu        sync.RWMutex
	sessions  map[string]*domain.EditSession
	byDoc     map[uint64]map[string]struct{}
	byUserDoc map[string]string
	timeout   time.Duration
	now       func() time.Time
}

func NewMemoryRegistry(timeout time.Duration, now func() time.Time) *MemoryRegistry {
	if now == nil {
		now = time.Now
	}
	return &MemoryRegistry{
		sessions:  make(map[string]*domain.EditSession),
		byDoc:     make(map[uint64]map[string]struct{}),
		byUserDoc: make(map[string]string),
		timeout:   timeout,
		now:       now,
	}
}

func userDocKey(userID, documentID uint64) string {
	return fmt.Sprintf("%d:%d", userID, documentID)
}

func (r *MemoryRegistry) Start(ctx context.Context, documentID, userID uint64, role string) (*domain.EditSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// supersede any prior session for this (user, offer) pair
	key := userDocKey(userID, documentID)
	if prevID, ok := r.byUserDoc[key]; ok {
		r.removeLocked(prevID)
	}

	now := r.now().UTC()
	s := &domain.EditSession{
		SessionID:     uuid.NewString(),
		DocumentID:    documentID,
		UserID:        userID,
		Role:          role,
		EditingFields: []string{},
		StartedAt:     now,
		LastHeartbeat: now,
	}

	r.sessions[s.SessionID] = s
	if r.byDoc[documentID] == nil {
		r.byDoc[documentID] = make(map[string]struct{})
	}
	r.byDoc[documentID][s.SessionID] = struct{}{}
	r.byUserDoc[key] = s.SessionID

	return copySession(s), nil
}

func (r *MemoryRegistry) Heartbeat(ctx context.Context, sessionID string, editingFields []string) (*domain.EditSession, error) {
	return r.refresh(sessionID, editingFields, true)
}

func (r *MemoryRegistry) Touch(ctx context.Context, sessionID string) (*domain.EditSession, error) {
	return r.refresh(sessionID, nil, false)
}

func (r *MemoryRegistry) refresh(sessionID string, editingFields []string, replaceFields bool) (*domain.EditSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionExpired
	}

	now := r.now().UTC()
	if now.Sub(s.LastHeartbeat) > r.timeout {
		r.removeLocked(sessionID)
		return nil, ErrSessionExpired
	}

	s.LastHeartbeat = now
	if replaceFields {
		if editingFields == nil {
			editingFields = []string{}
		}
		s.EditingFields = editingFields
	}

	return copySession(s), nil
}

func (r *MemoryRegistry) End(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// ending an already-gone session is fine
	r.removeLocked(sessionID)
	return nil
}

func (r *MemoryRegistry) ListActive(ctx context.Context, documentID uint64) ([]domain.EditSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now().UTC()
	out := []domain.EditSession{}
	for id := range r.byDoc[documentID] {
		s := r.sessions[id]
		if s == nil || now.Sub(s.LastHeartbeat) > r.timeout {
			continue // stale sessions are filtered, Sweep removes them later
		}
		out = append(out, *copySession(s))
	}
	return out, nil
}

func (r *MemoryRegistry) Sweep(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	evicted := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastHeartbeat) > r.timeout {
			r.removeLocked(id)
			evicted++
		}
	}
	return evicted, nil
}

func (r *MemoryRegistry) removeLocked(sessionID string) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if ids := r.byDoc[s.DocumentID]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(r.byDoc, s.DocumentID)
		}
	}
	key := userDocKey(s.UserID, s.DocumentID)
	if r.byUserDoc[key] == sessionID {
		delete(r.byUserDoc, key)
	}
}

func copySession(s *domain.EditSession) *domain.EditSession {
	out := *s
	out.EditingFields = append([]string{}, s.EditingFields...)
	return &out
}

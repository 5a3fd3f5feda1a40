package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"offer-collab-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRegistry keeps sessions in Redis so multiple service instances share
// one view of who is editing. Expiry is delegated to key TTLs: every touch
// re-sets the session key with TTL = timeout, so a session that stops
// heartbeating simply disappears.
//
// Keys:
//
//	<prefix>sess:<sessionID>        JSON session, TTL = timeout
//	<prefix>doc:<documentID>        set of session ids (index for ListActive)
//	<prefix>user:<userID>:<docID>   current session id, TTL = timeout
type RedisRegistry struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisRegistry creates a Redis-based session registry. Prefix may be empty.
func NewRedisRegistry(client *redis.Client, prefix string, timeout time.Duration) *RedisRegistry {
	if prefix == "" {
		prefix = "collab:"
	}
	return &RedisRegistry{client: client, prefix: prefix, timeout: timeout}
}

func (r *RedisRegistry) sessKey(id string) string {
	return r.prefix + "sess:" + id
}

func (r *RedisRegistry) docKey(documentID uint64) string {
	return fmt.Sprintf("%sdoc:%d", r.prefix, documentID)
}

func (r *RedisRegistry) userKey(userID, documentID uint64) string {
	return fmt.Sprintf("%suser:%d:%d", r.prefix, userID, documentID)
}

func (r *RedisRegistry) Start(ctx context.Context, documentID, userID uint64, role string) (*domain.EditSession, error) {
	// supersede any prior session for this (user, offer) pair
	prevID, err := r.client.Get(ctx, r.userKey(userID, documentID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if prevID != "" {
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, r.sessKey(prevID))
		pipe.SRem(ctx, r.docKey(documentID), prevID)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	s := &domain.EditSession{
		SessionID:     uuid.NewString(),
		DocumentID:    documentID,
		UserID:        userID,
		Role:          role,
		EditingFields: []string{},
		StartedAt:     now,
		LastHeartbeat: now,
	}

	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessKey(s.SessionID), b, r.timeout)
	pipe.Set(ctx, r.userKey(userID, documentID), s.SessionID, r.timeout)
	pipe.SAdd(ctx, r.docKey(documentID), s.SessionID)
	// the doc index only holds ids; give it a generous TTL so abandoned
	// offers don't leak sets forever
	pipe.Expire(ctx, r.docKey(documentID), 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *RedisRegistry) Heartbeat(ctx context.Context, sessionID string, editingFields []string) (*domain.EditSession, error) {
	return r.refresh(ctx, sessionID, editingFields, true)
}

func (r *RedisRegistry) Touch(ctx context.Context, sessionID string) (*domain.EditSession, error) {
	return r.refresh(ctx, sessionID, nil, false)
}

func (r *RedisRegistry) refresh(ctx context.Context, sessionID string, editingFields []string, replaceFields bool) (*domain.EditSession, error) {
	b, err := r.client.Get(ctx, r.sessKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	var s domain.EditSession
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	s.LastHeartbeat = time.Now().UTC()
	if replaceFields {
		if editingFields == nil {
			editingFields = []string{}
		}
		s.EditingFields = editingFields
	}

	out, err := json.Marshal(&s)
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessKey(sessionID), out, r.timeout)
	pipe.Expire(ctx, r.userKey(s.UserID, s.DocumentID), r.timeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *RedisRegistry) End(ctx context.Context, sessionID string) error {
	b, err := r.client.Get(ctx, r.sessKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil // ending an already-gone session is fine
		}
		return err
	}

	var s domain.EditSession
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessKey(sessionID))
	pipe.Del(ctx, r.userKey(s.UserID, s.DocumentID))
	pipe.SRem(ctx, r.docKey(s.DocumentID), sessionID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) ListActive(ctx context.Context, documentID uint64) ([]domain.EditSession, error) {
	ids, err := r.client.SMembers(ctx, r.docKey(documentID)).Result()
	if err != nil {
		return nil, err
	}

	out := []domain.EditSession{}
	for _, id := range ids {
		b, err := r.client.Get(ctx, r.sessKey(id)).Bytes()
		if err == redis.Nil {
			// session TTL fired; drop the dangling index entry
			r.client.SRem(ctx, r.docKey(documentID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var s domain.EditSession
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Sweep is a no-op for Redis: key TTLs already evict timed-out sessions and
// ListActive prunes dangling index entries.
func (r *RedisRegistry) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

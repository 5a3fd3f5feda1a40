package collab

import (
	"context"
	defError "errors"
	"log"
	"sort"
	"time"

	"offer-collab-service/internal/domain"
	"offer-collab-service/internal/errors"
	"offer-collab-service/internal/history"
	"offer-collab-service/internal/metrics"
	"offer-collab-service/internal/notify"
	"offer-collab-service/internal/offer"
	"offer-collab-service/internal/session"
	"offer-collab-service/internal/worker"
)

type Service interface {
	CreateOffer(ctx context.Context, fields domain.FieldMap) (*domain.Offer, error)
	GetOffer(ctx context.Context, docID uint64) (*domain.Offer, error)
	StartSession(ctx context.Context, docID, userID uint64, role string) (*domain.EditSession, error)
	Heartbeat(ctx context.Context, sessionID string, editingFields []string) error
	EndSession(ctx context.Context, sessionID string) error
	ListActiveEditors(ctx context.Context, docID uint64) ([]domain.EditSession, error)
	SubmitUpdate(ctx context.Context, docID uint64, sessionID string, changes domain.FieldMap, expectedVersion uint64) (*UpdateResult, error)
	ReadHistory(ctx context.Context, docID uint64, limit, offset int) (*HistoryPage, error)
}

type RejectedField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ConflictInfo carries the authoritative state back to a stale caller so it
// can merge client-side and resubmit with the corrected expected version.
type ConflictInfo struct {
	Version uint64          `json:"version"`
	Fields  domain.FieldMap `json:"fields"`
}

type UpdateResult struct {
	Success        bool            `json:"success"`
	Version        uint64          `json:"version"`
	AppliedFields  []string        `json:"applied_fields"`
	RejectedFields []RejectedField `json:"rejected_fields"`
	Conflict       *ConflictInfo   `json:"conflict,omitempty"`
}

type HistoryPage struct {
	Entries []domain.EditHistoryEntry `json:"entries"`
	HasMore bool                      `json:"has_more"`
}

type DefaultService struct {
	store    offer.Store
	registry session.Registry
	log      history.Log
	policy   FieldPolicy
	notifier notify.Notifier
	pool     *worker.WorkerPool
}

// NewService wires the update engine. Notifier and pool may be nil (tests,
// or running without a marketplace endpoint); everything else is required.
func NewService(
	store offer.Store,
	registry session.Registry,
	historyLog history.Log,
	policy FieldPolicy,
	notifier notify.Notifier,
	pool *worker.WorkerPool,
) Service {
	return &DefaultService{
		store:    store,
		registry: registry,
		log:      historyLog,
		policy:   policy,
		notifier: notifier,
		pool:     pool,
	}
}

func (s *DefaultService) CreateOffer(ctx context.Context, fields domain.FieldMap) (*domain.Offer, error) {
	o := &domain.Offer{Fields: fields}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *DefaultService) GetOffer(ctx context.Context, docID uint64) (*domain.Offer, error) {
	o, err := s.store.Get(ctx, docID)
	if err != nil {
		if defError.Is(err, offer.ErrNotFound) {
			return nil, errors.NotFound("Offer not found", err)
		}
		return nil, err
	}
	return o, nil
}

func (s *DefaultService) StartSession(ctx context.Context, docID, userID uint64, role string) (*domain.EditSession, error) {
	// the offer must exist before anyone can edit it
	if _, err := s.store.Get(ctx, docID); err != nil {
		if defError.Is(err, offer.ErrNotFound) {
			return nil, errors.NotFound("Offer not found", err)
		}
		return nil, err
	}

	sess, err := s.registry.Start(ctx, docID, userID, role)
	if err != nil {
		return nil, err
	}
	metrics.SessionsStartedTotal.Inc()
	return sess, nil
}

func (s *DefaultService) Heartbeat(ctx context.Context, sessionID string, editingFields []string) error {
	_, err := s.registry.Heartbeat(ctx, sessionID, editingFields)
	if defError.Is(err, session.ErrSessionExpired) {
		return errors.SessionExpired(err)
	}
	return err
}

func (s *DefaultService) EndSession(ctx context.Context, sessionID string) error {
	return s.registry.End(ctx, sessionID)
}

func (s *DefaultService) ListActiveEditors(ctx context.Context, docID uint64) ([]domain.EditSession, error) {
	return s.registry.ListActive(ctx, docID)
}

// SubmitUpdate is the conflict-aware write path. Field-level problems drop
// individual fields (partial success); a stale expected version rejects the
// whole request with the authoritative state attached. There is no
// server-side merge.
func (s *DefaultService) SubmitUpdate(ctx context.Context, docID uint64, sessionID string, changes domain.FieldMap, expectedVersion uint64) (*UpdateResult, error) {
	start := time.Now()
	defer func() {
		metrics.UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	// an update counts as a heartbeat for the session making it
	sess, err := s.registry.Touch(ctx, sessionID)
	if err != nil {
		if defError.Is(err, session.ErrSessionExpired) {
			return nil, errors.SessionExpired(err)
		}
		return nil, err
	}
	if sess.DocumentID != docID {
		return nil, errors.SessionExpired(nil)
	}

	if len(changes) == 0 {
		return nil, errors.BadRequest("No changes submitted", nil)
	}

	// deterministic order for applied/rejected output and history entries
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	surviving := domain.FieldMap{}
	applied := []string{}
	rejected := []RejectedField{}
	for _, field := range fields {
		if err := s.policy.Check(docID, sess.UserID, sess.Role, field, changes[field]); err != nil {
			rejected = append(rejected, RejectedField{Field: field, Reason: err.Error()})
			continue
		}
		surviving[field] = changes[field]
	}
	if len(rejected) > 0 {
		metrics.RejectedFieldsTotal.Add(float64(len(rejected)))
	}

	// every field rejected: nothing to commit, report the current version
	if len(surviving) == 0 {
		current, err := s.store.Get(ctx, docID)
		if err != nil {
			if defError.Is(err, offer.ErrNotFound) {
				return nil, errors.NotFound("Offer not found", err)
			}
			return nil, err
		}
		return &UpdateResult{
			Success:        false,
			Version:        current.Version,
			AppliedFields:  applied,
			RejectedFields: rejected,
		}, nil
	}

	res, err := s.store.Commit(ctx, docID, expectedVersion, surviving)
	if err != nil {
		if defError.Is(err, offer.ErrNotFound) {
			return nil, errors.NotFound("Offer not found", err)
		}
		return nil, err
	}

	if !res.OK {
		// stale expected version: all-or-nothing rejection, caller merges
		// and retries. Not a fault, so no error path.
		metrics.ConflictsTotal.Inc()
		return &UpdateResult{
			Success:        false,
			Version:        res.Version,
			AppliedFields:  []string{},
			RejectedFields: rejected,
			Conflict: &ConflictInfo{
				Version: res.Version,
				Fields:  res.Fields,
			},
		}, nil
	}

	entryChanges := make(domain.FieldChanges, 0, len(surviving))
	for _, field := range fields {
		if _, ok := surviving[field]; !ok {
			continue
		}
		entryChanges = append(entryChanges, domain.FieldChange{
			Field:    field,
			OldValue: res.Previous[field],
			NewValue: surviving[field],
		})
		applied = append(applied, field)
	}

	if err := s.log.Append(ctx, &domain.EditHistoryEntry{
		DocumentID: docID,
		Version:    res.Version,
		UserID:     sess.UserID,
		UserRole:   sess.Role,
		Changes:    entryChanges,
	}); err != nil {
		// the commit is in; a hole in the audit trail is an infrastructure
		// fault the caller has to know about
		return nil, err
	}

	metrics.CommitsTotal.Inc()
	s.notifyUpdated(docID, res.Version, sess.UserID)

	return &UpdateResult{
		Success:        true,
		Version:        res.Version,
		AppliedFields:  applied,
		RejectedFields: rejected,
	}, nil
}

func (s *DefaultService) notifyUpdated(docID, version, userID uint64) {
	if s.notifier == nil {
		return
	}
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.notifier.OfferUpdated(ctx, docID, version, userID); err != nil {
			log.Printf("[NOTIFY ERROR] Failed to notify offer %d update to v%d: %v", docID, version, err)
		}
		return nil
	}
	if s.pool != nil {
		s.pool.Submit(task)
		return
	}
	go task(context.Background())
}

func (s *DefaultService) ReadHistory(ctx context.Context, docID uint64, limit, offset int) (*HistoryPage, error) {
	entries, hasMore, err := s.log.Read(ctx, docID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Entries: entries, HasMore: hasMore}, nil
}

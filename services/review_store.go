package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/metrics"
	"aftercollage_app_go/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatusAll disables the status filter
const StatusAll = "all"

var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Snapshot is every submission as of the last successful fetch, newest first
type Snapshot struct {
	Partners    []models.PartnerSubmission     `json:"partners"`
	Contacts    []models.ContactSubmission     `json:"contacts"`
	EarlyAccess []models.EarlyAccessSubmission `json:"early_access"`
	LoadedAt    time.Time                      `json:"loaded_at"`
}

// Counts returns the number of rows per kind
func (s Snapshot) Counts() map[models.Kind]int {
	return map[models.Kind]int{
		models.KindPartner:     len(s.Partners),
		models.KindContact:     len(s.Contacts),
		models.KindEarlyAccess: len(s.EarlyAccess),
	}
}

// Records returns the rows of one kind in column form
func (s Snapshot) Records(kind models.Kind) []models.Record {
	switch kind {
	case models.KindPartner:
		return models.Records(s.Partners)
	case models.KindContact:
		return models.Records(s.Contacts)
	case models.KindEarlyAccess:
		return models.Records(s.EarlyAccess)
	}
	return nil
}

// Find returns the row of kind with the given id
func (s Snapshot) Find(kind models.Kind, id string) (models.Record, bool) {
	for _, rec := range s.Records(kind) {
		if v, _ := rec.Get("id"); v == id {
			return rec, true
		}
	}
	return nil, false
}

// ReviewStore holds the dashboard's in-memory copy of the three submission collections
type ReviewStore struct {
	store backend.Store
	log   *zap.Logger

	mu     sync.RWMutex
	snap   Snapshot
	loaded bool
}

func NewReviewStore(store backend.Store, log *zap.Logger) *ReviewStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewStore{store: store, log: log}
}

// Refresh fetches the three collections concurrently and swaps them in together.
// If any fetch fails the previous snapshot is kept whole.
func (r *ReviewStore) Refresh(ctx context.Context) error {
	var (
		g           errgroup.Group
		partners    []models.PartnerSubmission
		contacts    []models.ContactSubmission
		earlyAccess []models.EarlyAccessSubmission
	)

	g.Go(func() error {
		return r.store.Select(ctx, models.TablePartnerSubmissions, &partners, backend.Query{})
	})
	g.Go(func() error {
		return r.store.Select(ctx, models.TableContactSubmissions, &contacts, backend.Query{})
	})
	g.Go(func() error {
		return r.store.Select(ctx, models.TableEarlyAccessSubmissions, &earlyAccess, backend.Query{})
	})

	if err := g.Wait(); err != nil {
		r.log.Error("submission fetch failed", zap.Error(err))
		return fmt.Errorf("refresh submissions: %w", err)
	}

	// Empty collections render as empty lists, not null
	if partners == nil {
		partners = []models.PartnerSubmission{}
	}
	if contacts == nil {
		contacts = []models.ContactSubmission{}
	}
	if earlyAccess == nil {
		earlyAccess = []models.EarlyAccessSubmission{}
	}

	snap := Snapshot{
		Partners:    partners,
		Contacts:    contacts,
		EarlyAccess: earlyAccess,
		LoadedAt:    time.Now(),
	}

	r.mu.Lock()
	r.snap = snap
	r.loaded = true
	r.mu.Unlock()

	r.log.Debug("submissions loaded",
		zap.Int("partners", len(snap.Partners)),
		zap.Int("contacts", len(snap.Contacts)),
		zap.Int("early_access", len(snap.EarlyAccess)),
	)
	return nil
}

// Snapshot returns the current data
func (r *ReviewStore) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Loaded reports whether a fetch has ever succeeded
func (r *ReviewStore) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// UpdateStatus writes status to one row and then re-fetches everything. A failed write
// leaves the snapshot as it was.
func (r *ReviewStore) UpdateStatus(ctx context.Context, collection, id, status string) (Notification, error) {
	kind, ok := models.ParseKind(collection)
	if !ok {
		return Failure(MsgStatusUpdateFailed), fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	collection = kind.Collection()
	if !models.IsValidStatus(collection, status) {
		return Failure(MsgStatusUpdateFailed), fmt.Errorf("%w: %q for %s", ErrInvalidStatus, status, collection)
	}

	err := r.store.Update(ctx, collection, id, map[string]interface{}{"status": status})
	metrics.RecordStatusUpdate(collection, err)
	if err != nil {
		r.log.Error("status update failed",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.String("status", status),
			zap.Error(err),
		)
		return Failure(MsgStatusUpdateFailed), fmt.Errorf("update status: %w", err)
	}

	if err := r.Refresh(ctx); err != nil {
		// The write went through; the next successful refresh will show it
		r.log.Warn("refresh after status update failed", zap.Error(err))
	}
	return Success(MsgStatusUpdated), nil
}

// Filter applies search and status to every collection of the current snapshot
func (r *ReviewStore) Filter(search, status string) Snapshot {
	snap := r.Snapshot()
	return Snapshot{
		Partners:    FilterRows(snap.Partners, search, status),
		Contacts:    FilterRows(snap.Contacts, search, status),
		EarlyAccess: FilterRows(snap.EarlyAccess, search, status),
		LoadedAt:    snap.LoadedAt,
	}
}

// FilterRows keeps rows whose status equals status ("all" or empty matches any) and whose
// search fields contain search, ignoring case. Order is preserved.
func FilterRows[T models.Submission](rows []T, search, status string) []T {
	term := strings.ToLower(search)
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if status != "" && status != StatusAll && row.ReviewStatus() != status {
			continue
		}
		if term != "" && !containsAny(row.SearchFields(), term) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func containsAny(fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

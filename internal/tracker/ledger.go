// Package tracker keeps a per-user ledger of subscriptions in front of the
// store. Every change is applied locally first and carries an explicit sync
// state until the store confirms it, so a failed write is never silently
// lost: it can be retried or reverted.
package tracker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gitlab.com/yelinaung/subday/internal/tracker")

// Errors returned by ledger operations.
var (
	ErrNotFound    = errors.New("subscription not found")
	ErrBusy        = errors.New("subscription has a write in flight")
	ErrDeleting    = errors.New("subscription is being deleted")
	ErrNothingToDo = errors.New("subscription has no unsynced change")
)

// Store is the persistence the ledger writes through to.
type Store interface {
	ListByUser(ctx context.Context, uid string) ([]models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription, fields []models.Field) error
	Delete(ctx context.Context, uid, id string) error
}

type operation int

const (
	opNone operation = iota
	opCreate
	opUpdate
	opDelete
)

func (o operation) String() string {
	switch o {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "none"
	}
}

type entry struct {
	current   models.Subscription
	committed *models.Subscription
	state     SyncState
	op        operation
	fields    []models.Field
}

func (e *entry) record() Record {
	return Record{Subscription: e.current, Sync: e.state}
}

// SyncError reports a store write that failed. Record holds the local state
// after the failure.
type SyncError struct {
	Record Record
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to sync subscription %s: %v", e.Record.ID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Ledger is one user's subscriptions with their sync state. It is safe for
// concurrent use.
type Ledger struct {
	uid   string
	store Store
	now   func() time.Time

	mu      sync.Mutex
	entries []*entry
}

func newLedger(uid string, store Store, now func() time.Time, subs []models.Subscription) *Ledger {
	l := &Ledger{uid: uid, store: store, now: now}
	for _, sub := range subs {
		c := sub
		l.entries = append(l.entries, &entry{current: sub, committed: &c, state: Committed()})
	}
	l.sortLocked()
	return l
}

// UID returns the owner of the ledger.
func (l *Ledger) UID() string { return l.uid }

func (l *Ledger) sortLocked() {
	slices.SortStableFunc(l.entries, func(a, b *entry) int {
		return cmp.Compare(a.current.Day, b.current.Day)
	})
}

func (l *Ledger) findLocked(id string) (int, *entry) {
	for i, e := range l.entries {
		if e.current.ID == id {
			return i, e
		}
	}
	return -1, nil
}

// unsynced reports whether any record is pending or failed.
func (l *Ledger) unsynced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.state.Kind != SyncCommitted {
			return true
		}
	}
	return false
}

// Records returns a snapshot of every record, ordered by due day.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.record()
	}
	return out
}

// Subscriptions returns the local value of every record, ordered by due day.
func (l *Ledger) Subscriptions() []models.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Subscription, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.current
	}
	return out
}

// Get returns one record.
func (l *Ledger) Get(id string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, e := l.findLocked(id)
	if e == nil {
		return Record{}, ErrNotFound
	}
	return e.record(), nil
}

// Add validates the draft, records it as pending and writes it to the store.
func (l *Ledger) Add(ctx context.Context, draft models.Draft) (Record, error) {
	sub, err := models.NewSubscription(l.uid, draft)
	if err != nil {
		return Record{}, err
	}
	sub.ID = uuid.NewString()
	sub.CreatedAt = l.now()
	sub.UpdatedAt = sub.CreatedAt

	l.mu.Lock()
	e := &entry{current: sub, state: Pending(), op: opCreate}
	l.entries = append(l.entries, e)
	l.sortLocked()
	l.mu.Unlock()

	return l.flush(ctx, e)
}

// Update applies a partial change.
func (l *Ledger) Update(ctx context.Context, id string, patch models.Patch) (Record, error) {
	if patch.IsEmpty() {
		return l.Get(id)
	}

	l.mu.Lock()
	_, e := l.findLocked(id)
	if e == nil {
		l.mu.Unlock()
		return Record{}, ErrNotFound
	}
	if e.state.IsPending() {
		l.mu.Unlock()
		return Record{}, ErrBusy
	}
	if e.op == opDelete {
		l.mu.Unlock()
		return Record{}, ErrDeleting
	}
	next, err := e.current.Apply(patch)
	if err != nil {
		l.mu.Unlock()
		return Record{}, err
	}
	e.current = next
	e.state = Pending()
	switch e.op {
	case opCreate:
		// Still unsaved: the retry inserts the whole row.
	case opUpdate:
		e.fields = mergeFields(e.fields, patch.Fields())
	default:
		e.op = opUpdate
		e.fields = patch.Fields()
	}
	l.sortLocked()
	l.mu.Unlock()

	return l.flush(ctx, e)
}

// Cancel marks a subscription Canceled. It stays visible as history.
func (l *Ledger) Cancel(ctx context.Context, id string) (Record, error) {
	status := string(models.StatusCanceled)
	return l.Update(ctx, id, models.Patch{Status: &status})
}

// SetReminder toggles the renewal reminder and its end date.
func (l *Ledger) SetReminder(ctx context.Context, id string, enabled bool, endDate *time.Time) (Record, error) {
	patch := models.Patch{ReminderEnabled: &enabled}
	if endDate != nil {
		patch.ReminderEndDate = endDate
	}
	return l.Update(ctx, id, patch)
}

// Delete removes a subscription. A never-saved record is dropped locally.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	i, e := l.findLocked(id)
	if e == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	if e.state.IsPending() {
		l.mu.Unlock()
		return ErrBusy
	}
	if e.committed == nil {
		l.entries = slices.Delete(l.entries, i, i+1)
		l.mu.Unlock()
		return nil
	}
	e.state = Pending()
	e.op = opDelete
	e.fields = nil
	l.mu.Unlock()

	_, err := l.flush(ctx, e)
	return err
}

// Retry sends a failed change to the store again.
func (l *Ledger) Retry(ctx context.Context, id string) (Record, error) {
	l.mu.Lock()
	_, e := l.findLocked(id)
	if e == nil {
		l.mu.Unlock()
		return Record{}, ErrNotFound
	}
	if e.state.IsPending() {
		l.mu.Unlock()
		return Record{}, ErrBusy
	}
	if e.op == opNone {
		l.mu.Unlock()
		return Record{}, ErrNothingToDo
	}
	e.state = Pending()
	l.mu.Unlock()

	return l.flush(ctx, e)
}

// Revert discards a failed change and restores the last committed value.
// A record that was never committed is removed; the bool reports whether
// the record still exists.
func (l *Ledger) Revert(id string) (Record, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, e := l.findLocked(id)
	if e == nil {
		return Record{}, false, ErrNotFound
	}
	if e.state.IsPending() {
		return Record{}, false, ErrBusy
	}
	if e.op == opNone {
		return e.record(), true, ErrNothingToDo
	}
	if e.committed == nil {
		l.entries = slices.Delete(l.entries, i, i+1)
		return Record{}, false, nil
	}
	e.current = *e.committed
	e.state = Committed()
	e.op = opNone
	e.fields = nil
	l.sortLocked()
	return e.record(), true, nil
}

// flush writes e's pending change without holding the lock, then records
// the outcome.
func (l *Ledger) flush(ctx context.Context, e *entry) (Record, error) {
	l.mu.Lock()
	sub := e.current
	op := e.op
	fields := slices.Clone(e.fields)
	l.mu.Unlock()

	ctx, span := tracer.Start(ctx, "subscription."+op.String(), trace.WithAttributes(
		attribute.String("subscription.id", sub.ID),
		attribute.Int("subscription.fields", len(fields)),
	))
	defer span.End()

	var err error
	switch op {
	case opCreate:
		err = l.store.Save(ctx, &sub)
	case opUpdate:
		err = l.store.Update(ctx, &sub, fields)
	case opDelete:
		err = l.store.Delete(ctx, l.uid, sub.ID)
		if errors.Is(err, repository.ErrNotFound) {
			err = nil
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
		e.state = Failed(err.Error())
		logger.Log.Warn().Err(err).
			Str("user", logger.HashUserID(l.uid)).
			Str("subscription_id", sub.ID).
			Str("name", logger.SanitizeName(sub.Name)).
			Str("op", op.String()).
			Msg("Subscription write failed")
		return e.record(), &SyncError{Record: e.record(), Err: err}
	}

	if op == opDelete {
		if i, _ := l.findLocked(sub.ID); i >= 0 {
			l.entries = slices.Delete(l.entries, i, i+1)
		}
		return Record{Subscription: sub, Sync: Committed()}, nil
	}

	e.current.CreatedAt = sub.CreatedAt
	e.current.UpdatedAt = sub.UpdatedAt
	c := e.current
	e.committed = &c
	e.state = Committed()
	e.op = opNone
	e.fields = nil
	return e.record(), nil
}

func mergeFields(a, b []models.Field) []models.Field {
	out := slices.Clone(a)
	for _, f := range b {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

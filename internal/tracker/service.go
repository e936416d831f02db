package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
)

const (
	// DefaultIdleTTL is how long an unused ledger stays cached.
	DefaultIdleTTL = 30 * time.Minute

	// CheckTimeout bounds the due-soon check that follows a ledger load.
	CheckTimeout = 30 * time.Second
)

// DueSoonChecker is told about a user's subscriptions whenever a ledger is
// loaded, so upcoming payments are announced without waiting for the daily job.
type DueSoonChecker interface {
	CheckUser(ctx context.Context, uid string, subs []models.Subscription) int
}

// Option configures a Service.
type Option func(*Service)

// WithEvaluator sets the due-date evaluator and its clock.
func WithEvaluator(e billing.Evaluator) Option {
	return func(s *Service) { s.eval = e }
}

// WithDueSoonChecker runs checker in the background after every ledger load.
func WithDueSoonChecker(checker DueSoonChecker) Option {
	return func(s *Service) { s.checker = checker }
}

// WithIdleTTL sets how long an unused ledger stays cached. Ledgers with
// pending or failed records are kept regardless.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

type cachedLedger struct {
	ledger   *Ledger
	lastUsed time.Time
}

// Service owns one lazily loaded Ledger per user. A ledger left unused for
// the idle TTL is dropped and reloaded from the store on next use.
type Service struct {
	store   Store
	eval    billing.Evaluator
	checker DueSoonChecker
	idleTTL time.Duration

	mu        sync.Mutex
	ledgers   map[string]*cachedLedger
	loading   map[string]*sync.Mutex
	nextSweep time.Time

	checks sync.WaitGroup
}

// NewService creates a Service writing through to store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		idleTTL: DefaultIdleTTL,
		ledgers: make(map[string]*cachedLedger),
		loading: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluator returns the due-date evaluator used by the service.
func (s *Service) Evaluator() billing.Evaluator { return s.eval }

func (s *Service) now() time.Time {
	if s.eval.Now != nil {
		return s.eval.Now()
	}
	return time.Now()
}

// Ledger returns the ledger of uid, loading it from the store on first use.
func (s *Service) Ledger(ctx context.Context, uid string) (*Ledger, error) {
	if l, ok := s.cached(uid); ok {
		return l, nil
	}

	s.mu.Lock()
	lock, ok := s.loading[uid]
	if !ok {
		lock = &sync.Mutex{}
		s.loading[uid] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	if l, ok := s.cached(uid); ok {
		return l, nil
	}

	subs, err := s.store.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	l := newLedger(uid, s.store, s.now, subs)

	s.mu.Lock()
	s.ledgers[uid] = &cachedLedger{ledger: l, lastUsed: s.now()}
	delete(s.loading, uid)
	s.mu.Unlock()

	s.afterLoad(ctx, l)
	return l, nil
}

// cached returns the cached ledger of uid and marks it used. It also drops
// idle ledgers once per TTL.
func (s *Service) cached(uid string) (*Ledger, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.Before(s.nextSweep) {
		s.evictIdleLocked(now)
		s.nextSweep = now.Add(s.idleTTL)
	}

	c, ok := s.ledgers[uid]
	if !ok {
		return nil, false
	}
	c.lastUsed = now
	return c.ledger, true
}

func (s *Service) evictIdleLocked(now time.Time) {
	for uid, c := range s.ledgers {
		if now.Sub(c.lastUsed) < s.idleTTL || c.ledger.unsynced() {
			continue
		}
		delete(s.ledgers, uid)
		logger.Log.Debug().Str("user", logger.HashUserID(uid)).Msg("Evicted idle ledger")
	}
}

// Cached returns the number of ledgers held in memory.
func (s *Service) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledgers)
}

func (s *Service) afterLoad(ctx context.Context, l *Ledger) {
	subs := l.Subscriptions()
	for _, sub := range subs {
		if !s.eval.Anchored(sub) {
			logger.Log.Debug().
				Str("user", logger.HashUserID(l.uid)).
				Str("subscription_id", sub.ID).
				Str("frequency", string(sub.Frequency)).
				Msg("Subscription schedule falls back to the current date")
		}
	}

	if s.checker == nil {
		return
	}

	// The check outlives the request that triggered the load.
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CheckTimeout)
	s.checks.Add(1)
	go func() {
		defer s.checks.Done()
		defer cancel()
		if n := s.checker.CheckUser(checkCtx, l.uid, subs); n > 0 {
			logger.Log.Debug().Str("user", logger.HashUserID(l.uid)).Int("count", n).Msg("Payments due soon on load")
		}
	}()
}

// Wait blocks until every background due-soon check has finished.
func (s *Service) Wait() {
	s.checks.Wait()
}

// Invalidate drops the cached ledger of uid. The next call reloads it.
func (s *Service) Invalidate(uid string) {
	s.mu.Lock()
	delete(s.ledgers, uid)
	s.mu.Unlock()
}

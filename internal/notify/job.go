package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultSchedule runs the scan every morning at nine.
	DefaultSchedule = "0 9 * * *"
	// RunTimeout is the maximum time a single scheduled scan can take.
	RunTimeout = 2 * time.Minute
)

// Source lists the subscriptions the job scans.
type Source interface {
	ListUIDsWithActive(ctx context.Context) ([]string, error)
	ListByUser(ctx context.Context, uid string) ([]models.Subscription, error)
}

// Job sends each user at most one due-soon notice per calendar day through
// each dispatcher. It is safe for concurrent use.
type Job struct {
	source      Source
	dispatchers []Dispatcher
	eval        billing.Evaluator
	schedule    string
	location    *time.Location
	sent        metric.Int64Counter

	cron *cron.Cron

	mu       sync.Mutex
	notified map[deliveryKey]string
}

// deliveryKey identifies one user on one dispatcher.
type deliveryKey struct {
	uid        string
	dispatcher int
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithSchedule sets the cron expression. Empty keeps DefaultSchedule.
func WithSchedule(spec string) JobOption {
	return func(j *Job) {
		if spec != "" {
			j.schedule = spec
		}
	}
}

// WithLocation sets the timezone that decides what "today" is.
func WithLocation(loc *time.Location) JobOption {
	return func(j *Job) {
		if loc != nil {
			j.location = loc
		}
	}
}

// WithJobEvaluator replaces the due-date evaluator.
func WithJobEvaluator(e billing.Evaluator) JobOption {
	return func(j *Job) { j.eval = e }
}

// WithMeter records sent notices on meter instead of the global provider.
func WithMeter(meter metric.Meter) JobOption {
	return func(j *Job) {
		if counter, err := newSentCounter(meter); err == nil {
			j.sent = counter
		}
	}
}

func newSentCounter(meter metric.Meter) (metric.Int64Counter, error) {
	counter, err := meter.Int64Counter("subday.notices.sent",
		metric.WithDescription("Due-soon notices delivered"),
		metric.WithUnit("{notice}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create notice counter: %w", err)
	}
	return counter, nil
}

// NewJob creates a Job. Start schedules it. The members of a Multi are
// tracked separately, so a failed delivery is retried only where it failed.
func NewJob(source Source, dispatcher Dispatcher, opts ...JobOption) (*Job, error) {
	j := &Job{
		source:   source,
		schedule: DefaultSchedule,
		location: time.UTC,
		notified: make(map[deliveryKey]string),
	}
	if m, ok := dispatcher.(Multi); ok {
		j.dispatchers = m
	} else {
		j.dispatchers = []Dispatcher{dispatcher}
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.eval.Location == nil {
		j.eval.Location = j.location
	}
	if j.sent == nil {
		counter, err := newSentCounter(otel.Meter("gitlab.com/yelinaung/subday/internal/notify"))
		if err != nil {
			return nil, err
		}
		j.sent = counter
	}

	j.cron = cron.New(
		cron.WithLocation(j.location),
		cron.WithChain(cron.Recover(cron.PrintfLogger(&logger.Log))),
	)
	if _, err := j.cron.AddFunc(j.schedule, j.runScheduled); err != nil {
		return nil, fmt.Errorf("failed to schedule due-soon job: %w", err)
	}
	return j, nil
}

// Start starts the scheduler in its own goroutine.
func (j *Job) Start() {
	j.cron.Start()
	logger.Log.Info().
		Str("schedule", j.schedule).
		Str("timezone", j.location.String()).
		Msg("Due-soon job scheduled")
}

// Stop stops the scheduler. The returned context is done once a running
// scan has finished.
func (j *Job) Stop() context.Context {
	return j.cron.Stop()
}

func (j *Job) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
	defer cancel()

	sent, err := j.Run(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Due-soon scan failed")
		return
	}
	logger.Log.Info().Int("sent", sent).Msg("Due-soon scan finished")
}

// Run scans every user with an active subscription now and returns the
// number of notices sent.
func (j *Job) Run(ctx context.Context) (int, error) {
	today := j.today()
	j.prune(today)

	uids, err := j.source.ListUIDsWithActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	sent := 0
	for _, uid := range uids {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		subs, err := j.source.ListByUser(ctx, uid)
		if err != nil {
			logger.Log.Warn().Err(err).Str("user", logger.HashUserID(uid)).Msg("Failed to load subscriptions for due-soon scan")
			continue
		}
		if _, ok := j.notify(ctx, uid, subs, today); ok {
			sent++
		}
	}
	return sent, nil
}

// CheckUser announces uid's due-soon payments unless they were already
// announced today. It returns the number of payments due soon.
func (j *Job) CheckUser(ctx context.Context, uid string, subs []models.Subscription) int {
	n, _ := j.notify(ctx, uid, subs, j.today())
	return n.Count
}

func (j *Job) notify(ctx context.Context, uid string, subs []models.Subscription, today time.Time) (Notice, bool) {
	n, ok := BuildNotice(j.eval, uid, subs, today)
	if !ok {
		return n, false
	}

	delivered := false
	for i, d := range j.dispatchers {
		key := deliveryKey{uid: uid, dispatcher: i}
		if !j.claim(key, n.Date) {
			continue
		}
		if err := d.Dispatch(ctx, n); err != nil {
			j.release(key, n.Date)
			logger.Log.Warn().Err(err).
				Str("user", logger.HashUserID(uid)).
				Int("dispatcher", i).
				Msg("Failed to dispatch due-soon notice")
			continue
		}
		delivered = true
	}

	if delivered {
		j.sent.Add(ctx, 1)
	}
	return n, delivered
}

// claim marks key as notified on date. It returns false when it already was.
func (j *Job) claim(key deliveryKey, date string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.notified[key] == date {
		return false
	}
	j.notified[key] = date
	return true
}

func (j *Job) release(key deliveryKey, date string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.notified[key] == date {
		delete(j.notified, key)
	}
}

func (j *Job) today() time.Time {
	return j.eval.Today()
}

// prune drops entries from previous days so the map doesn't grow unbounded.
func (j *Job) prune(today time.Time) {
	day := today.Format(time.DateOnly)

	j.mu.Lock()
	defer j.mu.Unlock()
	for key, d := range j.notified {
		if d != day {
			delete(j.notified, key)
		}
	}
}

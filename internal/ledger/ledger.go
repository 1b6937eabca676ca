// Package ledger applies food entries to today's totals optimistically,
// persists them, queues them while the store is unreachable and reconciles
// local totals with the store's.
package ledger

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"dieti-tracker/internal/models"
)

// Epsilon bounds the difference tolerated between local and stored totals.
const Epsilon = 1e-4

// DefaultTimeout bounds every store call. Expiry counts as a connectivity
// failure.
const DefaultTimeout = 8 * time.Second

// Backend is the persistence collaborator.
type Backend interface {
	AddFoodEntry(ctx context.Context, entry models.FoodLogEntry) error
	GetDailyTotals(ctx context.Context, date models.Date) (models.DailyIntake, error)
}

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Observer renders ledger changes.
type Observer interface {
	// TotalsChanged is called after today's totals change. animate is false
	// for reconciliation corrections, which must not replay the entry
	// animation.
	TotalsChanged(date models.Date, totals models.Macros, animate bool)
	Notify(n Notice)
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a non-blocking user-visible message.
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// Session is the explicit per-user context of a client session.
type Session struct {
	UserID string
	Token  string
	Goals  models.Goal
}

// State of the local totals relative to the store.
type State int

const (
	// Clean: local totals match the last reconciliation.
	Clean State = iota
	// Dirty: some optimistic deltas are not confirmed yet.
	Dirty
	// Reconciling: a fetch of the stored totals is in flight.
	Reconciling
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Reconciling:
		return "reconciling"
	}
	return "unknown"
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.timeout = d }
}

// WithDispatcher controls how network work is started after the optimistic
// update. The default runs it on a new goroutine.
func WithDispatcher(fn func(func())) Option {
	return func(l *Ledger) { l.dispatch = fn }
}

func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// Ledger owns today's totals and the offline queue of one session. All
// mutations go through its methods.
type Ledger struct {
	mu       sync.Mutex
	session  Session
	backend  Backend
	queue    *Queue
	observer Observer
	now      func() time.Time
	loc      *time.Location
	timeout  time.Duration
	dispatch func(func())
	newID    func() string

	online      bool
	today       models.Date
	totals      models.Macros
	outstanding map[string]models.FoodLogEntry
	reconciling int
	confirms    uint64
	replaying   bool
}

func New(session Session, backend Backend, queue *Queue, observer Observer, opts ...Option) *Ledger {
	l := &Ledger{
		session:     session,
		backend:     backend,
		queue:       queue,
		observer:    observer,
		now:         time.Now,
		loc:         time.Local,
		timeout:     DefaultTimeout,
		dispatch:    func(fn func()) { go fn() },
		newID:       uuid.NewString,
		online:      true,
		outstanding: make(map[string]models.FoodLogEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.queue == nil {
		l.queue, _ = NewQueue(nil)
	}
	for _, p := range l.queue.Snapshot() {
		l.outstanding[p.Entry.ID] = p.Entry
	}
	return l
}

// Load replaces local totals with the stored ones plus the deltas of
// entries still waiting in the queue.
func (l *Ledger) Load(ctx context.Context) error {
	date := l.currentDate()
	intake, err := l.fetch(ctx, date)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.today = date
	l.totals = intake.Macros.Add(l.outstandingSumLocked())
	totals := l.totals
	l.mu.Unlock()

	l.observer.TotalsChanged(date, totals, true)
	return nil
}

// RecordFood applies grams of item to today's totals at once and persists
// the entry in the background. Only validation failures are returned; store
// failures are reported through the Observer.
func (l *Ledger) RecordFood(item *models.NutritionalInfo, grams float64) (models.FoodLogEntry, error) {
	if item == nil {
		return models.FoodLogEntry{}, &ValidationError{Reason: "no item selected"}
	}
	if grams <= 0 || math.IsNaN(grams) || math.IsInf(grams, 0) {
		return models.FoodLogEntry{}, &ValidationError{Reason: "grams must be greater than zero"}
	}
	consumed := item.Consumed(grams)

	l.mu.Lock()
	l.rollDayLocked()
	entry := models.FoodLogEntry{
		ID:          l.newID(),
		UserID:      l.session.UserID,
		Description: item.Description,
		Grams:       grams,
		Macros:      consumed,
		Date:        l.today,
		CreatedAt:   l.now().Unix(),
	}
	if err := models.Validate(entry); err != nil {
		l.mu.Unlock()
		return models.FoodLogEntry{}, &ValidationError{Reason: err.Error()}
	}
	l.totals = l.totals.Add(consumed)
	l.outstanding[entry.ID] = entry
	date, totals, online := l.today, l.totals, l.online
	l.mu.Unlock()

	l.observer.TotalsChanged(date, totals, true)

	if !online {
		l.enqueue(entry)
		return entry, nil
	}
	l.dispatch(func() { l.persist(entry) })
	return entry, nil
}

func (l *Ledger) persist(entry models.FoodLogEntry) {
	err := l.add(context.Background(), entry)
	switch {
	case err == nil:
		l.confirm(entry.ID)
		writesTotal.WithLabelValues("persisted").Inc()
		if rerr := l.Reconcile(context.Background()); rerr != nil {
			log.Println("Failed to reconcile totals:", rerr)
		}
	case IsConnectivity(err):
		l.markOffline()
		l.enqueue(entry)
	default:
		log.Println("Failed to persist food entry:", err)
		l.mu.Lock()
		delete(l.outstanding, entry.ID)
		l.mu.Unlock()
		writesTotal.WithLabelValues("failed").Inc()
		l.observer.Notify(Notice{
			Level:   NoticeError,
			Message: fmt.Sprintf("Could not save %s. It is shown in today's totals but was not stored.", entry.Description),
			Err:     err,
		})
	}
}

func (l *Ledger) enqueue(entry models.FoodLogEntry) {
	if !l.queue.Push(models.PendingFoodEntry{Entry: entry, QueuedAt: l.now().Unix()}) {
		return
	}
	writesTotal.WithLabelValues("queued").Inc()
	l.observer.Notify(Notice{
		Level:   NoticeInfo,
		Message: fmt.Sprintf("%s saved offline, will sync when the connection is back.", entry.Description),
	})
}

// Reconcile fetches today's stored totals and silently corrects the local
// ones when they differ by more than Epsilon.
func (l *Ledger) Reconcile(ctx context.Context) error {
	l.mu.Lock()
	l.rollDayLocked()
	date := l.today
	seq := l.confirms
	l.reconciling++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.reconciling--
		l.mu.Unlock()
	}()

	intake, err := l.fetch(ctx, date)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.today != date || l.confirms != seq {
		// A newer confirmation triggers its own reconciliation.
		l.mu.Unlock()
		return nil
	}
	expected := intake.Macros.Add(l.outstandingSumLocked())
	changed := !l.totals.ApproxEqual(expected, Epsilon)
	if changed {
		l.totals = expected
	}
	totals := l.totals
	l.mu.Unlock()

	if changed {
		correctionsTotal.Inc()
		l.observer.TotalsChanged(date, totals, false)
	}
	return nil
}

// SetOnline records the connectivity signal. Going from offline to online
// replays the queue.
func (l *Ledger) SetOnline(online bool) {
	l.mu.Lock()
	was := l.online
	l.online = online
	l.mu.Unlock()

	if online && !was {
		l.dispatch(func() {
			res := l.Replay(context.Background())
			if res.Persisted > 0 || res.Failed > 0 {
				log.Printf("Replayed offline queue: %d persisted, %d still queued", res.Persisted, res.Failed)
			}
		})
	}
}

// CheckConnectivity probes the store and feeds the result to SetOnline.
func (l *Ledger) CheckConnectivity(ctx context.Context, checker HealthChecker) bool {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	online := checker.Health(ctx) == nil
	l.SetOnline(online)
	return online
}

type ReplayResult struct {
	Persisted int
	Failed    int
}

// Replay sends queued entries in FIFO order. Each entry stays in the queue,
// and in its durable store, until the store accepts it; failed entries keep
// their position for the next online transition. Totals are reconciled
// afterwards.
func (l *Ledger) Replay(ctx context.Context) ReplayResult {
	l.mu.Lock()
	if l.replaying {
		l.mu.Unlock()
		return ReplayResult{}
	}
	l.replaying = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.replaying = false
		l.mu.Unlock()
	}()

	var res ReplayResult
	entries := l.queue.Snapshot()
	for _, p := range entries {
		if err := l.add(ctx, p.Entry); err != nil {
			if IsConnectivity(err) {
				l.markOffline()
			} else {
				log.Println("Failed to replay food entry:", err)
			}
			l.queue.MarkAttempt(p.Entry.ID)
			res.Failed++
			continue
		}
		l.queue.Remove(p.Entry.ID)
		l.confirm(p.Entry.ID)
		writesTotal.WithLabelValues("persisted").Inc()
		res.Persisted++
	}

	if len(entries) > 0 {
		if err := l.Reconcile(ctx); err != nil {
			log.Println("Failed to reconcile after replay:", err)
		}
	}
	return res
}

// ClearPending drops every queued entry. Their deltas stay on screen until
// the next reconciliation.
func (l *Ledger) ClearPending() []models.PendingFoodEntry {
	cleared := l.queue.Drain()
	l.mu.Lock()
	for _, p := range cleared {
		delete(l.outstanding, p.Entry.ID)
	}
	online := l.online
	l.mu.Unlock()

	if online && len(cleared) > 0 {
		l.dispatch(func() {
			if err := l.Reconcile(context.Background()); err != nil {
				log.Println("Failed to reconcile after clearing queue:", err)
			}
		})
	}
	return cleared
}

// Totals returns today's date and locally held totals.
func (l *Ledger) Totals() (models.Date, models.Macros) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()
	return l.today, l.totals
}

func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reconciling > 0 {
		return Reconciling
	}
	for _, e := range l.outstanding {
		if e.Date == l.today {
			return Dirty
		}
	}
	return Clean
}

func (l *Ledger) Online() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.online
}

func (l *Ledger) Session() Session { return l.session }

// Pending returns the queued entries in replay order.
func (l *Ledger) Pending() []models.PendingFoodEntry {
	return l.queue.Snapshot()
}

func (l *Ledger) add(ctx context.Context, entry models.FoodLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return Classify(l.backend.AddFoodEntry(ctx, entry))
}

func (l *Ledger) fetch(ctx context.Context, date models.Date) (models.DailyIntake, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	intake, err := l.backend.GetDailyTotals(ctx, date)
	if err != nil {
		err = Classify(err)
		if IsConnectivity(err) {
			l.markOffline()
		}
		return models.DailyIntake{}, err
	}
	return intake, nil
}

func (l *Ledger) confirm(id string) {
	l.mu.Lock()
	delete(l.outstanding, id)
	l.confirms++
	l.mu.Unlock()
}

func (l *Ledger) markOffline() {
	l.mu.Lock()
	l.online = false
	l.mu.Unlock()
}

func (l *Ledger) currentDate() models.Date {
	return models.DateOf(l.now().In(l.loc))
}

// rollDayLocked starts a new day's totals when the date changed.
func (l *Ledger) rollDayLocked() {
	d := l.currentDate()
	if d == l.today {
		return
	}
	l.today = d
	l.totals = l.outstandingSumLocked()
}

func (l *Ledger) outstandingSumLocked() models.Macros {
	var sum models.Macros
	for _, e := range l.outstanding {
		if e.Date == l.today {
			sum = sum.Add(e.Macros)
		}
	}
	return sum
}

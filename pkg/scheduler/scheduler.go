// Package scheduler refreshes the status of the whole fleet inside a daily
// operating window.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/log"
	"github.com/solarfleet/solarfleet/pkg/storage"
	"github.com/solarfleet/solarfleet/pkg/telemetry"
	"github.com/solarfleet/solarfleet/pkg/types"
	"github.com/solarfleet/solarfleet/pkg/vendor"
)

// Clock returns the current instant. Only the gate check consults it.
type Clock func() time.Time

// Adapters resolves a vendor tag to its adapter.
type Adapters interface {
	Adapter(tag string) (vendor.Adapter, error)
}

// RunResult summarizes one fleet refresh.
type RunResult struct {
	// Skipped is true when the run started outside the operating window or
	// another run was still in progress.
	Skipped bool `json:"skipped"`
	// Busy is true when the run was skipped because of another run.
	Busy      bool `json:"busy,omitempty"`
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Updated   int  `json:"updated"`
	Failed    int  `json:"failed"`
}

// Scheduler runs fleet refreshes.
type Scheduler struct {
	adapters Adapters
	db       storage.Database
	sink     telemetry.Sink
	now      Clock

	workers     int
	location    *time.Location
	windowStart time.Duration
	windowEnd   time.Duration
	interval    time.Duration

	// running is held for the whole of a Run
	running   sync.Mutex
	completed atomic.Int64
}

// New returns a Scheduler with the default window and worker count.
func New(adapters Adapters, db storage.Database, sink telemetry.Sink) *Scheduler {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.UTC
	}
	return &Scheduler{
		adapters:    adapters,
		db:          db,
		sink:        sink,
		now:         time.Now,
		workers:     5,
		location:    loc,
		windowStart: 5 * time.Hour,
		windowEnd:   19 * time.Hour,
		interval:    15 * time.Minute,
	}
}

// Configured returns a Scheduler whose settings come from flags.
func Configured(adapters Adapters, db storage.Database, sink telemetry.Sink) *Scheduler {
	s := New(adapters, db, sink)

	workers := lflag.Int("scheduler-workers", s.workers, "Number of plants polled concurrently")
	tz := lflag.String("scheduler-timezone", "America/Sao_Paulo", "IANA timezone the operating window is evaluated in")
	start := lflag.String("scheduler-window-start", "05:00", "Local time (HH:MM) polling may start")
	end := lflag.String("scheduler-window-end", "19:00", "Local time (HH:MM) polling must stop")
	interval := lflag.Duration("scheduler-interval", s.interval, "Time between fleet refreshes")

	lflag.Do(func() {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			panic(fmt.Sprintf("invalid scheduler-timezone %q: %v", *tz, err))
		}
		s.location = loc
		if s.windowStart, err = parseClock(*start); err != nil {
			panic(fmt.Sprintf("invalid scheduler-window-start: %v", err))
		}
		if s.windowEnd, err = parseClock(*end); err != nil {
			panic(fmt.Sprintf("invalid scheduler-window-end: %v", err))
		}
		if *workers < 1 {
			panic("scheduler-workers must be at least 1")
		}
		s.workers = *workers
		s.interval = *interval
	})
	return s
}

// parseClock parses HH:MM into an offset from midnight.
func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// SetClock replaces the clock used by the gate check.
func (s *Scheduler) SetClock(c Clock) {
	s.now = c
}

// SetWorkers changes the worker pool size.
func (s *Scheduler) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// SetWindow changes the operating window.
func (s *Scheduler) SetWindow(loc *time.Location, start, end time.Duration) {
	s.location = loc
	s.windowStart = start
	s.windowEnd = end
}

// Interval is the configured time between refreshes.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Completed is the number of plants finished in the current or last run.
func (s *Scheduler) Completed() int {
	return int(s.completed.Load())
}

// InWindow reports whether t falls inside the operating window, evaluated in
// the scheduler's timezone. The end is exclusive.
func (s *Scheduler) InWindow(t time.Time) bool {
	local := t.In(s.location)
	offset := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute + time.Duration(local.Second())*time.Second
	return offset >= s.windowStart && offset < s.windowEnd
}

// queue hands each plant to exactly one worker.
type queue struct {
	mu     sync.Mutex
	plants []types.Plant
}

func (q *queue) pop() (types.Plant, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.plants) == 0 {
		return types.Plant{}, false
	}
	p := q.plants[0]
	q.plants = q.plants[1:]
	return p, true
}

// Run performs one fleet refresh and returns once every plant was processed.
// Outside the operating window, or while another Run is in progress, it
// returns immediately with Skipped set.
func (s *Scheduler) Run(ctx context.Context) (RunResult, error) {
	if !s.running.TryLock() {
		log.Ctx(ctx).WarnContext(ctx, "fleet refresh already running, skipping")
		return RunResult{Skipped: true, Busy: true}, nil
	}
	defer s.running.Unlock()

	now := s.now()
	if !s.InWindow(now) {
		log.Ctx(ctx).DebugContext(ctx, "outside operating window, skipping refresh", slog.Time("now", now.In(s.location)))
		return RunResult{Skipped: true}, nil
	}

	plants, err := s.db.ListPlants(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to list plants: %w", err)
	}
	s.completed.Store(0)

	q := &queue{plants: plants}
	var updated, failed atomic.Int64
	var wg sync.WaitGroup
	for range min(s.workers, len(plants)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				p, ok := q.pop()
				if !ok {
					return
				}
				if err := s.processPlant(ctx, p); err != nil {
					failed.Add(1)
				} else {
					updated.Add(1)
				}
				s.completed.Add(1)
			}
		}()
	}
	wg.Wait()

	res := RunResult{
		Total:     len(plants),
		Completed: s.Completed(),
		Updated:   int(updated.Load()),
		Failed:    int(failed.Load()),
	}
	log.Ctx(ctx).InfoContext(ctx, "fleet refresh finished",
		slog.Int("total", res.Total),
		slog.Int("updated", res.Updated),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

// processPlant polls one plant. Errors and panics are logged here and
// returned so the caller can count them; they never reach other plants.
func (s *Scheduler) processPlant(ctx context.Context, p types.Plant) (err error) {
	ctx = log.WithPlant(ctx, p.ID, p.Vendor)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while polling plant: %v", r)
		}
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to refresh plant", slog.Any("error", err))
		}
	}()

	a, err := s.adapters.Adapter(p.Vendor)
	if err != nil {
		return err
	}
	snap, err := vendor.Poll(ctx, a, p.Credentials)
	if err != nil {
		return err
	}

	if snap.Status == types.StatusError && p.Status != types.StatusError {
		if err := s.alert(ctx, p); err != nil {
			// the status update still goes through
			log.Ctx(ctx).WarnContext(ctx, "failed to create error alert", slog.Any("error", err))
		}
	}

	at := s.now().UTC()
	update := types.PlantUpdate{
		Status:    snap.Status,
		ETotal:    snap.Energy.TotalKWH,
		UpdatedAt: at,
	}
	if err := s.db.UpdatePlantStatus(ctx, p.ID, update); err != nil {
		return fmt.Errorf("failed to persist plant status: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "plant refreshed", slog.String("status", snap.Status.String()))

	if s.sink != nil {
		if err := s.sink.Record(ctx, p, snap, at); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to record telemetry", slog.Any("error", err))
		}
	}
	return nil
}

// AlertMessage is the notification text for a plant entering the error state.
func AlertMessage(p types.Plant) string {
	code := p.PublicCode
	if code == "" {
		code = p.ID
	}
	return fmt.Sprintf("Plant %s reported an error", code)
}

// alert notifies the plant owner unless an identical unread alert exists.
func (s *Scheduler) alert(ctx context.Context, p types.Plant) error {
	if p.OwnerID == "" {
		return errors.New("plant has no owner")
	}
	msg := AlertMessage(p)
	existing, err := s.db.FindUnreadNotification(ctx, p.OwnerID, msg)
	if err != nil {
		return fmt.Errorf("failed to look up unread alert: %w", err)
	}
	if existing != nil {
		return nil
	}
	n, err := s.db.CreateNotification(ctx, p.OwnerID, msg)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "created error alert", slog.String("notificationID", n.ID))
	return nil
}

// Loop runs a refresh every interval until ctx is done. A failed run is
// logged and the loop continues.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "fleet refresh failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

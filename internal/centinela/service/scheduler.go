package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

// Scheduler fires daily tasks on a fixed polling tick.  A task fires when
// its HH:MM equals the current wall-clock minute; a minute missed because
// the process was down or a tick was delayed is never fired retroactively.
// This is a deliberate simplicity trade-off: at-most-once best-effort
// delivery with minute granularity, no catch-up.
type Scheduler struct {
	tasks  store.TaskStore
	events store.SecurityEventStore
	exec   *Executor
	guard  *Guard
	cfg    *config.Store
	logger *log.Logger

	now func() time.Time

	// ticking guards against overlapping ticks: a tick that is still
	// dispatching when the next one is due causes the next to be skipped,
	// bounding concurrent command fan-out.
	ticking atomic.Bool

	mu       sync.Mutex
	firedDay map[int64]string // task id -> local calendar day last fired

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(tasks store.TaskStore, es store.SecurityEventStore, exec *Executor, guard *Guard, cfg *config.Store, logger *log.Logger) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		events:   es,
		exec:     exec,
		guard:    guard,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		firedDay: make(map[int64]string),
		done:     make(chan struct{}),
	}
}

// Schedule creates a daily task firing at hour:minute.  The command is not
// validated against the whitelist here — the whitelist is enforced at
// execution time — but the returned bool reports whether it is currently
// whitelisted so callers can warn the operator.
func (s *Scheduler) Schedule(ctx context.Context, ownerID int64, command string, hour, minute int) (store.ScheduledTask, bool, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return store.ScheduledTask{}, false, ErrInvalidSchedule
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return store.ScheduledTask{}, false, ErrInvalidSchedule
	}

	t := store.ScheduledTask{
		OwnerID:    ownerID,
		Command:    command,
		FireHour:   hour,
		FireMinute: minute,
		Frequency:  store.FrequencyDaily,
		CreatedAt:  s.now().UTC(),
	}
	id, err := s.tasks.Create(ctx, t)
	if err != nil {
		return store.ScheduledTask{}, false, fmt.Errorf("create task: %w", err)
	}
	t.ID = id
	t.Active = true

	recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
		Type:        store.EventTaskScheduled,
		Description: fmt.Sprintf("task %d: %q daily at %02d:%02d", id, command, hour, minute),
		ActorID:     &ownerID,
	})

	whitelisted := s.guard.Allowed(command)
	if !whitelisted {
		s.logger.Printf("task %d command %q is not currently whitelisted; it will be rejected when it fires", id, command)
	}
	return t, whitelisted, nil
}

// Cancel deactivates a task.  Only the owner may cancel; cancelling an
// unknown or already-cancelled id reports store.ErrTaskNotFound (repeated
// cancels are not treated as a silent no-op, so a mistyped id is visible to
// the operator).
func (s *Scheduler) Cancel(ctx context.Context, taskID, requesterID int64) error {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !t.Active {
		return store.ErrTaskNotFound
	}
	if t.OwnerID != requesterID {
		return ErrTaskOwnershipMismatch
	}

	if err := s.tasks.Deactivate(ctx, taskID); err != nil {
		return err
	}
	recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
		Type:        store.EventTaskCancelled,
		Description: fmt.Sprintf("task %d (%s) cancelled", taskID, t.Command),
		ActorID:     &requesterID,
	})
	return nil
}

// ListActive returns all active tasks.
func (s *Scheduler) ListActive(ctx context.Context) ([]store.ScheduledTask, error) {
	return s.tasks.ListActive(ctx)
}

// Start begins the background tick loop.  An immediate tick runs on
// startup so tasks due in the current minute fire after a restart.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.logger.Printf("scheduler started (tick=%s)", s.cfg.Snapshot().TickInterval())
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.RunTick(ctx, s.now())

	ticker := time.NewTicker(s.cfg.Snapshot().TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunTick(ctx, s.now())
		}
	}
}

// RunTick evaluates all active tasks against now and fires the due ones.
// It is the loop body, exposed so tests can drive simulated time.  A store
// failure fails this tick only; the loop is unaffected.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Printf("previous tick still dispatching, skipping")
		return
	}
	defer s.ticking.Store(false)

	tasks, err := s.tasks.ListActive(ctx)
	if err != nil {
		s.logger.Printf("tick: list tasks: %v", err)
		return
	}

	day := now.Format("2006-01-02")
	for _, t := range tasks {
		if t.FireHour != now.Hour() || t.FireMinute != now.Minute() {
			continue
		}
		if s.alreadyFired(t, now, day) {
			continue
		}
		s.fire(ctx, t, now, day)
	}
}

// alreadyFired enforces at-most-once-per-day across sub-minute ticks (the
// in-memory mark) and across restarts (the persisted last firing).
func (s *Scheduler) alreadyFired(t store.ScheduledTask, now time.Time, day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.firedDay[t.ID] == day {
		return true
	}
	if t.LastFiredAt != nil && t.LastFiredAt.In(now.Location()).Format("2006-01-02") == day {
		return true
	}
	return false
}

func (s *Scheduler) fire(ctx context.Context, t store.ScheduledTask, now time.Time, day string) {
	s.mu.Lock()
	s.firedDay[t.ID] = day
	s.mu.Unlock()

	if err := s.tasks.MarkFired(ctx, t.ID, now); err != nil {
		s.logger.Printf("task %d: mark fired: %v", t.ID, err)
	}

	res, err := s.exec.Execute(ctx, ExecRequest{Command: t.Command, Actor: &t.OwnerID})

	// A failing or rejected command does not cancel the task; it stays
	// active and is eligible again tomorrow.
	switch {
	case err != nil:
		recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
			Type:        store.EventTaskFailed,
			Description: fmt.Sprintf("task %d (%s): %v", t.ID, t.Command, err),
			ActorID:     &t.OwnerID,
		})
	case res.TimedOut:
		recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
			Type:        store.EventTaskFailed,
			Description: fmt.Sprintf("task %d (%s): timed out", t.ID, t.Command),
			ActorID:     &t.OwnerID,
		})
	case res.ExitCode != 0:
		recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
			Type:        store.EventTaskFailed,
			Description: fmt.Sprintf("task %d (%s): exit=%d", t.ID, t.Command, res.ExitCode),
			ActorID:     &t.OwnerID,
		})
	default:
		recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
			Type:        store.EventTaskFired,
			Description: fmt.Sprintf("task %d (%s): %s", t.ID, t.Command, strings.TrimSpace(res.Stdout)),
			ActorID:     &t.OwnerID,
		})
	}
}

// Package monitor implements the Class Monitor (spec.md §4.1): it polls the
// operational store for classes that have ended but not yet been
// dispatched, sends the webhook exactly once per class, and flips the
// dispatch flag via CAS.
//
// Grounded on the teacher's pkg/queue.Worker run loop: select on a stop
// channel/context cancellation/default-poll, with jittered sleep between
// empty polls (pkg/queue/worker.go's run/pollInterval), generalized here
// from a single worker pulling one session to a single loop pulling a batch
// of candidate classes per tick.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tulkka/lessonpipe/pkg/dispatch"
	"github.com/tulkka/lessonpipe/pkg/opstore"
)

// Store is the subset of opstore.Store the monitor depends on.
type Store interface {
	ListEndedUndispatched(ctx context.Context, limit int) ([]opstore.Class, error)
	MarkDispatched(ctx context.Context, classID string) error
	TeacherEmail(ctx context.Context, teacherID string) (string, error)
}

// Dispatcher is the subset of dispatch.Client the monitor depends on.
type Dispatcher interface {
	Send(ctx context.Context, payload dispatch.Payload, idempotencyKey string) dispatch.Result
}

// Config controls the monitor's poll cadence and batch size.
type Config struct {
	PollInterval       time.Duration
	PollIntervalJitter time.Duration
	BatchSize          int
}

// Monitor runs the Class Monitor poll loop in its own goroutine.
type Monitor struct {
	store      Store
	dispatcher Dispatcher
	cfg        Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a Monitor.
func New(store Store, dispatcher Dispatcher, cfg Config) *Monitor {
	return &Monitor{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the poll loop in a goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop signals the loop to stop and waits for it to finish. Safe to call
// more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	log := slog.With("component", "monitor")
	log.Info("class monitor started")

	for {
		select {
		case <-m.stopCh:
			log.Info("class monitor shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, class monitor shutting down")
			return
		default:
			dispatched, err := m.pollOnce(ctx)
			if err != nil {
				log.Error("poll failed", "error", err)
				m.sleep(time.Second)
				continue
			}
			if dispatched == 0 {
				m.sleep(m.pollInterval())
			}
		}
	}
}

func (m *Monitor) sleep(d time.Duration) {
	select {
	case <-m.stopCh:
	case <-time.After(d):
	}
}

// pollOnce lists ended-undispatched classes, dispatches each, and returns how
// many were successfully dispatched. Each class is handled independently so
// one failure does not block the rest of the batch.
func (m *Monitor) pollOnce(ctx context.Context) (int, error) {
	classes, err := m.store.ListEndedUndispatched(ctx, m.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var dispatched int
	for _, class := range classes {
		if m.dispatchOne(ctx, class) {
			dispatched++
		}
	}
	return dispatched, nil
}

func (m *Monitor) dispatchOne(ctx context.Context, class opstore.Class) bool {
	log := slog.With("class_id", class.ClassID)

	teacherEmail, err := m.store.TeacherEmail(ctx, class.TeacherID)
	if err != nil {
		log.Error("resolving teacher email", "error", err)
		return false
	}

	result := m.dispatcher.Send(ctx, dispatch.Payload{
		UserID:       class.StudentID,
		TeacherID:    class.TeacherID,
		ClassID:      class.ClassID,
		Date:         class.MeetingStart.Format("2006-01-02"),
		StartTime:    class.MeetingStart.Format("15:04"),
		EndTime:      class.MeetingEnd.Format("15:04"),
		TeacherEmail: teacherEmail,
	}, class.ClassID)

	switch result.Outcome {
	case dispatch.Success:
		if err := m.store.MarkDispatched(ctx, class.ClassID); err != nil {
			if errors.Is(err, opstore.ErrAlreadyDispatched) {
				log.Info("class already dispatched by another monitor instance")
				return false
			}
			log.Error("marking class dispatched", "error", err)
			return false
		}
		log.Info("class dispatched")
		return true
	case dispatch.Retryable:
		log.Warn("dispatch failed, will retry next poll", "status", result.StatusCode, "error", result.Err)
		return false
	default: // dispatch.Permanent
		// Leave ai_triggered unset: a payload the receiver has permanently
		// rejected needs operator attention, not silent suppression of
		// future retries (spec.md §4.1 step 5, §7).
		log.Error("dispatch permanently rejected, leaving class undispatched for investigation",
			"status", result.StatusCode, "error", result.Err)
		return false
	}
}

// pollInterval returns the poll duration with jitter, matching the
// teacher's pkg/queue.Worker.pollInterval: a uniform offset in
// [base-jitter, base+jitter], desynchronizing multiple monitor instances
// (spec.md §5).
func (m *Monitor) pollInterval() time.Duration {
	base := m.cfg.PollInterval
	jitter := m.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// Package worker implements the Transcript Worker (spec.md §4.3): it polls
// the analytical store for ready transcripts, claims one via the lease/CAS
// protocol, runs the Exercise Engine over it, and writes the resulting
// exercise set back.
//
// Grounded on the teacher's pkg/queue.Worker.run/pollAndProcess loop shape
// (select on stop channel/context/default-poll, jittered sleep between
// empty polls) and pkg/queue/orphan.go's stale-lease reclaim rule — here
// folded into anastore.Store.ClaimNext's single atomic FindOneAndUpdate
// rather than a separate periodic scan, since Mongo's filter can express
// "ready OR lease expired" directly (see DESIGN.md).
package worker

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tulkka/lessonpipe/pkg/anastore"
)

// Store is the subset of anastore.Store the worker depends on.
type Store interface {
	ClaimNext(ctx context.Context, workerID string, leaseDuration time.Duration) (anastore.TranscriptArtifact, error)
	CompleteTranscript(ctx context.Context, id bson.ObjectID, workerID string) error
	FailTranscript(ctx context.Context, id bson.ObjectID, workerID, lastError string, attempts, maxRetries int) error
	FailTranscriptPermanently(ctx context.Context, id bson.ObjectID, workerID, lastError string) error
	UpsertExerciseSet(ctx context.Context, set anastore.ExerciseSet) error
}

// Engine is the subset of engine.Engine the worker depends on.
type Engine interface {
	Generate(ctx context.Context, classID, summaryID, transcript string) anastore.ExerciseSet
}

// Config controls the worker's identity, poll cadence, lease duration, and
// retry budget (spec.md §4.3, §6.3).
type Config struct {
	WorkerID           string
	PollInterval       time.Duration
	PollIntervalJitter time.Duration
	LeaseDuration      time.Duration
	MaxRetries         int
	MinTranscriptChars int
}

// Worker runs the Transcript Worker poll loop in its own goroutine.
type Worker struct {
	store  Store
	engine Engine
	cfg    Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a Worker.
func New(store Store, engine Engine, cfg Config) *Worker {
	return &Worker{
		store:  store,
		engine: engine,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Start begins the poll loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the loop to stop and waits for it to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("component", "worker", "worker_id", w.cfg.WorkerID)
	log.Info("transcript worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("transcript worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, transcript worker shutting down")
			return
		default:
			processed, err := w.pollAndProcess(ctx)
			switch {
			case err == nil && !processed:
				w.sleep(w.pollInterval())
			case err != nil && !errors.Is(err, anastore.ErrNoClaimable):
				log.Error("poll failed", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims one transcript and processes it. The bool result
// reports whether a transcript was claimed (so run() knows whether to
// sleep before the next attempt).
func (w *Worker) pollAndProcess(ctx context.Context) (bool, error) {
	artifact, err := w.store.ClaimNext(ctx, w.cfg.WorkerID, w.cfg.LeaseDuration)
	if err != nil {
		if errors.Is(err, anastore.ErrNoClaimable) {
			return false, nil
		}
		return false, err
	}

	log := slog.With("class_id", artifact.ClassID, "worker_id", w.cfg.WorkerID)

	if len(artifact.Text) < w.cfg.MinTranscriptChars {
		log.Warn("transcript too short, failing permanently", "length", len(artifact.Text))
		if failErr := w.store.FailTranscriptPermanently(ctx, artifact.ID, w.cfg.WorkerID, "transcript missing or too short"); failErr != nil {
			log.Error("recording permanent failure", "error", failErr)
		}
		return true, nil
	}

	set := w.engine.Generate(ctx, artifact.ClassID, artifact.ID.Hex(), artifact.Text)
	set.UserID = artifact.UserID
	set.TeacherID = artifact.TeacherID
	if err := w.store.UpsertExerciseSet(ctx, set); err != nil {
		log.Error("writing exercise set", "error", err)
		if failErr := w.store.FailTranscript(ctx, artifact.ID, w.cfg.WorkerID, err.Error(), artifact.Attempts, w.cfg.MaxRetries); failErr != nil {
			log.Error("recording failure", "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteTranscript(ctx, artifact.ID, w.cfg.WorkerID); err != nil {
		log.Error("marking transcript complete", "error", err)
		return true, nil
	}

	log.Info("transcript processed", "counts", set.Counts, "quality_score", set.Metadata.QualityScore)
	return true, nil
}

// pollInterval returns the poll duration with jitter, matching the
// teacher's pkg/queue.Worker.pollInterval.
func (w *Worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

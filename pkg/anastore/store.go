// Package anastore is the typed gateway to the analytical store: the
// document database holding TranscriptArtifact and ExerciseSet documents
// (spec.md §3). Keeping this on a different engine than the operational
// store (see pkg/opstore) makes the "no distributed transaction across
// stores" design note a physical property rather than just a logical one.
//
// Grounded on the goadesign-goa-ai example's mongo client package
// (features/run/mongo/clients/mongo/client.go): a thin Options/New
// constructor around a shared *mongo.Client, with index creation folded
// into construction.
package anastore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	transcriptsCollection = "transcript_artifacts"
	exercisesCollection   = "exercise_sets"
	defaultOpTimeout      = 10 * time.Second
)

// Store is the typed gateway over the analytical store's collections.
type Store struct {
	client      *mongo.Client
	transcripts *mongo.Collection
	exercises   *mongo.Collection
	timeout     time.Duration
}

// Open connects to MongoDB, ensures indexes exist, and returns a ready Store.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("anastore: empty URI")
	}
	if database == "" {
		database = "lessonpipe"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(database)
	s := &Store{
		client:      client,
		transcripts: db.Collection(transcriptsCollection),
		exercises:   db.Collection(exercisesCollection),
		timeout:     defaultOpTimeout,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	// Uniqueness guard on (class_id, date, start_time) — spec.md §3's
	// business key for a class meeting, not class_id alone, so a
	// rescheduled class on the same day is a distinct artifact.
	_, err := s.transcripts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "class_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start_time", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	// Backs the Transcript Worker's claim query (status=ready, ordered by
	// arrival) and the stale-lease reclaim scan (spec.md §4.3).
	_, err = s.transcripts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "received_at", Value: 1}},
	})
	if err != nil {
		return err
	}

	// One ExerciseSet per summary_id (spec.md §3 foreign key).
	_, err = s.exercises.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "summary_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	// Backs GET /v1/exercises?class_id=&user_id= (spec.md §4.5), newest
	// first.
	_, err = s.exercises.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "class_id", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "generated_at", Value: -1},
		},
	})
	return err
}

// Close disconnects the underlying Mongo client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks connectivity for the /health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

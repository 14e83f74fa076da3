package anastore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TranscriptStatus is the Transcript Worker's claim/lease state machine
// (spec.md §4.3): a transcript starts ready, gets claimed by exactly one
// worker for the lease window, and ends completed or failed. A claim whose
// lease expires before the worker finishes becomes reclaimable again. A
// transcript that fails the MIN_TRANSCRIPT_CHARS gate (spec.md §4.3 step 1,
// §8 S4) goes straight from claimed to failed without ever reaching the
// engine.
type TranscriptStatus string

const (
	TranscriptReady     TranscriptStatus = "ready"
	TranscriptClaimed   TranscriptStatus = "claimed"
	TranscriptCompleted TranscriptStatus = "completed"
	TranscriptFailed    TranscriptStatus = "failed"
)

// TranscriptInput is the set of caller-supplied fields for a newly-received
// transcript (spec.md §4.5/§6.1's trigger payload).
type TranscriptInput struct {
	UserID       string
	TeacherID    string
	ClassID      string
	TeacherEmail string
	Date         string
	StartTime    string
	EndTime      string
	Text         string
	ReceivedAt   time.Time
}

// TranscriptArtifact is the analytical store's document for a class's raw
// transcript (spec.md §3). Its business key is (class_id, date, start_time),
// not class_id alone, so a rescheduled class on the same day gets its own
// row.
type TranscriptArtifact struct {
	ID               bson.ObjectID    `bson:"_id,omitempty"`
	UserID           string           `bson:"user_id"`
	TeacherID        string           `bson:"teacher_id"`
	ClassID          string           `bson:"class_id"`
	TeacherEmail     string           `bson:"teacher_email,omitempty"`
	Date             string           `bson:"date"`
	StartTime        string           `bson:"start_time"`
	EndTime          string           `bson:"end_time"`
	Text             string           `bson:"text"`
	TranscriptLength int              `bson:"transcript_length"`
	ReceivedAt       time.Time        `bson:"received_at"`
	Status           TranscriptStatus `bson:"status"`
	ClaimedBy        string           `bson:"claimed_by,omitempty"`
	LeaseExpires     time.Time        `bson:"lease_expires,omitzero"`
	Attempts         int              `bson:"attempts"`
	LastError        string           `bson:"last_error,omitempty"`
	ProcessedAt      time.Time        `bson:"processed_at,omitzero"`
}

// InsertTranscript stores a newly-received transcript in the ready state.
// The unique index on (class_id, date, start_time) turns a second delivery
// for the same class meeting into ErrDuplicate, returning the existing
// document so the caller (the idempotent POST /v1/trigger handler) can
// decide whether the duplicate is compatible (spec.md §4.3 "duplicate
// guard", §4.5 "409 on an incompatible duplicate trigger").
func (s *Store) InsertTranscript(ctx context.Context, in TranscriptInput) (TranscriptArtifact, error) {
	doc := TranscriptArtifact{
		UserID:           in.UserID,
		TeacherID:        in.TeacherID,
		ClassID:          in.ClassID,
		TeacherEmail:     in.TeacherEmail,
		Date:             in.Date,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		Text:             in.Text,
		TranscriptLength: len(in.Text),
		ReceivedAt:       in.ReceivedAt,
		Status:           TranscriptReady,
	}

	res, err := s.transcripts.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		existing, getErr := s.GetTranscriptByBusinessKey(ctx, in.ClassID, in.Date, in.StartTime)
		if getErr != nil {
			return TranscriptArtifact{}, getErr
		}
		return existing, ErrDuplicate
	}
	if err != nil {
		return TranscriptArtifact{}, err
	}
	doc.ID = res.InsertedID.(bson.ObjectID)
	return doc, nil
}

// ClaimNext atomically claims the oldest ready-or-stale-leased transcript
// for workerID, extending its lease to now+leaseDuration. The filter and
// update run as a single FindOneAndUpdate, Mongo's equivalent of the
// operational store's conditional UPDATE (spec.md §9 "CAS, not distributed
// locks"): only one caller can win the document for a given lease window,
// exactly like the Aetheris queue's `FOR UPDATE SKIP LOCKED` claim.
func (s *Store) ClaimNext(ctx context.Context, workerID string, leaseDuration time.Duration) (TranscriptArtifact, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"$or": []bson.M{
			{"status": TranscriptReady},
			{"status": TranscriptClaimed, "lease_expires": bson.M{"$lt": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":        TranscriptClaimed,
			"claimed_by":    workerID,
			"lease_expires": now.Add(leaseDuration),
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "received_at", Value: 1}}).
		SetReturnDocument(options.After)

	var out TranscriptArtifact
	err := s.transcripts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return TranscriptArtifact{}, ErrNoClaimable
	}
	return out, err
}

// CompleteTranscript marks a claimed transcript as completed, conditioned
// on the caller still holding the claim (claimed_by matches), so a worker
// whose lease already expired and was reclaimed by someone else cannot
// stomp on the new owner's work.
func (s *Store) CompleteTranscript(ctx context.Context, id bson.ObjectID, workerID string) error {
	res, err := s.transcripts.UpdateOne(ctx,
		bson.M{"_id": id, "claimed_by": workerID},
		bson.M{"$set": bson.M{"status": TranscriptCompleted, "processed_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentClaim
	}
	return nil
}

// FailTranscript records a processing failure. If attempts has not reached
// maxRetries the transcript is returned to ready so it can be reclaimed
// immediately rather than waiting out its lease (spec.md §4.3 retry rule).
func (s *Store) FailTranscript(ctx context.Context, id bson.ObjectID, workerID, lastError string, attempts, maxRetries int) error {
	status := TranscriptReady
	if attempts >= maxRetries {
		status = TranscriptFailed
	}
	res, err := s.transcripts.UpdateOne(ctx,
		bson.M{"_id": id, "claimed_by": workerID},
		bson.M{"$set": bson.M{"status": status, "last_error": lastError}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentClaim
	}
	return nil
}

// FailTranscriptPermanently moves a claimed transcript straight to failed,
// bypassing the retry budget entirely. This is the terminal path for a
// data-validity fault the retry loop could never fix — a transcript too
// short to generate anything from (spec.md §4.3 step 1, §8 S4: "engine is
// not invoked; row transitions directly to failed; no ExerciseSet
// created").
func (s *Store) FailTranscriptPermanently(ctx context.Context, id bson.ObjectID, workerID, lastError string) error {
	res, err := s.transcripts.UpdateOne(ctx,
		bson.M{"_id": id, "claimed_by": workerID},
		bson.M{"$set": bson.M{"status": TranscriptFailed, "last_error": lastError}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentClaim
	}
	return nil
}

// GetTranscriptByID fetches a transcript artifact by its summary_id, used
// by the Trigger & Read HTTP surface's status lookups (spec.md §4.5
// GET /v1/lesson-status/{summary_id}).
func (s *Store) GetTranscriptByID(ctx context.Context, summaryID string) (TranscriptArtifact, error) {
	oid, err := bson.ObjectIDFromHex(summaryID)
	if err != nil {
		return TranscriptArtifact{}, ErrNotFound
	}
	var out TranscriptArtifact
	err = s.transcripts.FindOne(ctx, bson.M{"_id": oid}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return TranscriptArtifact{}, ErrNotFound
	}
	return out, err
}

// GetTranscriptByBusinessKey fetches a transcript by its (class_id, date,
// start_time) business key, used to resolve a duplicate POST /v1/trigger
// back to the row it collided with.
func (s *Store) GetTranscriptByBusinessKey(ctx context.Context, classID, date, startTime string) (TranscriptArtifact, error) {
	var out TranscriptArtifact
	err := s.transcripts.FindOne(ctx, bson.M{"class_id": classID, "date": date, "start_time": startTime}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return TranscriptArtifact{}, ErrNotFound
	}
	return out, err
}

package anastore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ExerciseSetStatus is the review workflow state for a generated set
// (spec.md §3): a set starts pending_approval and only ever moves to
// approved or rejected through an external review action, never through the
// engine itself.
type ExerciseSetStatus string

const (
	ExerciseSetPendingApproval ExerciseSetStatus = "pending_approval"
	ExerciseSetApproved        ExerciseSetStatus = "approved"
	ExerciseSetRejected        ExerciseSetStatus = "rejected"
)

// Flashcard pairs a vocabulary word with its translation and an anchoring
// example sentence drawn straight from the transcript (spec.md §4.4 stage
// "Build").
type Flashcard struct {
	Word            string `bson:"word"`
	Translation     string `bson:"translation,omitempty"`
	ExampleSentence string `bson:"example_sentence"`
	Category        string `bson:"category,omitempty"`
	Difficulty      string `bson:"difficulty"`
	Source          string `bson:"source"`
}

// Cloze is a fill-in-the-blank item with a closed four-option answer set —
// this is the closed schema spec.md §9 calls for in place of a generic
// prompt/answer pair with a runtime-attached options field.
type Cloze struct {
	Prompt       string   `bson:"prompt"`
	Options      []string `bson:"options"`
	CorrectIndex int      `bson:"correct_index"`
	Explanation  string   `bson:"explanation,omitempty"`
	Source       string   `bson:"source"`
}

// Grammar is a multiple-choice item built from a detected learner mistake.
type Grammar struct {
	Prompt       string   `bson:"prompt"`
	Options      []string `bson:"options"`
	CorrectIndex int      `bson:"correct_index"`
	Explanation  string   `bson:"explanation,omitempty"`
	Source       string   `bson:"source"`
}

// SentenceBuilder asks the student to reconstruct a transcript sentence
// from its scrambled tokens.
type SentenceBuilder struct {
	EnglishSentence string   `bson:"english_sentence"`
	SentenceTokens  []string `bson:"sentence_tokens"`
	Distractors     []string `bson:"distractors,omitempty"`
	Translation     string   `bson:"translation,omitempty"`
	Source          string   `bson:"source"`
}

// ExerciseSetMetadata is the engine's own assessment of what it produced,
// kept in a dedicated sub-document rather than attached to individual
// exercise items (spec.md §4.4 stage "Score", §9).
type ExerciseSetMetadata struct {
	QualityPassed      bool   `bson:"quality_passed"`
	QualityScore       int    `bson:"quality_score"`
	VocabularyCount    int    `bson:"vocabulary_count"`
	SentencesCount     int    `bson:"sentences_count"`
	TranslationPresent bool   `bson:"translation_present"`
	FlashcardSource    string `bson:"flashcard_source"`
	ClozeSource        string `bson:"cloze_source"`
	GrammarSource      string `bson:"grammar_source"`
	SentenceSource     string `bson:"sentence_source"`
}

// ExerciseSet is the analytical store's document for a class's generated
// exercise bundle (spec.md §3), keyed by the summary_id of the
// TranscriptArtifact it was generated from. class_id/user_id/teacher_id are
// denormalized onto the set so GET /v1/exercises can filter without a join.
type ExerciseSet struct {
	ID          bson.ObjectID     `bson:"_id,omitempty"`
	SummaryID   string            `bson:"summary_id"`
	UserID      string            `bson:"user_id"`
	TeacherID   string            `bson:"teacher_id"`
	ClassID     string            `bson:"class_id"`
	GeneratedAt time.Time         `bson:"generated_at"`
	Flashcards  []Flashcard       `bson:"flashcards"`
	Cloze       []Cloze           `bson:"cloze"`
	Grammar     []Grammar         `bson:"grammar"`
	Sentence    []SentenceBuilder `bson:"sentence"`
	Counts      map[string]int    `bson:"counts"`
	Metadata    ExerciseSetMetadata `bson:"metadata"`
	Status      ExerciseSetStatus   `bson:"status"`
}

// UpsertExerciseSet stores the engine's output, replacing any prior set for
// the summary_id (a failed-and-retried transcript regenerates its
// exercises). Sets default to pending_approval so a reviewer's prior
// approve/reject decision on a regenerated set isn't silently inherited.
func (s *Store) UpsertExerciseSet(ctx context.Context, set ExerciseSet) error {
	if set.Status == "" {
		set.Status = ExerciseSetPendingApproval
	}
	_, err := s.exercises.ReplaceOne(ctx,
		bson.M{"summary_id": set.SummaryID},
		set,
		options.Replace().SetUpsert(true),
	)
	return err
}

// GetExerciseSetBySummaryID fetches the exercise set generated from a given
// transcript, used by GET /v1/lesson-status/{summary_id} to report
// exercises_generated/exercises_id.
func (s *Store) GetExerciseSetBySummaryID(ctx context.Context, summaryID string) (ExerciseSet, error) {
	var out ExerciseSet
	err := s.exercises.FindOne(ctx, bson.M{"summary_id": summaryID}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return ExerciseSet{}, ErrNotFound
	}
	return out, err
}

// ListExerciseSets serves GET /v1/exercises?class_id=&user_id= (spec.md
// §4.5): zero or more sets for a class, newest first, optionally narrowed
// to one user.
func (s *Store) ListExerciseSets(ctx context.Context, classID, userID string) ([]ExerciseSet, error) {
	filter := bson.M{"class_id": classID}
	if userID != "" {
		filter["user_id"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "generated_at", Value: -1}})

	cur, err := s.exercises.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []ExerciseSet{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package anastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tulkka/lessonpipe/pkg/anastore"
)

// newTestStore boots a disposable MongoDB container per test. pkg/opstore's
// tests instead share one Postgres container per package with a schema per
// test (test/util); both use testcontainers-go for isolation.
func newTestStore(t *testing.T) *anastore.Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := "mongodb://" + host + ":" + port.Port()
	store, err := anastore.Open(ctx, uri, "lessonpipe_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	return store
}

func sampleInput(classID string) anastore.TranscriptInput {
	return anastore.TranscriptInput{
		UserID: "user-1", TeacherID: "teacher-1", ClassID: classID,
		Date: "2026-07-31", StartTime: "17:00", EndTime: "17:30",
		Text: "hello world", ReceivedAt: time.Now().UTC(),
	}
}

func TestInsertAndClaimTranscript(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.InsertTranscript(ctx, sampleInput("class-1"))
	require.NoError(t, err)

	dup := sampleInput("class-1")
	dup.Text = "duplicate delivery"
	existing, err := store.InsertTranscript(ctx, dup)
	assert.ErrorIs(t, err, anastore.ErrDuplicate)
	assert.Equal(t, first.ID, existing.ID)

	artifact, err := store.ClaimNext(ctx, "worker-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "class-1", artifact.ClassID)
	assert.Equal(t, anastore.TranscriptClaimed, artifact.Status)
	assert.Equal(t, 1, artifact.Attempts)

	_, err = store.ClaimNext(ctx, "worker-b", time.Minute)
	assert.ErrorIs(t, err, anastore.ErrNoClaimable)

	require.NoError(t, store.CompleteTranscript(ctx, artifact.ID, "worker-a"))

	err = store.CompleteTranscript(ctx, artifact.ID, "worker-b")
	assert.ErrorIs(t, err, anastore.ErrConcurrentClaim)
}

func TestFailTranscriptRetriesThenFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertTranscript(ctx, sampleInput("class-2"))
	require.NoError(t, err)
	artifact, err := store.ClaimNext(ctx, "worker-a", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.FailTranscript(ctx, artifact.ID, "worker-a", "boom", 1, 5))

	reclaimed, err := store.ClaimNext(ctx, "worker-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, anastore.TranscriptClaimed, reclaimed.Status)

	require.NoError(t, store.FailTranscript(ctx, reclaimed.ID, "worker-b", "boom again", 5, 5))

	final, err := store.GetTranscriptByID(ctx, inserted.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, anastore.TranscriptFailed, final.Status)
}

func TestFailTranscriptPermanently(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertTranscript(ctx, sampleInput("class-2b"))
	require.NoError(t, err)
	artifact, err := store.ClaimNext(ctx, "worker-a", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.FailTranscriptPermanently(ctx, artifact.ID, "worker-a", "transcript missing or too short"))

	final, err := store.GetTranscriptByID(ctx, inserted.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, anastore.TranscriptFailed, final.Status)
	assert.Equal(t, "transcript missing or too short", final.LastError)
}

func TestExerciseSetUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	set := anastore.ExerciseSet{
		ClassID:     "class-3",
		SummaryID:   "summary-3",
		UserID:      "user-1",
		GeneratedAt: time.Now().UTC(),
		Flashcards: []anastore.Flashcard{
			{Word: "dog", Translation: "perro", ExampleSentence: "The dog barks.", Difficulty: "basic", Source: "heuristic"},
		},
		Counts:   map[string]int{"flashcards": 1},
		Metadata: anastore.ExerciseSetMetadata{QualityScore: 80},
	}
	require.NoError(t, store.UpsertExerciseSet(ctx, set))

	got, err := store.GetExerciseSetBySummaryID(ctx, "summary-3")
	require.NoError(t, err)
	assert.Equal(t, 80, got.Metadata.QualityScore)
	require.Len(t, got.Flashcards, 1)
	assert.Equal(t, "perro", got.Flashcards[0].Translation)
	assert.Equal(t, anastore.ExerciseSetPendingApproval, got.Status)

	_, err = store.GetExerciseSetBySummaryID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, anastore.ErrNotFound)

	list, err := store.ListExerciseSets(ctx, "class-3", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "summary-3", list[0].SummaryID)

	empty, err := store.ListExerciseSets(ctx, "class-3", "someone-else")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

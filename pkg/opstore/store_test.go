package opstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulkka/lessonpipe/pkg/opstore"
	"github.com/tulkka/lessonpipe/test/util"
)

// testEnv pairs a migrated opstore.Store with a raw seeding pool against the
// same schema-scoped connection, using the teacher's shared-container /
// per-test-schema pattern (test/util.NewOpStoreWithDSN) instead of spinning
// a full Postgres container per test.
type testEnv struct {
	store    *opstore.Store
	seedPool *pgxpool.Pool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, dsn := util.NewOpStoreWithDSN(t)

	seedPool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(seedPool.Close)

	return &testEnv{store: store, seedPool: seedPool}
}

func (e *testEnv) seedClass(t *testing.T, classID string, ended bool, triggered bool) {
	t.Helper()
	status := "scheduled"
	if ended {
		status = "ended"
	}
	_, err := e.seedPool.Exec(context.Background(), `
		INSERT INTO classes (class_id, status, meeting_start, meeting_end, zoom_id,
		                      student_id, teacher_id, ai_triggered)
		VALUES ($1, $2, now() - interval '1 hour', now(), 'zoom-1', 'student-1', 'teacher-1', $3)
	`, classID, status, triggered)
	require.NoError(t, err)
}

func TestListEndedUndispatched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	classes, err := env.store.ListEndedUndispatched(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, classes)

	env.seedClass(t, "class-scheduled", false, false)
	env.seedClass(t, "class-ended-pending", true, false)
	env.seedClass(t, "class-ended-done", true, true)

	classes, err = env.store.ListEndedUndispatched(ctx, 10)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "class-ended-pending", classes[0].ClassID)
}

func TestMarkDispatchedIsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedClass(t, "class-1", true, false)

	require.NoError(t, env.store.MarkDispatched(ctx, "class-1"))

	err := env.store.MarkDispatched(ctx, "class-1")
	assert.ErrorIs(t, err, opstore.ErrAlreadyDispatched)
}

// TestMarkDispatchedIsExactlyOnceUnderConcurrency simulates several monitor
// replicas (spec.md §5 "multiple process instances") racing to dispatch the
// same ended class at once. Exactly one call may observe success; every
// other caller must observe ErrAlreadyDispatched, proving the CAS update
// (UPDATE ... WHERE ai_triggered = FALSE) is the sole source of truth for
// dispatch ownership rather than any in-process locking.
func TestMarkDispatchedIsExactlyOnceUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedClass(t, "class-race", true, false)

	const replicas = 8
	var wg sync.WaitGroup
	results := make([]error, replicas)
	wg.Add(replicas)
	for i := 0; i < replicas; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = env.store.MarkDispatched(ctx, "class-race")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, opstore.ErrAlreadyDispatched)
	}
	assert.Equal(t, 1, successes, "exactly one replica must win the dispatch race")
}

func TestGetClassNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.GetClass(ctx, "does-not-exist")
	assert.ErrorIs(t, err, opstore.ErrNotFound)
}

func TestTeacherEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.seedPool.Exec(ctx, `INSERT INTO users (user_id, email) VALUES ($1, $2)`,
		"teacher-1", "teacher@example.test")
	require.NoError(t, err)

	email, err := env.store.TeacherEmail(ctx, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.test", email)

	_, err = env.store.TeacherEmail(ctx, "nobody")
	assert.ErrorIs(t, err, opstore.ErrNotFound)
}

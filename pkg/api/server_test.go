package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tulkka/lessonpipe/pkg/anastore"
	"github.com/tulkka/lessonpipe/pkg/api"
	"github.com/tulkka/lessonpipe/pkg/dispatch"
	"github.com/tulkka/lessonpipe/pkg/opstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOpStore struct {
	cache   map[string]opstore.CachedResponse
	pingErr error
}

func (f *fakeOpStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeOpStore) GetIdempotentResponse(ctx context.Context, key string) (opstore.CachedResponse, error) {
	if f.cache == nil {
		return opstore.CachedResponse{}, opstore.ErrNotFound
	}
	c, ok := f.cache[key]
	if !ok {
		return opstore.CachedResponse{}, opstore.ErrNotFound
	}
	return c, nil
}

func (f *fakeOpStore) PutIdempotentResponse(ctx context.Context, key string, statusCode int, body []byte) error {
	if f.cache == nil {
		f.cache = map[string]opstore.CachedResponse{}
	}
	f.cache[key] = opstore.CachedResponse{StatusCode: statusCode, Body: append([]byte(nil), body...)}
	return nil
}

type fakeAnaStore struct {
	byBusinessKey map[string]anastore.TranscriptArtifact
	byID          map[string]anastore.TranscriptArtifact
	exercises     map[string]anastore.ExerciseSet
	inserted      int
	pingErr       error
}

func businessKey(classID, date, startTime string) string {
	return classID + "|" + date + "|" + startTime
}

func (f *fakeAnaStore) InsertTranscript(ctx context.Context, in anastore.TranscriptInput) (anastore.TranscriptArtifact, error) {
	key := businessKey(in.ClassID, in.Date, in.StartTime)
	if existing, ok := f.byBusinessKey[key]; ok {
		return existing, anastore.ErrDuplicate
	}

	f.inserted++
	artifact := anastore.TranscriptArtifact{
		ID:           bson.NewObjectID(),
		UserID:       in.UserID,
		TeacherID:    in.TeacherID,
		ClassID:      in.ClassID,
		TeacherEmail: in.TeacherEmail,
		Date:         in.Date,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Status:       anastore.TranscriptReady,
	}
	if f.byBusinessKey == nil {
		f.byBusinessKey = map[string]anastore.TranscriptArtifact{}
	}
	if f.byID == nil {
		f.byID = map[string]anastore.TranscriptArtifact{}
	}
	f.byBusinessKey[key] = artifact
	f.byID[artifact.ID.Hex()] = artifact
	return artifact, nil
}

func (f *fakeAnaStore) GetTranscriptByID(ctx context.Context, summaryID string) (anastore.TranscriptArtifact, error) {
	t, ok := f.byID[summaryID]
	if !ok {
		return anastore.TranscriptArtifact{}, anastore.ErrNotFound
	}
	return t, nil
}

func (f *fakeAnaStore) GetExerciseSetBySummaryID(ctx context.Context, summaryID string) (anastore.ExerciseSet, error) {
	e, ok := f.exercises[summaryID]
	if !ok {
		return anastore.ExerciseSet{}, anastore.ErrNotFound
	}
	return e, nil
}

func (f *fakeAnaStore) ListExerciseSets(ctx context.Context, classID, userID string) ([]anastore.ExerciseSet, error) {
	out := []anastore.ExerciseSet{}
	for _, e := range f.exercises {
		if e.ClassID != classID {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAnaStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeDispatcher struct {
	sent []dispatch.Payload
}

func (f *fakeDispatcher) Send(ctx context.Context, payload dispatch.Payload, idempotencyKey string) dispatch.Result {
	f.sent = append(f.sent, payload)
	return dispatch.Result{Outcome: dispatch.Success, StatusCode: http.StatusOK}
}

func triggerBody() []byte {
	body, _ := json.Marshal(map[string]string{
		"user_id": "s-1", "teacher_id": "t-1", "class_id": "class-1",
		"date": "2026-07-31", "start_time": "17:00", "end_time": "17:30",
	})
	return body
}

func TestPostTrigger(t *testing.T) {
	opStore := &fakeOpStore{}
	anaStore := &fakeAnaStore{}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	req := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewReader(triggerBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, anaStore.inserted)
	assert.Len(t, dispatcher.sent, 1)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["summary_id"])
	assert.Equal(t, "class-1", resp["class_id"])
}

func TestPostTriggerDuplicateBusinessKey(t *testing.T) {
	opStore := &fakeOpStore{}
	anaStore := &fakeAnaStore{}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewReader(triggerBody()))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Equal(t, 1, anaStore.inserted, "repeated (class_id, date, start_time) must not create a second artifact")
}

func TestPostTriggerIdempotentReplay(t *testing.T) {
	opStore := &fakeOpStore{}
	anaStore := &fakeAnaStore{}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewReader(triggerBody()))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Equal(t, 1, anaStore.inserted, "handler should only run once for a repeated idempotency key")
}

func TestGetLessonStatusNotFound(t *testing.T) {
	opStore := &fakeOpStore{}
	anaStore := &fakeAnaStore{}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/v1/lesson-status/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetHealthUnhealthyWhenStoreDown(t *testing.T) {
	opStore := &fakeOpStore{pingErr: errors.New("db down")}
	anaStore := &fakeAnaStore{}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetExercises(t *testing.T) {
	opStore := &fakeOpStore{}
	anaStore := &fakeAnaStore{
		exercises: map[string]anastore.ExerciseSet{
			"summary-1": {SummaryID: "summary-1", ClassID: "class-1", Metadata: anastore.ExerciseSetMetadata{QualityScore: 70}},
		},
	}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/v1/exercises?class_id=class-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count     int                    `json:"count"`
		Exercises []anastore.ExerciseSet `json:"exercises"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, 70, resp.Exercises[0].Metadata.QualityScore)
}

func TestGetExercisesRequiresClassID(t *testing.T) {
	opStore := &fakeOpStore{}
	anaStore := &fakeAnaStore{}
	dispatcher := &fakeDispatcher{}
	router := api.NewRouter(opStore, anaStore, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/v1/exercises", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

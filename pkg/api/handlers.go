package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tulkka/lessonpipe/pkg/anastore"
	"github.com/tulkka/lessonpipe/pkg/dispatch"
)

// OpStore is the subset of opstore.Store the HTTP surface depends on.
type OpStore interface {
	IdempotencyStore
	Ping(ctx context.Context) error
}

// AnaStore is the subset of anastore.Store the HTTP surface depends on.
type AnaStore interface {
	InsertTranscript(ctx context.Context, in anastore.TranscriptInput) (anastore.TranscriptArtifact, error)
	GetTranscriptByID(ctx context.Context, summaryID string) (anastore.TranscriptArtifact, error)
	GetExerciseSetBySummaryID(ctx context.Context, summaryID string) (anastore.ExerciseSet, error)
	ListExerciseSets(ctx context.Context, classID, userID string) ([]anastore.ExerciseSet, error)
	Ping(ctx context.Context) error
}

// Dispatcher is the subset of dispatch.Client the HTTP surface depends on:
// the same webhook forwarding the Class Monitor uses, here invoked directly
// by a manual trigger (spec.md §4.5).
type Dispatcher interface {
	Send(ctx context.Context, payload dispatch.Payload, idempotencyKey string) dispatch.Result
}

type triggerRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	TeacherID    string `json:"teacher_id" binding:"required"`
	ClassID      string `json:"class_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
	TeacherEmail string `json:"teacher_email"`
}

// postTrigger handles POST /v1/trigger: manually enqueues a transcript
// pipeline run, bypassing the Class Monitor (spec.md §4.5, §6.2).
//
// Idempotency: repeated calls with the same (class_id, date, start_time)
// business key MUST NOT create a second TranscriptArtifact — the existing
// row is returned with its current status, unless the new call's
// teacher_email conflicts with the stored one, which is reported as 409
// rather than silently accepted (spec.md §4.5, §6.2).
func postTrigger(anaStore AnaStore, dispatcher Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req triggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		artifact, err := anaStore.InsertTranscript(c.Request.Context(), anastore.TranscriptInput{
			UserID:       req.UserID,
			TeacherID:    req.TeacherID,
			ClassID:      req.ClassID,
			TeacherEmail: req.TeacherEmail,
			Date:         req.Date,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			ReceivedAt:   time.Now().UTC(),
		})
		switch {
		case err == nil:
			result := dispatcher.Send(c.Request.Context(), dispatch.Payload{
				UserID:       req.UserID,
				TeacherID:    req.TeacherID,
				ClassID:      req.ClassID,
				Date:         req.Date,
				StartTime:    req.StartTime,
				EndTime:      req.EndTime,
				TeacherEmail: req.TeacherEmail,
			}, artifact.ID.Hex())
			if result.Outcome != dispatch.Success {
				slog.Error("forwarding manual trigger to external workflow", "class_id", req.ClassID, "error", result.Err)
			}
		case errors.Is(err, anastore.ErrDuplicate):
			if req.TeacherEmail != "" && artifact.TeacherEmail != "" && req.TeacherEmail != artifact.TeacherEmail {
				c.JSON(http.StatusConflict, gin.H{"error": "existing transcript artifact has a different teacher_email"})
				return
			}
		default:
			mapStoreError(c, err)
			return
		}

		summaryID := artifact.ID.Hex()
		c.JSON(http.StatusCreated, gin.H{
			"summary_id": summaryID,
			"status":     artifact.Status,
			"class_id":   artifact.ClassID,
			"date":       artifact.Date,
			"poll_urls": gin.H{
				"status":    "/v1/lesson-status/" + summaryID,
				"exercises": "/v1/exercises?class_id=" + artifact.ClassID,
			},
		})
	}
}

// getLessonStatus handles GET /v1/lesson-status/:summary_id: reports where a
// transcript is in the pipeline (spec.md §4.5, §6.2).
func getLessonStatus(anaStore AnaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaryID := c.Param("summary_id")

		artifact, err := anaStore.GetTranscriptByID(c.Request.Context(), summaryID)
		if err != nil {
			mapStoreError(c, err)
			return
		}

		resp := gin.H{
			"summary_id":           summaryID,
			"status":               artifact.Status,
			"processing_attempts":  artifact.Attempts,
			"exercises_generated":  false,
			"transcript_available": artifact.Text != "",
			"transcript_length":    artifact.TranscriptLength,
		}
		if artifact.LastError != "" {
			resp["last_error"] = artifact.LastError
		}
		if !artifact.ProcessedAt.IsZero() {
			resp["processed_at"] = artifact.ProcessedAt
		}

		set, err := anaStore.GetExerciseSetBySummaryID(c.Request.Context(), summaryID)
		switch {
		case err == nil:
			resp["exercises_generated"] = true
			resp["exercises_id"] = set.ID.Hex()
		case errors.Is(err, anastore.ErrNotFound):
			// no exercise set yet; defaults above stand.
		default:
			mapStoreError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// getExercises handles GET /v1/exercises?class_id=&user_id= (spec.md §4.5,
// §6.2).
func getExercises(anaStore AnaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		classID := c.Query("class_id")
		if classID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "class_id is required"})
			return
		}
		userID := c.Query("user_id")

		sets, err := anaStore.ListExerciseSets(c.Request.Context(), classID, userID)
		if err != nil {
			mapStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(sets), "exercises": sets})
	}
}

// getHealth handles GET /health, grounded on the teacher's cmd/tarsy's
// /health handler, which checks DB reachability and reports status JSON.
func getHealth(opStore OpStore, anaStore AnaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		opErr := opStore.Ping(ctx)
		anaErr := anaStore.Ping(ctx)

		status := "healthy"
		code := http.StatusOK
		if opErr != nil || anaErr != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		body := gin.H{"status": status}
		if opErr != nil {
			body["operational_store_error"] = opErr.Error()
		}
		if anaErr != nil {
			body["analytical_store_error"] = anaErr.Error()
		}
		c.JSON(code, body)
	}
}

// getReady handles GET /ready: a lighter check than /health used by
// orchestrators to gate traffic.
func getReady(opStore OpStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := opStore.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

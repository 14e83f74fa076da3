package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tulkka/lessonpipe/pkg/anastore"
	"github.com/tulkka/lessonpipe/pkg/opstore"
)

// mapStoreError maps store-layer errors to an HTTP status and message,
// grounded on the teacher's pkg/api/errors.go::mapServiceError — the same
// errors.As/errors.Is dispatch, re-expressed against Gin instead of Echo
// and against opstore/anastore's sentinels instead of the teacher's
// services package.
func mapStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, opstore.ErrNotFound), errors.Is(err, anastore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case errors.Is(err, opstore.ErrAlreadyDispatched):
		c.JSON(http.StatusConflict, gin.H{"error": "class already dispatched"})
	case errors.Is(err, anastore.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate transcript delivery"})
	default:
		slog.Error("unexpected store error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

package api

import (
	"bytes"
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tulkka/lessonpipe/pkg/opstore"
)

// IdempotencyStore is the subset of opstore.Store the middleware depends on.
type IdempotencyStore interface {
	GetIdempotentResponse(ctx context.Context, key string) (opstore.CachedResponse, error)
	PutIdempotentResponse(ctx context.Context, key string, statusCode int, body []byte) error
}

// bodyRecorder captures the handler's written response so it can be cached
// after a successful request (spec.md §4.5).
type bodyRecorder struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays a cached response when Idempotency-Key matches a
// request that already completed, and caches successful new responses. It
// is a no-op when the header is absent, so GETs are unaffected (spec.md
// §4.5 "All mutating endpoints accept an Idempotency-Key header").
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			c.Next()
			return
		}

		cached, err := store.GetIdempotentResponse(c.Request.Context(), key)
		if err == nil {
			c.Data(cached.StatusCode, "application/json", cached.Body)
			c.Abort()
			return
		}
		if !errors.Is(err, opstore.ErrNotFound) {
			mapStoreError(c, err)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = recorder
		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			_ = store.PutIdempotentResponse(c.Request.Context(), key, status, recorder.buf.Bytes())
		}
	}
}

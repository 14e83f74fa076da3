package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulkka/lessonpipe/pkg/dispatch"
)

func TestSendSuccess(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := dispatch.New(srv.URL, 5*time.Second)
	result := client.Send(context.Background(), dispatch.Payload{ClassID: "class-1"}, "idem-1")

	assert.Equal(t, dispatch.Success, result.Outcome)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.NoError(t, result.Err)
	assert.Equal(t, "idem-1", gotKey)
}

func TestSendRetryableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := dispatch.New(srv.URL, 5*time.Second)
	result := client.Send(context.Background(), dispatch.Payload{ClassID: "class-1"}, "idem-1")

	assert.Equal(t, dispatch.Retryable, result.Outcome)
	assert.Error(t, result.Err)
}

func TestSendRetryableOnRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := dispatch.New(srv.URL, 5*time.Second)
	result := client.Send(context.Background(), dispatch.Payload{ClassID: "class-1"}, "idem-1")

	assert.Equal(t, dispatch.Retryable, result.Outcome)
}

func TestSendRetryableOnRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	}))
	defer srv.Close()

	client := dispatch.New(srv.URL, 5*time.Second)
	result := client.Send(context.Background(), dispatch.Payload{ClassID: "class-1"}, "idem-1")

	assert.Equal(t, dispatch.Retryable, result.Outcome)
}

func TestSendPermanentOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := dispatch.New(srv.URL, 5*time.Second)
	result := client.Send(context.Background(), dispatch.Payload{ClassID: "class-1"}, "idem-1")

	assert.Equal(t, dispatch.Permanent, result.Outcome)
}

func TestSendRetryableOnNetworkError(t *testing.T) {
	client := dispatch.New("http://127.0.0.1:1", 200*time.Millisecond)
	result := client.Send(context.Background(), dispatch.Payload{ClassID: "class-1"}, "idem-1")

	assert.Equal(t, dispatch.Retryable, result.Outcome)
	require.Error(t, result.Err)
}

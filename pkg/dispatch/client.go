// Package dispatch sends the Class Monitor's end-of-class webhook (spec.md
// §4.2) and classifies the response into the Success/Retryable/Permanent
// taxonomy spec.md §4.2 and §7 require.
//
// Grounded on the resty-based outbound-HTTP idiom visible across the wider
// example pack (e.g. the exstem-backend handler in other_examples, which
// pairs gin with go-resty/resty/v2 for its own outbound calls) rather than a
// hand-rolled net/http wrapper: resty's response/error classification hooks
// map directly onto the taxonomy below.
package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Outcome classifies a webhook delivery attempt so callers can decide
// whether to retry without inspecting raw errors (spec.md §4.2).
type Outcome int

const (
	// Success means the webhook endpoint accepted the payload (2xx).
	Success Outcome = iota
	// Retryable means the failure may be transient: network error, timeout,
	// or a 408/429/5xx response (spec.md §4.2 "retry with backoff").
	Retryable
	// Permanent means the endpoint rejected the payload in a way retrying
	// will not fix: any other 4xx response.
	Permanent
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Payload is the webhook body delivered for a class that has ended
// (spec.md §4.2, §8 S1).
type Payload struct {
	UserID       string `json:"user_id"`
	TeacherID    string `json:"teacher_id"`
	ClassID      string `json:"class_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	TeacherEmail string `json:"teacher_email,omitempty"`
}

// Result is the outcome of a single dispatch attempt.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

// Client delivers webhook payloads over HTTP.
type Client struct {
	http *resty.Client
}

// New builds a Client that posts to the given webhook URL.
func New(webhookURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(webhookURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Send delivers a single payload, tagging the request with idempotencyKey
// so a retried delivery for the same class is recognizable by the receiver
// (spec.md §4.2 "idempotency key").
func (c *Client) Send(ctx context.Context, payload Payload, idempotencyKey string) Result {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", idempotencyKey).
		SetBody(payload).
		Post("")

	if err != nil {
		return Result{Outcome: Retryable, Err: fmt.Errorf("dispatch: %w", err)}
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return Result{Outcome: Success, StatusCode: status}
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return Result{Outcome: Retryable, StatusCode: status, Err: fmt.Errorf("dispatch: retryable status %d", status)}
	default:
		return Result{Outcome: Permanent, StatusCode: status, Err: fmt.Errorf("dispatch: permanent status %d", status)}
	}
}

// Package llm provides the Exercise Engine's optional LLM enrichment call
// (spec.md §4.4 "LLM contract"). The teacher calls a Python sidecar over
// gRPC with a .proto-generated stub (pkg/llm/client.go,
// pkg/agent/llm_grpc.go); this exercise cannot regenerate protobuf/gRPC
// code, so the same three-outcome result shape is re-expressed over HTTP
// against an OpenAI-compatible chat-completions endpoint via
// go-resty/resty/v2 (see DESIGN.md).
//
// Modeling the outcome as a typed Availability value rather than a raw
// error, so callers switch on variant instead of doing error-string
// inspection, follows the same pattern as the teacher's
// queue.ExecutionResult: a lightweight terminal value the caller branches
// on.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Availability classifies the outcome of an LLM call so the Exercise Engine
// can fall back to its heuristic pipeline without inspecting raw errors
// (spec.md §4.4).
type Availability int

const (
	// Available means the call succeeded and Response is populated.
	Available Availability = iota
	// RateLimited means the provider is throttling; the engine should fall
	// back to the heuristic path for this run rather than block.
	RateLimited
	// Unavailable means the provider could not be reached or returned an
	// unrecoverable error; the engine falls back to the heuristic path.
	Unavailable
)

// Result is the outcome of a single LLM call.
type Result struct {
	Status   Availability
	Response string
	Err      error
}

// Message is a single chat turn, mirroring the OpenAI chat-completions
// message shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls an LLM for exercise enrichment and translation (spec.md
// §4.4 stages 5-6).
type Client interface {
	Complete(ctx context.Context, messages []Message) Result
}

type httpClient struct {
	http    *resty.Client
	model   string
	limiter *rate.Limiter
}

// llmRateLimit and llmRateBurst bound outbound calls to the provider so a
// burst of classes finishing at once doesn't hammer it; a call arriving over
// the limit is treated as RateLimited rather than queued, since the engine
// already has a heuristic fallback for exactly this case (spec.md §4.4 "LLM
// contract"). Grounded on goadesign-goa-ai's middleware/ratelimit.go use of
// golang.org/x/time/rate.
const (
	llmRateLimit = 2
	llmRateBurst = 4
)

// NewHTTPClient builds a Client against an OpenAI-compatible
// chat-completions endpoint, configured by LLM_API_KEY/LLM_MODEL
// (spec.md §6.3).
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration) Client {
	return &httpClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Authorization", "Bearer "+apiKey).
			SetHeader("Content-Type", "application/json"),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(llmRateLimit), llmRateBurst),
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *httpClient) Complete(ctx context.Context, messages []Message) Result {
	if !c.limiter.Allow() {
		return Result{Status: RateLimited, Err: fmt.Errorf("llm: local rate limit exceeded")}
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: messages}).
		SetResult(&out).
		Post("/v1/chat/completions")

	if err != nil {
		return Result{Status: Unavailable, Err: fmt.Errorf("llm: %w", err)}
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return Result{Status: RateLimited, Err: fmt.Errorf("llm: rate limited")}
	case resp.StatusCode() >= 500:
		return Result{Status: Unavailable, Err: fmt.Errorf("llm: provider error %d", resp.StatusCode())}
	case resp.StatusCode() >= 400:
		return Result{Status: Unavailable, Err: fmt.Errorf("llm: request rejected %d", resp.StatusCode())}
	}

	if len(out.Choices) == 0 {
		return Result{Status: Unavailable, Err: fmt.Errorf("llm: empty response")}
	}
	return Result{Status: Available, Response: out.Choices[0].Message.Content}
}

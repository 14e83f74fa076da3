package llm

import "context"

// FakeClient is a deterministic test double that always returns a fixed
// Result, following the teacher's pkg/queue/executor_stub.go pattern of a
// minimal stand-in implementation for the real client's interface.
type FakeClient struct {
	Result Result
}

func (f FakeClient) Complete(ctx context.Context, messages []Message) Result {
	return f.Result
}

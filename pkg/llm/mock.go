package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests and offline examples.
// It is safe for concurrent use.
type MockClient struct {
	mu        sync.Mutex
	response  string
	responses []*CompletionResponse
	next      int
	err       error
	fn        func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Calls records every request in call order.
	Calls []CompletionRequest
}

// NewMockClient returns a mock that always answers with response.
func NewMockClient(response string) *MockClient {
	return &MockClient{response: response}
}

// NewEchoClient returns a mock that answers with the content of the last
// message it receives.
func NewEchoClient() *MockClient {
	return NewMockClient("").WithCompleteFunc(func(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
		content := ""
		if n := len(req.Messages); n > 0 {
			content = req.Messages[n-1].Content
		}
		return &CompletionResponse{Content: content, FinishReason: "stop"}, nil
	})
}

// WithResponses answers with each content in turn, cycling at the end.
func (m *MockClient) WithResponses(contents ...string) *MockClient {
	resps := make([]*CompletionResponse, len(contents))
	for i, c := range contents {
		resps[i] = &CompletionResponse{Content: c, FinishReason: "stop"}
	}
	return m.WithCompletions(resps...)
}

// WithCompletions answers with each response in turn, cycling at the end.
// Use it to script tool calls.
func (m *MockClient) WithCompletions(resps ...*CompletionResponse) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = resps
	m.next = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompleteFunc delegates every call to fn.
func (m *MockClient) WithCompleteFunc(fn func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn, err := m.fn, m.err
	var scripted *CompletionResponse
	if len(m.responses) > 0 {
		scripted = m.responses[m.next%len(m.responses)]
		m.next++
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, req)
	}

	resp := &CompletionResponse{Content: m.response, FinishReason: "stop"}
	if scripted != nil {
		cp := *scripted
		resp = &cp
	}
	resp.Model = req.Model
	resp.Usage = estimateUsage(req, resp.Content)
	return resp, nil
}

// CallCount returns the number of calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	req := m.Calls[len(m.Calls)-1]
	return &req
}

// Reset clears recorded calls and rewinds scripted responses.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.next = 0
}

// estimateUsage approximates token counts at four characters per token.
func estimateUsage(req CompletionRequest, content string) TokenUsage {
	chars := len(req.SystemPrompt)
	for _, msg := range req.Messages {
		chars += len(msg.Content)
	}
	in := chars/4 + 1
	out := len(content)/4 + 1
	return TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

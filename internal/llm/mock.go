package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
// Respond, si esta definido, tiene prioridad sobre Response/Err.
type MockClient struct {
	Response string
	Err      error
	Respond  func(req CompletionRequest) (string, error)

	mu       sync.Mutex
	Requests []CompletionRequest
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Respond != nil {
		return m.Respond(req)
	}
	return m.Response, m.Err
}

// Calls devuelve cuantas veces se invoco Complete.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockResearcher devuelve una respuesta fija de investigacion.
type MockResearcher struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockResearcher) Research(ctx context.Context, prompt string, maxIterations int) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, m.Err
}

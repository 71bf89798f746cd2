package mocks

import (
	"context"
	"sync"
	"uxreview/internal/llm/client"
)

type VisionModelMock struct {
	GenerateJSONFunc func(ctx context.Context, req client.VisionRequest) (string, error)
	NameValue        string

	mu       sync.Mutex
	Requests []client.VisionRequest
}

func (m *VisionModelMock) GenerateJSON(ctx context.Context, req client.VisionRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, req)
	}
	return `{"issues":[]}`, nil
}

func (m *VisionModelMock) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

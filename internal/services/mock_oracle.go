package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sbstnppl/branch-engine/pkg/chat"
)

// MockOracle is a scripted Oracle implementation for testing
type MockOracle struct {
	GenerateFunc           func(ctx context.Context, messages []chat.Message) (string, error)
	GenerateStructuredFunc func(ctx context.Context, messages []chat.Message) (string, string, error)

	// Scripted responses, consumed in order when no func is set
	Responses           []string
	StructuredResponses []string

	// Track calls for testing
	GenerateCalls           [][]chat.Message
	GenerateStructuredCalls [][]chat.Message
	Temperatures            []float64

	mu sync.Mutex // protects all fields above
}

// NewMockOracle creates a new mock oracle
func NewMockOracle() *MockOracle {
	return &MockOracle{}
}

// InitModel mocks model initialization
func (m *MockOracle) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Generate returns the next scripted response
func (m *MockOracle) Generate(ctx context.Context, messages []chat.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateCalls = append(m.GenerateCalls, messages)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}
	if len(m.Responses) == 0 {
		return "", fmt.Errorf("mock oracle has no scripted responses left")
	}
	next := m.Responses[0]
	m.Responses = m.Responses[1:]
	return next, nil
}

// GenerateWithTemperature returns the next scripted response, recording
// the requested temperature.
func (m *MockOracle) GenerateWithTemperature(ctx context.Context, messages []chat.Message, temperature float64) (string, error) {
	m.mu.Lock()
	m.Temperatures = append(m.Temperatures, temperature)
	m.mu.Unlock()
	return m.Generate(ctx, messages)
}

// GenerateStructured returns the next scripted structured response
func (m *MockOracle) GenerateStructured(ctx context.Context, messages []chat.Message) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateStructuredCalls = append(m.GenerateStructuredCalls, messages)

	if m.GenerateStructuredFunc != nil {
		return m.GenerateStructuredFunc(ctx, messages)
	}
	if len(m.StructuredResponses) == 0 {
		return "", "", fmt.Errorf("mock oracle has no scripted structured responses left")
	}
	next := m.StructuredResponses[0]
	m.StructuredResponses = m.StructuredResponses[1:]
	return next, "mock-model", nil
}

// Reset clears call tracking and scripted responses
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls = nil
	m.GenerateStructuredCalls = nil
	m.Temperatures = nil
	m.Responses = nil
	m.StructuredResponses = nil
}

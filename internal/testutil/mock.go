// Package testutil provides shared testing utilities for the sage project.
//
// It contains deterministic provider fakes and database fixtures reused
// across package tests, following the pattern of standard library helpers
// like net/http/httptest.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/quorra0/sage/internal/provider"
)

// MockDimension is the default embedding dimension for tests. Small keeps
// fixtures readable; stores accept any consistent dimension.
const MockDimension = 32

// MockEmbedder produces deterministic bag-of-words embeddings: each word
// hashes to a dimension index. Similar texts get similar vectors, so
// retrieval ranking in tests behaves like a real embedder's would.
type MockEmbedder struct {
	Dimension int

	mu    sync.Mutex
	calls int
	// Err, when set, fails every call.
	Err error
}

// NewMockEmbedder creates a MockEmbedder with MockDimension.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimension: MockDimension}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.embed(text)
	}
	return vectors, nil
}

// Calls reports how many embedding requests were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) embed(text string) []float32 {
	vec := make([]float32, m.Dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv32(word)
		vec[int(h)%m.Dimension]++
	}
	return vec
}

// fnv32 is the 32-bit FNV-1a hash.
func fnv32(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// MockGenerator returns canned responses. With no Responses configured it
// echoes a fixed answer citing the first context passage.
type MockGenerator struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Requests  []provider.GenerateRequest
}

func (m *MockGenerator) Generate(_ context.Context, req provider.GenerateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	m.Requests = append(m.Requests, req)

	if len(m.Responses) == 0 {
		return "Answer based on the context [1].", nil
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return resp, nil
}

// LastRequest returns the most recent request, or an error when none were
// made.
func (m *MockGenerator) LastRequest() (provider.GenerateRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return provider.GenerateRequest{}, fmt.Errorf("no generate requests recorded")
	}
	return m.Requests[len(m.Requests)-1], nil
}

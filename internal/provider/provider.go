// Package provider defines the AI capability ports and their Genkit-backed
// adapters. The retrieval engine and ingestion pipeline depend on these
// small interfaces, never on a concrete provider, so tests substitute
// deterministic fakes and the provider is a configuration choice.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrEmbeddingUnavailable indicates the embedding provider could not
	// produce a vector. Callers decide whether to retry.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrGenerationUnavailable indicates the generation provider could not
	// produce a response.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of the conversation passed to generation.
type Message struct {
	Role    Role
	Content string
}

// GenerateRequest carries everything the generator needs for one response:
// a system instruction, prior conversation turns (oldest first), and the
// current prompt.
type GenerateRequest struct {
	System  string
	History []Message
	Prompt  string
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a model response for a request.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

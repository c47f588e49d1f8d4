package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/quorra0/sage/internal/config"
)

// GenkitProvider bundles the Genkit-backed Embedder and Generator built from
// configuration. Both apply per-call timeouts from the config so a stalled
// provider cannot hang a request indefinitely.
type GenkitProvider struct {
	Embedder  Embedder
	Generator Generator
}

// NewGenkit initializes Genkit with the configured AI plugin and returns
// adapters for the embedding and generation ports.
//
// Ollama requires explicit model registration; Gemini models are resolved by
// name at call time.
func NewGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*GenkitProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		g        *genkit.Genkit
		embedder ai.Embedder
	)

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder = ollama.Embedder(g, cfg.OllamaHost)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGemini:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}

	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder %q not found for provider %q",
			ErrEmbeddingUnavailable, cfg.EmbedderModel, cfg.Provider)
	}

	return &GenkitProvider{
		Embedder: &genkitEmbedder{
			embedder:  embedder,
			dimension: cfg.EmbedderDimension,
			timeout:   time.Duration(cfg.EmbedTimeoutSecs) * time.Second,
		},
		Generator: &genkitGenerator{
			g:       g,
			model:   cfg.FullModelName(),
			timeout: time.Duration(cfg.GenTimeoutSecs) * time.Second,
		},
	}, nil
}

type genkitEmbedder struct {
	embedder  ai.Embedder
	dimension int
	timeout   time.Duration
}

func (e *genkitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *genkitEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d",
			ErrEmbeddingUnavailable, len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: provider returned %d dimensions, configured for %d",
				ErrEmbeddingUnavailable, len(emb.Embedding), e.dimension)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

type genkitGenerator struct {
	g       *genkit.Genkit
	model   string
	timeout time.Duration
}

func (gen *genkitGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gen.timeout)
	defer cancel()

	messages := make([]*ai.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case RoleModel:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Prompt)))

	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.model),
		ai.WithSystem(req.System),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	return resp.Text(), nil
}

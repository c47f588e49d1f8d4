// Package rag implements the retrieval-augmented answer pipeline: embed the
// question, retrieve nearest chunks, assemble a grounded prompt, generate,
// and resolve citations.
//
// One code path serves both one-shot questions and chat turns. A chat turn
// is the same pipeline with prior session messages prepended to the prompt
// and the exchange appended to the session afterwards.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/quorra0/sage/internal/provider"
	"github.com/quorra0/sage/internal/session"
	"github.com/quorra0/sage/internal/vectorstore"
)

var (
	// ErrEmptyQuestion indicates a blank or whitespace-only question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrNoSessionStore indicates a chat turn was requested without a
	// session store configured.
	ErrNoSessionStore = errors.New("no session store configured")
)

// Citation links a bracketed marker in the answer text to the retrieved
// chunk it references. Index is the 1-based marker as it appears in the
// text.
type Citation struct {
	Index      int
	ChunkID    string
	DocumentID string
	Snippet    string
}

// Answer is the result of one pipeline run.
//
// Confidence is the mean retrieval similarity clamped to [0, 1]; zero when
// nothing was retrieved. It reflects retrieval quality, not generation
// quality.
type Answer struct {
	Text       string
	Citations  []Citation
	Retrieved  []vectorstore.Hit
	Confidence float64
}

// Engine runs the retrieval-augmented pipeline.
type Engine struct {
	store     vectorstore.Store
	embedder  provider.Embedder
	generator provider.Generator
	sessions  session.Store
	limiter   *rate.Limiter
	logger    *slog.Logger

	topK          int
	historyBudget int
	retry         RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionStore enables chat turns against the given store.
func WithSessionStore(s session.Store) Option {
	return func(e *Engine) { e.sessions = s }
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithHistoryBudget caps the total characters of prior conversation
// included in a chat prompt.
func WithHistoryBudget(chars int) Option {
	return func(e *Engine) {
		if chars > 0 {
			e.historyBudget = chars
		}
	}
}

// WithRateLimit throttles provider calls to n requests per minute.
func WithRateLimit(perMinute int) Option {
	return func(e *Engine) {
		if perMinute > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithRetry overrides the provider retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// New creates an Engine. Store, embedder and generator are required.
func New(store vectorstore.Store, embedder provider.Embedder, generator provider.Generator, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:         store,
		embedder:      embedder,
		generator:     generator,
		logger:        logger,
		topK:          DefaultTopK,
		historyBudget: DefaultHistoryBudget,
		retry:         DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults for retrieval breadth and chat history size.
const (
	DefaultTopK          = 5
	DefaultHistoryBudget = 8000
)

// Ask answers a one-shot question with no conversation memory.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	return e.answer(ctx, question, nil)
}

// AskInSession answers a chat turn: prior session messages are included in
// the prompt, and the question and answer are appended to the session as one
// atomic exchange once generation succeeds. Nothing is appended on failure,
// so every session holds an even number of messages.
func (e *Engine) AskInSession(ctx context.Context, sessionID uuid.UUID, question string) (*Answer, error) {
	if e.sessions == nil {
		return nil, ErrNoSessionStore
	}

	history, err := e.sessions.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	answer, err := e.answer(ctx, question, history)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.AppendExchange(ctx, sessionID, strings.TrimSpace(question), answer.Text); err != nil {
		return nil, fmt.Errorf("recording exchange: %w", err)
	}
	return answer, nil
}

// answer is the single pipeline both entry points share.
func (e *Engine) answer(ctx context.Context, question string, history []session.Message) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()

	embedding, err := e.withRetryVec(ctx, func(ctx context.Context) ([]float32, error) {
		return e.embedder.Embed(ctx, question)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := e.store.Query(ctx, embedding, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	req := buildRequest(question, hits, truncateHistory(history, e.historyBudget))

	text, err := e.withRetryText(ctx, func(ctx context.Context) (string, error) {
		return e.generator.Generate(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	answer := &Answer{
		Text:       strings.TrimSpace(text),
		Retrieved:  hits,
		Confidence: confidence(hits),
	}
	answer.Citations = resolveCitations(answer.Text, hits)

	e.logger.Debug("answered question",
		"retrieved", len(hits),
		"citations", len(answer.Citations),
		"confidence", answer.Confidence,
		"elapsed", time.Since(start),
	)
	return answer, nil
}

// confidence is the mean retrieval similarity clamped to [0, 1].
func confidence(hits []vectorstore.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sum float64
	for _, h := range hits {
		sum += float64(h.Score)
	}
	c := sum / float64(len(hits))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

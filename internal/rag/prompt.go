package rag

import (
	"fmt"
	"strings"

	"github.com/quorra0/sage/internal/provider"
	"github.com/quorra0/sage/internal/session"
	"github.com/quorra0/sage/internal/vectorstore"
)

// systemPrompt instructs the model to ground answers in the supplied
// context and cite sources by their bracketed numbers.
const systemPrompt = `You are a precise assistant that answers questions using only the provided context.

Rules:
- Base your answer on the numbered context passages below.
- Cite every claim with the passage number in square brackets, e.g. [1] or [2].
- If the context does not contain the answer, say so plainly instead of guessing.
- Keep answers concise and factual.`

// noContextMarker is inserted when retrieval returns nothing, so the model
// states the absence of knowledge instead of hallucinating sources.
const noContextMarker = "(no relevant context was found in the knowledge base)"

// buildRequest assembles the generation request: numbered context passages,
// truncated conversation history, and the question.
func buildRequest(question string, hits []vectorstore.Hit, history []session.Message) provider.GenerateRequest {
	var b strings.Builder

	b.WriteString("Context:\n")
	if len(hits) == 0 {
		b.WriteString(noContextMarker)
		b.WriteString("\n")
	} else {
		for i, h := range hits {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(h.Record.Content))
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)

	req := provider.GenerateRequest{
		System: systemPrompt,
		Prompt: b.String(),
	}
	for _, m := range history {
		role := provider.RoleUser
		if m.Role == session.RoleAssistant {
			role = provider.RoleModel
		}
		req.History = append(req.History, provider.Message{Role: role, Content: m.Content})
	}
	return req
}

// truncateHistory drops the oldest whole messages until the total content
// length fits the character budget. Messages are never split: a partial turn
// is worse context than no turn.
func truncateHistory(history []session.Message, budget int) []session.Message {
	if budget <= 0 || len(history) == 0 {
		return nil
	}

	total := 0
	for _, m := range history {
		total += len(m.Content)
	}

	start := 0
	for start < len(history) && total > budget {
		total -= len(history[start].Content)
		start++
	}
	return history[start:]
}

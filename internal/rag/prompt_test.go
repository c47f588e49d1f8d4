package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorra0/sage/internal/provider"
	"github.com/quorra0/sage/internal/session"
	"github.com/quorra0/sage/internal/vectorstore"
)

func TestBuildRequest(t *testing.T) {
	t.Run("numbers passages in retrieval order", func(t *testing.T) {
		hits := []vectorstore.Hit{
			{Record: vectorstore.Record{Content: "first passage"}},
			{Record: vectorstore.Record{Content: "second passage"}},
		}
		req := buildRequest("what?", hits, nil)

		assert.Contains(t, req.Prompt, "[1] first passage")
		assert.Contains(t, req.Prompt, "[2] second passage")
		assert.Contains(t, req.Prompt, "Question: what?")
		assert.NotEmpty(t, req.System)
	})

	t.Run("empty retrieval inserts the no-context marker", func(t *testing.T) {
		req := buildRequest("what?", nil, nil)
		assert.Contains(t, req.Prompt, noContextMarker)
	})

	t.Run("history maps to provider roles in order", func(t *testing.T) {
		history := []session.Message{
			{Role: session.RoleUser, Content: "hi"},
			{Role: session.RoleAssistant, Content: "hello"},
		}
		req := buildRequest("next?", nil, history)

		require.Len(t, req.History, 2)
		assert.Equal(t, provider.RoleUser, req.History[0].Role)
		assert.Equal(t, "hi", req.History[0].Content)
		assert.Equal(t, provider.RoleModel, req.History[1].Role)
		assert.Equal(t, "hello", req.History[1].Content)
	})
}

func TestTruncateHistory(t *testing.T) {
	msg := func(content string) session.Message {
		return session.Message{Role: session.RoleUser, Content: content}
	}

	t.Run("fits within budget unchanged", func(t *testing.T) {
		history := []session.Message{msg("aa"), msg("bb")}
		assert.Equal(t, history, truncateHistory(history, 100))
	})

	t.Run("drops oldest whole messages first", func(t *testing.T) {
		history := []session.Message{
			msg(strings.Repeat("a", 50)),
			msg(strings.Repeat("b", 50)),
			msg(strings.Repeat("c", 50)),
		}
		got := truncateHistory(history, 110)
		require.Len(t, got, 2)
		assert.Equal(t, history[1], got[0])
		assert.Equal(t, history[2], got[1])
	})

	t.Run("messages are never split", func(t *testing.T) {
		history := []session.Message{
			msg(strings.Repeat("a", 100)),
			msg(strings.Repeat("b", 100)),
		}
		got := truncateHistory(history, 150)
		require.Len(t, got, 1)
		assert.Len(t, got[0].Content, 100)
	})

	t.Run("zero budget drops everything", func(t *testing.T) {
		assert.Empty(t, truncateHistory([]session.Message{msg("a")}, 0))
	})
}

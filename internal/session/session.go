// Package session provides conversation session persistence for chat mode.
//
// A session is an append-only, time-ordered list of messages. Two stores
// implement the same contract: an in-memory store for single-process use and
// a PostgreSQL store for durable history.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors for session operations. Check with errors.Is.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a message role outside user/assistant.
	ErrInvalidRole = errors.New("invalid message role")
)

// Session is a conversation session.
type Session struct {
	ID           uuid.UUID
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message is a single conversation turn.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Role      string // "user" | "assistant"
	Content   string
	CreatedAt time.Time
}

// Store is the session persistence contract. Implementations are safe for
// concurrent use. Messages returns turns oldest first; sessions are
// append-only and never reordered.
type Store interface {
	CreateSession(ctx context.Context, title string) (*Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context, limit, offset int32) ([]*Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*Message, error)
	// AppendExchange appends a user question and its assistant answer as one
	// atomic unit: either both messages land or neither does, so a session
	// always holds complete exchanges.
	AppendExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) error
	Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// MemoryStore keeps sessions in process memory. Used when the vector store
// runs on the embedded backend and no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	messages map[uuid.UUID][]Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		messages: make(map[uuid.UUID][]Message),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, title string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess

	out := *sess
	return &out, nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *sess
	return &out, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, limit, offset int32) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out := *sess
		all = append(all, &out)
	}
	// Most recently updated first, matching the database store's ordering.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].UpdatedAt.After(all[j-1].UpdatedAt); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	start := int(offset)
	if start >= len(all) {
		return []*Session{}, nil
	}
	end := len(all)
	if limit > 0 && start+int(limit) < end {
		end = start + int(limit)
	}
	return all[start:end], nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID uuid.UUID, role, content string) (*Message, error) {
	if !validRole(role) {
		return nil, ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	msg := Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	sess.MessageCount++
	sess.UpdatedAt = msg.CreatedAt

	return &msg, nil
}

func (s *MemoryStore) AppendExchange(_ context.Context, sessionID uuid.UUID, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	now := time.Now().UTC()
	s.messages[sessionID] = append(s.messages[sessionID],
		Message{ID: uuid.New(), SessionID: sessionID, Role: RoleUser, Content: question, CreatedAt: now},
		Message{ID: uuid.New(), SessionID: sessionID, Role: RoleAssistant, Content: answer, CreatedAt: now},
	)
	sess.MessageCount += 2
	sess.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Messages(_ context.Context, sessionID uuid.UUID) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	msgs := s.messages[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

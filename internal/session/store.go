package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the database surface the store needs. Defined by the consumer
// so tests can substitute a fake; *pgxpool.Pool satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists sessions and messages in PostgreSQL.
// Safe for concurrent use.
type PostgresStore struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresStore creates a database-backed session store.
func NewPostgresStore(db Querier, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) CreateSession(ctx context.Context, title string) (*Session, error) {
	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	sess := &Session{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO sessions (title)
		VALUES ($1)
		RETURNING id, COALESCE(title, ''), created_at, updated_at`,
		titlePtr,
	).Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	sess := &Session{}
	err := s.db.QueryRow(ctx, `
		SELECT s.id, COALESCE(s.title, ''), s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM session_messages m WHERE m.session_id = s.id)
		FROM sessions s
		WHERE s.id = $1`,
		sessionID,
	).Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, limit, offset int32) ([]*Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, COALESCE(s.title, ''), s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM session_messages m WHERE m.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*Message, error) {
	if !validRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	msg := &Message{SessionID: sessionID, Role: role, Content: content}
	err := s.db.QueryRow(ctx, `
		INSERT INTO session_messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		sessionID, role, content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("appending message to session %s: %w", sessionID, err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		s.logger.Warn("updating session timestamp", "session_id", sessionID, "error", err)
	}
	return msg, nil
}

// AppendExchange inserts both rows in a single statement, so a question can
// never land without its answer.
func (s *PostgresStore) AppendExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO session_messages (session_id, role, content)
		VALUES ($1, 'user', $2), ($1, 'assistant', $3)`,
		sessionID, question, answer,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return fmt.Errorf("appending exchange to session %s: %w", sessionID, err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		s.logger.Warn("updating session timestamp", "session_id", sessionID, "error", err)
	}
	return nil
}

func (s *PostgresStore) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading messages for session %s: %w", sessionID, err)
	}
	return messages, nil
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

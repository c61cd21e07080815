// Package store provides SQLite-backed persistence for agent conversation
// history, sessions and feedback.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/agentgw/internal/db"
)

// Store is a SQLite-backed conversation and feedback store.
type Store struct {
	db *db.DB
}

// New creates a Store backed by the given database.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateSession creates a new session bound to skillName. If sessionID is
// empty, a new UUID is generated.
func (s *Store) CreateSession(ctx context.Context, skillName, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, skill_name) VALUES (?, ?)`,
		sessionID, skillName,
	)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return sessionID, nil
}

// GetSession retrieves a session by ID. Returns nil, nil if not found.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, skill_name, created_at, last_used_at FROM sessions WHERE id = ?`,
		sessionID,
	)
	return scanSession(row)
}

// ListSessions returns recent sessions matching the filter, most recently used first.
func (s *Store) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, skill_name, created_at, last_used_at FROM sessions`
	var args []interface{}
	if filter.SkillName != "" {
		query += ` WHERE skill_name = ?`
		args = append(args, filter.SkillName)
	}
	query += ` ORDER BY last_used_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			sessions = append(sessions, *sess)
		}
	}
	return sessions, rows.Err()
}

// Append writes msg to session_id, assigning the next sequence number and
// stamping created_at, and returns the persisted message. It also bumps the
// session's last_used_at.
func (s *Store) Append(ctx context.Context, sessionID string, msg Message) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&maxSeq); err != nil {
		return nil, fmt.Errorf("computing next sequence: %w", err)
	}

	msg.ID = uuid.NewString()
	msg.SessionID = sessionID
	msg.Seq = int(maxSeq.Int64) + 1
	msg.CreatedAt = time.Now().UTC()

	var toolCallsJSON *string
	if len(msg.ToolCalls) > 0 {
		b, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("encoding tool calls: %w", err)
		}
		j := string(b)
		toolCallsJSON = &j
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, seq, role, content, tool_calls_json, tool_call_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Seq, string(msg.Role), msg.Content,
		toolCallsJSON, nullString(msg.ToolCallID), msg.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = ? WHERE id = ?`,
		msg.CreatedAt.Format(time.DateTime), sessionID,
	); err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	return &msg, nil
}

// List returns the full ordered history of a session.
func (s *Store) List(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, content, tool_calls_json, tool_call_id, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// SetFeedback upserts feedback for an assistant message. Re-submitting
// overrides the previous value.
func (s *Store) SetFeedback(ctx context.Context, messageID string, value int) error {
	if value != 1 && value != -1 {
		return fmt.Errorf("feedback value must be +1 or -1, got %d", value)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (message_id, value) VALUES (?, ?)
		 ON CONFLICT(message_id) DO UPDATE SET value = excluded.value, created_at = datetime('now')`,
		messageID, value,
	)
	if err != nil {
		return fmt.Errorf("setting feedback: %w", err)
	}
	return nil
}

// GetFeedback returns feedback for a message, or nil if none was recorded.
func (s *Store) GetFeedback(ctx context.Context, messageID string) (*Feedback, error) {
	var f Feedback
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT message_id, value, created_at FROM feedback WHERE message_id = ?`,
		messageID,
	).Scan(&f.MessageID, &f.Value, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting feedback: %w", err)
	}
	f.CreatedAt, _ = time.Parse(time.DateTime, created)
	return &f, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(sc scanner) (*Session, error) {
	var sess Session
	var created, lastUsed string
	err := sc.Scan(&sess.ID, &sess.SkillName, &created, &lastUsed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.DateTime, created)
	sess.LastUsedAt, _ = time.Parse(time.DateTime, lastUsed)
	return &sess, nil
}

func scanMessage(sc scanner) (*Message, error) {
	var m Message
	var role, created string
	var toolCallsJSON, toolCallID sql.NullString

	err := sc.Scan(&m.ID, &m.SessionID, &m.Seq, &role, &m.Content, &toolCallsJSON, &toolCallID, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	m.Role = Role(role)
	m.ToolCallID = toolCallID.String
	m.CreatedAt, _ = time.Parse(time.DateTime, created)

	if toolCallsJSON.Valid && toolCallsJSON.String != "" {
		if err := json.Unmarshal([]byte(toolCallsJSON.String), &m.ToolCalls); err != nil {
			return nil, fmt.Errorf("decoding tool calls: %w", err)
		}
	}

	return &m, nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Package store persists chat sessions and exchanges. It is the durable
// source of truth; the session manager's cache sits above it and is never
// authoritative.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// ChatSession is one conversation. SessionID is the externally visible token,
// distinct from the durable primary key so it can be rotated.
type ChatSession struct {
	ID        string `json:"-"`
	UserID    string `json:"-"`
	SessionID string `json:"sessionId"`
	Title     string `json:"title,omitempty"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Chat is one persisted user-message/AI-response pair. Immutable once written.
type Chat struct {
	ID             string `json:"id"`
	UserID         string `json:"-"`
	SessionID      string `json:"sessionId"`
	ModelName      string `json:"modelName"`
	ModelProvider  string `json:"modelProvider"`
	Role           string `json:"role"`
	SystemPrompt   string `json:"-"`
	UserMessage    string `json:"userMessage"`
	AIResponse     string `json:"aiResponse"`
	SearchEnabled  bool   `json:"searchEnabled"`
	ResponseTimeMs *int64 `json:"responseTimeMs,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type CreateChatParams struct {
	UserID         string
	SessionID      string
	ModelName      string
	ModelProvider  string
	Role           string
	SystemPrompt   string
	UserMessage    string
	AIResponse     string
	SearchEnabled  bool
	ResponseTimeMs *int64
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) Store {
	return Store{db: db}
}

const sessionColumns = `id, user_id, session_id, COALESCE(title, ''), is_active, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (ChatSession, error) {
	var out ChatSession
	err := row.Scan(
		&out.ID,
		&out.UserID,
		&out.SessionID,
		&out.Title,
		&out.IsActive,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	return out, err
}

func (s Store) CreateSession(ctx context.Context, userID, sessionToken string) (ChatSession, error) {
	query := `
INSERT INTO chat_sessions (id, user_id, session_id, title, is_active)
VALUES (?, ?, ?, NULL, 1)
RETURNING ` + sessionColumns + `;`

	out, err := scanSession(s.db.QueryRowContext(ctx, query, uuid.NewString(), userID, sessionToken))
	if err != nil {
		return ChatSession{}, fmt.Errorf("create chat session: %w", err)
	}
	return out, nil
}

// ActiveSessionByToken looks a session up by its token regardless of owner.
func (s Store) ActiveSessionByToken(ctx context.Context, sessionToken string) (ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE session_id = ? AND is_active = 1 LIMIT 1;`

	out, err := scanSession(s.db.QueryRowContext(ctx, query, sessionToken))
	if errors.Is(err, sql.ErrNoRows) {
		return ChatSession{}, ErrNotFound
	}
	if err != nil {
		return ChatSession{}, fmt.Errorf("session by token: %w", err)
	}
	return out, nil
}

// ActiveUserSession verifies that the token names an active session owned by
// the given user.
func (s Store) ActiveUserSession(ctx context.Context, userID, sessionToken string) (ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE session_id = ? AND user_id = ? AND is_active = 1 LIMIT 1;`

	out, err := scanSession(s.db.QueryRowContext(ctx, query, sessionToken, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return ChatSession{}, ErrNotFound
	}
	if err != nil {
		return ChatSession{}, fmt.Errorf("user session by token: %w", err)
	}
	return out, nil
}

// ListActiveSessions returns the user's active sessions, newest first.
func (s Store) ListActiveSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	query := `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE user_id = ? AND is_active = 1
ORDER BY created_at DESC, rowid DESC;`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]ChatSession, 0, 8)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}
	return sessions, nil
}

const chatColumns = `id, user_id, session_id, model_name, model_provider, role, COALESCE(system_prompt, ''), user_message, ai_response, search_enabled, response_time_ms, created_at`

func scanChat(row interface{ Scan(...any) error }) (Chat, error) {
	var out Chat
	var responseTime sql.NullInt64
	err := row.Scan(
		&out.ID,
		&out.UserID,
		&out.SessionID,
		&out.ModelName,
		&out.ModelProvider,
		&out.Role,
		&out.SystemPrompt,
		&out.UserMessage,
		&out.AIResponse,
		&out.SearchEnabled,
		&responseTime,
		&out.CreatedAt,
	)
	if responseTime.Valid {
		value := responseTime.Int64
		out.ResponseTimeMs = &value
	}
	return out, err
}

func (s Store) CreateChat(ctx context.Context, params CreateChatParams) (Chat, error) {
	role := strings.TrimSpace(params.Role)
	if role == "" {
		role = "default"
	}

	var systemPrompt any
	if strings.TrimSpace(params.SystemPrompt) != "" {
		systemPrompt = params.SystemPrompt
	}
	var responseTime any
	if params.ResponseTimeMs != nil {
		responseTime = *params.ResponseTimeMs
	}

	query := `
INSERT INTO chats (id, user_id, session_id, model_name, model_provider, role, system_prompt, user_message, ai_response, search_enabled, response_time_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + chatColumns + `;`

	out, err := scanChat(s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		params.UserID,
		params.SessionID,
		params.ModelName,
		params.ModelProvider,
		role,
		systemPrompt,
		params.UserMessage,
		params.AIResponse,
		params.SearchEnabled,
		responseTime,
	))
	if err != nil {
		return Chat{}, fmt.Errorf("create chat: %w", err)
	}
	return out, nil
}

// ChatHistory returns every exchange in a session, oldest first.
func (s Store) ChatHistory(ctx context.Context, sessionToken string) ([]Chat, error) {
	query := `
SELECT ` + chatColumns + `
FROM chats
WHERE session_id = ?
ORDER BY created_at ASC, rowid ASC;`

	rows, err := s.db.QueryContext(ctx, query, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	defer rows.Close()

	chats := make([]Chat, 0, 16)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, nil
}

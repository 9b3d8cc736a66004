package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unibotserver/models"
)

// GetOrCreateSession возвращает сессию по внешнему идентификатору, создавая
// её при первом обращении.
func (s *Store) GetOrCreateSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var session models.ChatSession

	const sel = `
		SELECT id, session_id, created_at, last_activity
		FROM chat_sessions
		WHERE session_id = $1`
	err := s.db.QueryRowContext(ctx, sel, sessionID).Scan(
		&session.ID, &session.SessionID, &session.CreatedAt, &session.LastActivity,
	)
	if err == nil {
		// Обновляем отметку активности, ошибка не критична
		_, _ = s.db.ExecContext(ctx,
			`UPDATE chat_sessions SET last_activity = now() WHERE id = $1`, session.ID)
		return &session, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("GetOrCreateSession: %w", err)
	}

	session = models.ChatSession{
		ID:           uuid.New(),
		SessionID:    sessionID,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
	const ins = `
		INSERT INTO chat_sessions (id, session_id, created_at, last_activity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET last_activity = now()`
	if _, err := s.db.ExecContext(ctx, ins,
		session.ID, session.SessionID, session.CreatedAt, session.LastActivity); err != nil {
		return nil, fmt.Errorf("GetOrCreateSession: insert: %w", err)
	}
	return &session, nil
}

// AddChatMessage добавляет сообщение в историю сессии.
func (s *Store) AddChatMessage(ctx context.Context, sessionID string, msg *models.ChatMessage) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		INSERT INTO chat_messages
			(id, session_id, message_type, content, ts, response_time, tokens_used, model_used)
		SELECT $1, cs.id, $3, $4, $5, $6, $7, $8
		FROM chat_sessions cs
		WHERE cs.session_id = $2`
	res, err := s.db.ExecContext(ctx, q,
		msg.ID, sessionID, msg.MessageType, msg.Content, msg.Timestamp,
		msg.ResponseTime, msg.TokensUsed, msg.ModelUsed)
	if err != nil {
		return fmt.Errorf("AddChatMessage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("AddChatMessage: сессия %s не найдена", sessionID)
	}
	return nil
}

// GetChatHistory возвращает последние сообщения сессии в хронологическом
// порядке.
func (s *Store) GetChatHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit < 1 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT m.id, m.session_id, m.message_type, m.content, m.ts,
		       COALESCE(m.response_time, 0), COALESCE(m.tokens_used, 0), COALESCE(m.model_used, '')
		FROM chat_messages m
		JOIN chat_sessions cs ON cs.id = m.session_id
		WHERE cs.session_id = $1
		ORDER BY m.ts DESC
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetChatHistory: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.MessageType, &m.Content, &m.Timestamp,
			&m.ResponseTime, &m.TokensUsed, &m.ModelUsed,
		); err != nil {
			return nil, fmt.Errorf("GetChatHistory: scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetChatHistory: rows: %w", err)
	}

	// Разворачиваем в хронологический порядок
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

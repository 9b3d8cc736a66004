package database

import (
	"context"
	"fmt"

	"unibotserver/models"
)

// AddRequestLog пишет журнальную запись одного обращения к ЛЛМ вместе со
// ссылками на использованные записи базы знаний (в одной транзакции).
func (s *Store) AddRequestLog(ctx context.Context, entry *models.RequestLog) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AddRequestLog: begin: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO request_logs
			(id, session_id, user_message, ai_response, response_time,
			 api_success, error_message, tokens_used, moderated, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, q,
		entry.ID, entry.SessionID, entry.UserMessage, entry.AIResponse,
		entry.ResponseTime, entry.APISuccess, entry.ErrorMessage,
		entry.TokensUsed, entry.Moderated, entry.Timestamp); err != nil {
		return fmt.Errorf("AddRequestLog: %w", err)
	}

	const link = `
		INSERT INTO request_log_entries (request_log_id, entry_id, store)
		VALUES ($1, $2, $3)`
	for _, id := range entry.FAQEntriesUsed {
		if _, err := tx.ExecContext(ctx, link, entry.ID, id, models.StoreFAQ); err != nil {
			return fmt.Errorf("AddRequestLog: link faq: %w", err)
		}
	}
	for _, id := range entry.AutoEntriesUsed {
		if _, err := tx.ExecContext(ctx, link, entry.ID, id, models.StoreAuto); err != nil {
			return fmt.Errorf("AddRequestLog: link auto: %w", err)
		}
	}

	return tx.Commit()
}

// AnalyticsSummary — сводные показатели для админ-панели.
type AnalyticsSummary struct {
	TotalSessions      int     `json:"totalSessions"`
	TotalMessages      int     `json:"totalMessages"`
	TotalRequests      int     `json:"totalRequests"`
	SuccessfulRequests int     `json:"successfulRequests"`
	SuccessRate        float64 `json:"successRate"`
	AvgResponseTime    float64 `json:"avgResponseTime"`
	ModerationEvents   int     `json:"moderationEvents"`
	KnowledgeEntries   int     `json:"knowledgeEntries"`
	AutoGrownEntries   int     `json:"autoGrownEntries"`
}

// GetAnalyticsSummary собирает сводную статистику.
func (s *Store) GetAnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var sum AnalyticsSummary
	const q = `
		SELECT
			(SELECT COUNT(*) FROM chat_sessions),
			(SELECT COUNT(*) FROM chat_messages),
			(SELECT COUNT(*) FROM request_logs),
			(SELECT COUNT(*) FROM request_logs WHERE api_success = TRUE),
			(SELECT COALESCE(AVG(response_time), 0) FROM request_logs WHERE api_success = TRUE),
			(SELECT COUNT(*) FROM moderation_events),
			(SELECT COUNT(*) FROM knowledge_entries WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM knowledge_entries WHERE is_active = TRUE AND store = 'auto')`
	if err := s.db.QueryRowContext(ctx, q).Scan(
		&sum.TotalSessions, &sum.TotalMessages, &sum.TotalRequests,
		&sum.SuccessfulRequests, &sum.AvgResponseTime,
		&sum.ModerationEvents, &sum.KnowledgeEntries, &sum.AutoGrownEntries,
	); err != nil {
		return nil, fmt.Errorf("GetAnalyticsSummary: %w", err)
	}

	if sum.TotalRequests > 0 {
		sum.SuccessRate = float64(sum.SuccessfulRequests) / float64(sum.TotalRequests) * 100
	}
	return &sum, nil
}

// RecentRequestLogs возвращает последние журнальные записи.
func (s *Store) RecentRequestLogs(ctx context.Context, limit int) ([]models.RequestLog, error) {
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, session_id, user_message, ai_response, response_time,
		       api_success, error_message, tokens_used, moderated, ts
		FROM request_logs
		ORDER BY ts DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentRequestLogs: %w", err)
	}
	defer rows.Close()

	var logs []models.RequestLog
	for rows.Next() {
		var l models.RequestLog
		if err := rows.Scan(
			&l.ID, &l.SessionID, &l.UserMessage, &l.AIResponse, &l.ResponseTime,
			&l.APISuccess, &l.ErrorMessage, &l.TokensUsed, &l.Moderated, &l.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("RecentRequestLogs: scan: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentRequestLogs: rows: %w", err)
	}
	return logs, nil
}

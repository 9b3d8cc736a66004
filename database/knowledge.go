package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"unibotserver/models"
)

// SearchEntries ищет активные записи одного хранилища, в которых query
// встречается в вопросе, ответе или ключевых словах (без учёта регистра).
func (s *Store) SearchEntries(ctx context.Context, store, query, category string, limit int) ([]models.KnowledgeEntry, error) {
	if limit < 1 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	pattern := "%" + escapeLike(query) + "%"

	const q = `
		SELECT id, store, question, answer, category, keywords, language, source,
		       confidence_score, is_verified, is_active, usage_count, last_used_at,
		       created_at, updated_at
		FROM knowledge_entries
		WHERE store = $1
		  AND is_active = TRUE
		  AND ($2 = '' OR category = $2)
		  AND (question ILIKE $3 OR answer ILIKE $3 OR keywords ILIKE $3)
		ORDER BY created_at DESC
		LIMIT $4`
	rows, err := s.db.QueryContext(ctx, q, store, category, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchEntries: %w", err)
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchEntries: rows: %w", err)
	}
	return entries, nil
}

// CreateKnowledgeEntry добавляет запись базы знаний (автопополнение).
func (s *Store) CreateKnowledgeEntry(ctx context.Context, entry *models.KnowledgeEntry) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		INSERT INTO knowledge_entries
			(id, store, question, answer, category, keywords, language, source,
			 confidence_score, is_verified, is_active, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, $13)`
	_, err := s.db.ExecContext(ctx, q,
		entry.ID, entry.Store, entry.Question, entry.Answer, entry.Category,
		entry.Keywords, entry.Language, entry.Source, entry.ConfidenceScore,
		entry.IsVerified, entry.IsActive, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreateKnowledgeEntry: %w", err)
	}
	return nil
}

// MarkEntryUsed инкрементирует счётчик использования записи.
func (s *Store) MarkEntryUsed(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE knowledge_entries
		SET usage_count = usage_count + 1, last_used_at = now()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("MarkEntryUsed: %w", err)
	}
	return nil
}

// RecordPendingQuery фиксирует запрос, для которого база знаний ничего не
// нашла. Повтор того же текста в той же сессии в пределах часа не создаёт
// новой записи (окно дедупликации).
func (s *Store) RecordPendingQuery(ctx context.Context, queryText, language, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		INSERT INTO pending_queries
			(id, query_text, language, results_found, should_promote, promoted, session_id, created_at)
		SELECT $1, $2, $3, FALSE, TRUE, FALSE, $4, now()
		WHERE NOT EXISTS (
			SELECT 1 FROM pending_queries
			WHERE query_text = $2
			  AND session_id = $4
			  AND created_at >= now() - interval '1 hour'
		)`
	if _, err := s.db.ExecContext(ctx, q, uuid.New(), queryText, language, sessionID); err != nil {
		return fmt.Errorf("RecordPendingQuery: %w", err)
	}
	return nil
}

// PromotePendingQuery помечает самый свежий неотвеченный запрос с данным
// текстом и сессией как обработанный и прикрепляет к нему ответ.
func (s *Store) PromotePendingQuery(ctx context.Context, queryText, sessionID, answer string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE pending_queries
		SET promoted = TRUE, suggested_answer = $3
		WHERE id = (
			SELECT id FROM pending_queries
			WHERE query_text = $1 AND session_id = $2
			ORDER BY created_at DESC
			LIMIT 1
		)`
	if _, err := s.db.ExecContext(ctx, q, queryText, sessionID, answer); err != nil {
		return fmt.Errorf("PromotePendingQuery: %w", err)
	}
	return nil
}

// TopPendingQueries возвращает самые частые необработанные запросы
// (для админ-панели).
func (s *Store) TopPendingQueries(ctx context.Context, limit int) ([]PendingQuerySummary, error) {
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT query_text, language, COUNT(*) AS cnt, MAX(created_at) AS last_seen
		FROM pending_queries
		WHERE promoted = FALSE
		GROUP BY query_text, language
		ORDER BY cnt DESC, last_seen DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("TopPendingQueries: %w", err)
	}
	defer rows.Close()

	var out []PendingQuerySummary
	for rows.Next() {
		var p PendingQuerySummary
		if err := rows.Scan(&p.QueryText, &p.Language, &p.Count, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("TopPendingQueries: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TopPendingQueries: rows: %w", err)
	}
	return out, nil
}

// PendingQuerySummary — агрегат по необработанным запросам.
type PendingQuerySummary struct {
	QueryText string    `json:"queryText"`
	Language  string    `json:"language"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"lastSeen"`
}

// scanKnowledgeEntry читает одну строку knowledge_entries.
func scanKnowledgeEntry(rows interface {
	Scan(dest ...interface{}) error
}) (*models.KnowledgeEntry, error) {
	var (
		entry    models.KnowledgeEntry
		lastUsed sql.NullTime
	)
	if err := rows.Scan(
		&entry.ID, &entry.Store, &entry.Question, &entry.Answer, &entry.Category,
		&entry.Keywords, &entry.Language, &entry.Source, &entry.ConfidenceScore,
		&entry.IsVerified, &entry.IsActive, &entry.UsageCount, &lastUsed,
		&entry.CreatedAt, &entry.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scanKnowledgeEntry: %w", err)
	}
	entry.LastUsedAt = nullTimeToPointer(lastUsed)
	return &entry, nil
}

// escapeLike экранирует спецсимволы шаблона LIKE в пользовательском запросе.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

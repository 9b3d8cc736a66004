package database

import (
	"context"
	"database/sql"
	"fmt"

	"unibotserver/models"
)

// ActiveFilterRules возвращает все активные правила фильтрации. Отбор по
// типу контента и языку и упорядочивание выполняет пакет moderation.
func (s *Store) ActiveFilterRules(ctx context.Context) ([]models.ContentFilterRule, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, filter_type, pattern, severity, replacement,
		       applies_to_input, applies_to_output, applies_to_kb,
		       language, is_active, created_at, updated_at
		FROM content_filter_rules
		WHERE is_active = TRUE AND pattern <> ''`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ActiveFilterRules: %w", err)
	}
	defer rows.Close()

	var rules []models.ContentFilterRule
	for rows.Next() {
		var r models.ContentFilterRule
		if err := rows.Scan(
			&r.ID, &r.FilterType, &r.Pattern, &r.Severity, &r.Replacement,
			&r.AppliesToInput, &r.AppliesToOutput, &r.AppliesToKB,
			&r.Language, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ActiveFilterRules: scan: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ActiveFilterRules: rows: %w", err)
	}
	return rules, nil
}

// AddModerationEvent пишет запись журнала модерации.
func (s *Store) AddModerationEvent(ctx context.Context, event *models.ModerationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		INSERT INTO moderation_events
			(id, original_text, modified_text, action, matched_rule_id,
			 content_type, session_id, client_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, q,
		event.ID, event.OriginalText, event.ModifiedText, event.Action,
		uuidPointerToNullString(event.MatchedRuleID),
		event.ContentType, event.SessionID, event.ClientAddress, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("AddModerationEvent: %w", err)
	}
	return nil
}

// ModerationEvents возвращает последние записи журнала модерации
// (для админ-панели).
func (s *Store) ModerationEvents(ctx context.Context, limit int) ([]models.ModerationEvent, error) {
	if limit < 1 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, original_text, modified_text, action, matched_rule_id,
		       content_type, session_id, client_address, created_at
		FROM moderation_events
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("ModerationEvents: %w", err)
	}
	defer rows.Close()

	var events []models.ModerationEvent
	for rows.Next() {
		var (
			e        models.ModerationEvent
			ruleNull sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.OriginalText, &e.ModifiedText, &e.Action, &ruleNull,
			&e.ContentType, &e.SessionID, &e.ClientAddress, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ModerationEvents: scan: %w", err)
		}
		ruleID, err := nullUUIDToPointer(ruleNull)
		if err != nil {
			return nil, fmt.Errorf("ModerationEvents: rule id: %w", err)
		}
		e.MatchedRuleID = ruleID
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ModerationEvents: rows: %w", err)
	}
	return events, nil
}

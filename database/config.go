package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"unibotserver/models"
)

// ActiveAPIConfig возвращает активную конфигурацию провайдера или (nil, nil),
// если активной записи нет.
func (s *Store) ActiveAPIConfig(ctx context.Context) (*models.APIKeyConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var cfg models.APIKeyConfig
	const q = `
		SELECT id, provider, api_key, api_url, is_active, created_at
		FROM api_key_configs
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`
	err := s.db.QueryRowContext(ctx, q).Scan(
		&cfg.ID, &cfg.Provider, &cfg.APIKey, &cfg.APIURL, &cfg.IsActive, &cfg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ActiveAPIConfig: %w", err)
	}
	return &cfg, nil
}

// ActiveModelConfig возвращает активную конфигурацию модели или (nil, nil).
func (s *Store) ActiveModelConfig(ctx context.Context) (*models.AIModelConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var cfg models.AIModelConfig
	const q = `
		SELECT id, name, model_name, max_tokens, temperature, top_p, repetition_penalty,
		       is_active, created_at
		FROM ai_model_configs
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`
	err := s.db.QueryRowContext(ctx, q).Scan(
		&cfg.ID, &cfg.Name, &cfg.ModelName, &cfg.MaxTokens, &cfg.Temperature,
		&cfg.TopP, &cfg.RepetitionPenalty, &cfg.IsActive, &cfg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ActiveModelConfig: %w", err)
	}
	return &cfg, nil
}

// ActiveSystemPrompt возвращает активный системный промпт или (nil, nil).
func (s *Store) ActiveSystemPrompt(ctx context.Context) (*models.SystemPrompt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var prompt models.SystemPrompt
	const q = `
		SELECT id, name, prompt_type, content, is_active, created_at
		FROM system_prompts
		WHERE prompt_type = 'system' AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`
	err := s.db.QueryRowContext(ctx, q).Scan(
		&prompt.ID, &prompt.Name, &prompt.PromptType, &prompt.Content,
		&prompt.IsActive, &prompt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ActiveSystemPrompt: %w", err)
	}
	return &prompt, nil
}

// setActive атомарно переносит флаг is_active на одну запись таблицы:
// снятие со всех и установка выполняются в одной транзакции, чтобы при
// конкурентных правках не осталось двух активных записей.
func (s *Store) setActive(ctx context.Context, table string, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("setActive: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_active = FALSE WHERE is_active = TRUE`, table)); err != nil {
		return fmt.Errorf("setActive: clear: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_active = TRUE WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("setActive: set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("setActive: запись %s не найдена в %s", id, table)
	}

	return tx.Commit()
}

// SetActiveModelConfig делает активной указанную конфигурацию модели.
func (s *Store) SetActiveModelConfig(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, "ai_model_configs", id)
}

// SetActiveAPIConfig делает активной указанную конфигурацию провайдера.
func (s *Store) SetActiveAPIConfig(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, "api_key_configs", id)
}

// SetActiveSystemPrompt делает активным указанный системный промпт.
func (s *Store) SetActiveSystemPrompt(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, "system_prompts", id)
}

// ─────────────────────────── администраторы

// GetAdmin возвращает администратора по email или (nil, nil), если его нет.
func (s *Store) GetAdmin(ctx context.Context, email string) (*models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var admin models.Admin
	const q = `
		SELECT id, name, email, password_hash, role, active
		FROM admins
		WHERE email = $1`
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &admin.Role, &admin.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAdmin: %w", err)
	}
	return &admin, nil
}

// VerifyPassword сверяет пароль с bcrypt-хешем.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestActiveSystemPrompt_FiltersSystemType(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	// Выборка обязана фильтровать по prompt_type = 'system': именно с этим
	// типом запись создаётся при инициализации базы
	mock.ExpectQuery(`(?s)SELECT id, name, prompt_type, content, is_active, created_at.*FROM system_prompts.*WHERE prompt_type = 'system' AND is_active = TRUE`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "prompt_type", "content", "is_active", "created_at"},
		).AddRow(id.String(), "Базовый промпт", "system", "Ты — помощник университета.", true, time.Now()))

	prompt, err := store.ActiveSystemPrompt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prompt)
	assert.Equal(t, id, prompt.ID)
	assert.Equal(t, "system", prompt.PromptType)
	assert.Equal(t, "Ты — помощник университета.", prompt.Content)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveSystemPrompt_NoneActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM system_prompts`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "prompt_type", "content", "is_active", "created_at"},
		))

	prompt, err := store.ActiveSystemPrompt(context.Background())
	require.NoError(t, err)
	assert.Nil(t, prompt, "отсутствие активного промпта — не ошибка")
}

func TestSetActiveSystemPrompt_ClearThenSetInOneTx(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	// Снятие флага со всех записей и установка на одну — в одной транзакции
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE system_prompts SET is_active = FALSE WHERE is_active = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE system_prompts SET is_active = TRUE WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetActiveSystemPrompt(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveModelConfig_UnknownIDRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ai_model_configs SET is_active = FALSE WHERE is_active = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ai_model_configs SET is_active = TRUE WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetActiveModelConfig(context.Background(), id)
	require.Error(t, err, "несуществующая запись не оставляет таблицу без активной")
	require.NoError(t, mock.ExpectationsWereMet())
}

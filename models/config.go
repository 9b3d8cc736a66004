package models

import (
	"time"

	"github.com/google/uuid"
)

// AIModelConfig представляет собой конфигурацию модели и параметров сэмплинга.
// В любой момент активна не более одной записи; активацию выполняет
// административный слой атомарно (снять со всех, поставить на одну).
type AIModelConfig struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	ModelName         string    `json:"modelName"`
	MaxTokens         int       `json:"maxTokens"`
	Temperature       float64   `json:"temperature"`
	TopP              float64   `json:"topP"`
	RepetitionPenalty float64   `json:"repetitionPenalty"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
}

// APIKeyConfig представляет собой учётные данные провайдера ЛЛМ.
type APIKeyConfig struct {
	ID        uuid.UUID `json:"id"`
	Provider  string    `json:"provider"`
	APIKey    string    `json:"-"` // не отдаём наружу
	APIURL    string    `json:"apiUrl"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// SystemPrompt представляет собой системный промпт для ЛЛМ.
type SystemPrompt struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PromptType string    `json:"promptType"` // "system"
	Content    string    `json:"content"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Admin представляет собой администратора системы.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "admin", "staff"
	Active       bool      `json:"active"`
}

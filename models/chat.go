package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы сообщений в чате
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
	MessageTypeSystem    = "system"
)

// ChatSession представляет собой сессию чата с пользователем.
type ChatSession struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"sessionId"` // внешний идентификатор сессии
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// ChatMessage представляет собой одно сообщение в сессии.
type ChatMessage struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"sessionId"`
	MessageType string    `json:"messageType"` // "user", "assistant", "system"
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`

	// Метаданные ответа ЛЛМ (только для сообщений ассистента)
	ResponseTime float64 `json:"responseTime,omitempty"` // в секундах
	TokensUsed   int     `json:"tokensUsed,omitempty"`
	ModelUsed    string  `json:"modelUsed,omitempty"`
}

// RequestLog представляет собой журнальную запись одного обращения к ЛЛМ
// (полный обмен: исходное сообщение пользователя и итоговый ответ).
// После создания запись не изменяется.
type RequestLog struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"sessionId"`
	UserMessage  string    `json:"userMessage"` // исходный текст, без фильтрации
	AIResponse   string    `json:"aiResponse"`  // итоговый, возможно отмодерированный текст
	ResponseTime float64   `json:"responseTime"`
	APISuccess   bool      `json:"apiSuccess"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	TokensUsed   int       `json:"tokensUsed"`
	Moderated    bool      `json:"moderated"` // был ли ответ изменён модерацией

	// Записи базы знаний, использованные при формировании ответа
	FAQEntriesUsed  []uuid.UUID `json:"faqEntriesUsed,omitempty"`
	AutoEntriesUsed []uuid.UUID `json:"autoEntriesUsed,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

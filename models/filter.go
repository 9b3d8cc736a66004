package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы фильтров контента
const (
	FilterTypeBannedWord = "banned_word" // отдельное слово (границы слова)
	FilterTypePhrase     = "phrase"      // подстрока без учёта регистра
	FilterTypePattern    = "pattern"     // регулярное выражение
)

// Уровни серьёзности правила
const (
	SeverityLow    = "low"    // предупреждение, текст не меняется
	SeverityMedium = "medium" // совпадения заменяются на replacement
	SeverityHigh   = "high"   // текст целиком заменяется уведомлением о блокировке
)

// Типы контента, к которым применяется модерация
const (
	ContentTypeUserInput  = "user_input"
	ContentTypeAIResponse = "ai_response"
	ContentTypeFAQResult  = "faq_result"
)

// Действия модерации
const (
	ActionWarned   = "warned"
	ActionCensored = "censored"
	ActionBlocked  = "blocked"
)

// ContentFilterRule представляет собой правило фильтрации контента.
// Правила создаются администратором, ядро их только читает.
type ContentFilterRule struct {
	ID              uuid.UUID `json:"id"`
	FilterType      string    `json:"filterType"` // banned_word, phrase, pattern
	Pattern         string    `json:"pattern"`
	Severity        string    `json:"severity"`    // low, medium, high
	Replacement     string    `json:"replacement"` // по умолчанию "***"
	AppliesToInput  bool      `json:"appliesToInput"`
	AppliesToOutput bool      `json:"appliesToOutput"`
	AppliesToKB     bool      `json:"appliesToKb"`
	Language        string    `json:"language"` // "ru", "kk", "en" или "all"
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AppliesTo сообщает, применяется ли правило к данному типу контента.
func (r *ContentFilterRule) AppliesTo(contentType string) bool {
	switch contentType {
	case ContentTypeUserInput:
		return r.AppliesToInput
	case ContentTypeAIResponse:
		return r.AppliesToOutput
	case ContentTypeFAQResult:
		return r.AppliesToKB
	}
	return false
}

// ModerationEvent представляет собой запись журнала модерации.
// Создаётся один раз на вызов фильтра, при котором сработало хотя бы одно
// правило, и после создания не изменяется.
type ModerationEvent struct {
	ID            uuid.UUID  `json:"id"`
	OriginalText  string     `json:"originalText"`
	ModifiedText  string     `json:"modifiedText"`
	Action        string     `json:"action"`                  // warned, censored, blocked
	MatchedRuleID *uuid.UUID `json:"matchedRuleId,omitempty"` // слабая ссылка на правило
	ContentType   string     `json:"contentType"`
	SessionID     string     `json:"sessionId"`
	ClientAddress string     `json:"clientAddress"`
	CreatedAt     time.Time  `json:"createdAt"`
}

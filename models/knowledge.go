package models

import (
	"time"

	"github.com/google/uuid"
)

// Хранилища базы знаний. Кураторский FAQ и автоматически пополняемое
// хранилище имеют одинаковую форму и различаются только тегом.
const (
	StoreFAQ  = "faq"  // записи, созданные администраторами
	StoreAuto = "auto" // записи, выращенные из ответов ЛЛМ
)

// Источники записи базы знаний
const (
	SourceManual      = "manual"
	SourceAIGenerated = "ai_generated"
	SourceSearchBased = "search_based"
)

// Категории записей базы знаний
const (
	CategorySchedules      = "schedules"
	CategoryDocuments      = "documents"
	CategoryScholarships   = "scholarships"
	CategoryExams          = "exams"
	CategoryAdministration = "administration"
	CategoryGeneral        = "general"
)

// KnowledgeEntry представляет собой запись базы знаний.
type KnowledgeEntry struct {
	ID              uuid.UUID  `json:"id"`
	Store           string     `json:"store"` // "faq" или "auto"
	Question        string     `json:"question"`
	Answer          string     `json:"answer"`
	Category        string     `json:"category"`
	Keywords        string     `json:"keywords"` // ключевые слова через запятую
	Language        string     `json:"language"`
	Source          string     `json:"source"`
	ConfidenceScore float64    `json:"confidenceScore"` // в диапазоне [0, 1]
	IsVerified      bool       `json:"isVerified"`
	IsActive        bool       `json:"isActive"`
	UsageCount      int        `json:"usageCount"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PendingQuery представляет собой запрос, для которого база знаний
// не нашла ответа — кандидат на автоматическое пополнение.
type PendingQuery struct {
	ID              uuid.UUID `json:"id"`
	QueryText       string    `json:"queryText"`
	Language        string    `json:"language"`
	ResultsFound    bool      `json:"resultsFound"`
	ShouldPromote   bool      `json:"shouldPromote"`
	Promoted        bool      `json:"promoted"`
	SuggestedAnswer string    `json:"suggestedAnswer,omitempty"` // ответ ЛЛМ, прикреплённый при промоции
	SessionID       string    `json:"sessionId"`
	CreatedAt       time.Time `json:"createdAt"`
}

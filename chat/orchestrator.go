// Package chat реализует обработку входящего сообщения пользователя:
// модерация входа → поиск по базе знаний → вызов ЛЛМ → модерация выхода →
// журналирование → условное пополнение базы знаний.
package chat

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"unibotserver/llm"
	"unibotserver/models"
	"unibotserver/moderation"
)

const (
	// MaxMessageLength — максимальная длина сообщения пользователя в символах.
	MaxMessageLength = 1000

	// minLearnLength — минимальная длина ответа ЛЛМ (в символах), при
	// которой из него выращивается новая запись базы знаний.
	minLearnLength = 50

	// maxContextEntries — сколько записей базы знаний попадает в промпт.
	maxContextEntries = 3
)

// defaultSystemPrompt используется, когда в БД нет активного промпта.
const defaultSystemPrompt = "Ты — ассистент университета, помогающий студентам с вопросами о расписании, " +
	"документах, стипендиях, экзаменах и работе администрации. Отвечай по умолчанию на русском языке; " +
	"если вопрос задан на казахском или английском, отвечай на языке вопроса. Используй сведения из базы " +
	"знаний, если они даны. Если нужной информации нет, дай общий совет и подскажи, в какое подразделение " +
	"обратиться."

// providerErrorMessage показывается пользователю при ошибке провайдера ЛЛМ.
const providerErrorMessage = "Извините, произошла ошибка при обработке вашего запроса. Попробуйте ещё раз позже."

// Store — коллаборатор хранения, нужный оркестратору.
type Store interface {
	GetOrCreateSession(ctx context.Context, sessionID string) (*models.ChatSession, error)
	AddChatMessage(ctx context.Context, sessionID string, msg *models.ChatMessage) error
	AddRequestLog(ctx context.Context, entry *models.RequestLog) error
	RecordPendingQuery(ctx context.Context, queryText, language, sessionID string) error
	PromotePendingQuery(ctx context.Context, queryText, sessionID, answer string) error
	CreateKnowledgeEntry(ctx context.Context, entry *models.KnowledgeEntry) error
	MarkEntryUsed(ctx context.Context, id uuid.UUID) error
	ActiveSystemPrompt(ctx context.Context) (*models.SystemPrompt, error)
}

// ContentFilter — модератор контента (см. пакет moderation).
type ContentFilter interface {
	Filter(ctx context.Context, text, contentType, language, sessionID, clientAddr string) moderation.Result
}

// ContextSearcher — поиск контекста по базе знаний (см. пакет knowledge).
type ContextSearcher interface {
	ContextFor(ctx context.Context, message string, maxEntries int) []models.KnowledgeEntry
}

// Completer — клиент ЛЛМ (см. пакет llm).
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) llm.Result
}

// Result — итог обработки одного сообщения. Обработчик HTTP обязан
// ориентироваться на флаг Success; ошибки наружу не выбрасываются.
type Result struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message,omitempty"`
	Error        string  `json:"error,omitempty"`
	Blocked      bool    `json:"blocked,omitempty"`
	Moderated    bool    `json:"moderated,omitempty"`
	ResponseTime float64 `json:"responseTime"`
	TokensUsed   int     `json:"tokensUsed,omitempty"`
}

// Orchestrator связывает модерацию, базу знаний и ЛЛМ в один конвейер.
type Orchestrator struct {
	store     Store
	moderator ContentFilter
	kb        ContextSearcher
	client    Completer
	logger    *log.Logger
}

// NewOrchestrator создает Orchestrator. Если logger == nil, используется
// log.Default().
func NewOrchestrator(store Store, moderator ContentFilter, kb ContextSearcher, client Completer, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		store:     store,
		moderator: moderator,
		kb:        kb,
		client:    client,
		logger:    logger,
	}
}

// ProcessMessage обрабатывает одно входящее сообщение от начала до конца.
// Любая внутренняя ошибка сворачивается в Result — вызывающая сторона
// никогда не получает панику или необработанную ошибку.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, userText, clientAddr string) Result {
	original := strings.TrimSpace(userText)
	if original == "" {
		return Result{Success: false, Error: "Сообщение не может быть пустым"}
	}
	if utf8.RuneCountInString(original) > MaxMessageLength {
		return Result{Success: false, Error: "Сообщение слишком длинное (максимум 1000 символов)"}
	}

	if _, err := o.store.GetOrCreateSession(ctx, sessionID); err != nil {
		// Работаем дальше: журналирование сессии не критично для ответа
		o.logger.Printf("Чат: не удалось получить сессию %s: %v", sessionID, err)
	}

	// 1. Модерация входа. Блокировка — жёсткий ранний выход: ЛЛМ не
	// вызывается, журнал обращения не пишется (событие модерации уже
	// записано фильтром).
	inRes := o.moderator.Filter(ctx, original, models.ContentTypeUserInput, "auto", sessionID, clientAddr)
	if inRes.Action == models.ActionBlocked {
		o.logger.Printf("Чат: сообщение в сессии %s заблокировано модерацией", sessionID)
		return Result{Success: false, Blocked: true, Message: inRes.FilteredText}
	}
	input := inRes.FilteredText
	language := inRes.Language

	o.saveMessage(ctx, sessionID, &models.ChatMessage{
		MessageType: models.MessageTypeUser,
		Content:     original,
		Timestamp:   time.Now(),
	})

	// 2. Поиск контекста. Пустой результат фиксируется как неотвеченный
	// запрос (с часовым окном дедупликации внутри хранилища).
	entries := o.kb.ContextFor(ctx, input, maxContextEntries)
	if len(entries) == 0 {
		if err := o.store.RecordPendingQuery(ctx, input, language, sessionID); err != nil {
			o.logger.Printf("Чат: не удалось записать неотвеченный запрос: %v", err)
		}
	} else {
		for _, entry := range entries {
			if err := o.store.MarkEntryUsed(ctx, entry.ID); err != nil {
				o.logger.Printf("Чат: не удалось отметить использование записи %s: %v", entry.ID, err)
			}
		}
	}

	// 3–4. Составляем промпт и вызываем ЛЛМ.
	res := o.client.Complete(ctx, o.composeMessages(ctx, entries, input))

	// 5. Модерация выхода: отфильтрованная версия подменяет ответ до
	// показа пользователю.
	finalText := res.Message
	moderated := false
	if res.Success && strings.TrimSpace(res.Message) != "" {
		outRes := o.moderator.Filter(ctx, res.Message, models.ContentTypeAIResponse, "auto", sessionID, clientAddr)
		if outRes.IsFiltered {
			finalText = outRes.FilteredText
			moderated = true
		}
	}

	// 6. Журнал обращения: исходный текст пользователя без фильтрации,
	// итоговый (возможно отмодерированный) ответ.
	faqUsed, autoUsed := splitByStore(entries)
	logEntry := &models.RequestLog{
		ID:              uuid.New(),
		SessionID:       sessionID,
		UserMessage:     original,
		AIResponse:      finalText,
		ResponseTime:    res.ResponseTime,
		APISuccess:      res.Success,
		ErrorMessage:    res.Error,
		TokensUsed:      res.TokensUsed,
		Moderated:       moderated,
		FAQEntriesUsed:  faqUsed,
		AutoEntriesUsed: autoUsed,
		Timestamp:       time.Now(),
	}
	if err := o.store.AddRequestLog(ctx, logEntry); err != nil {
		o.logger.Printf("Чат: не удалось записать журнал обращения: %v", err)
	}

	if !res.Success {
		o.logger.Printf("Чат: ошибка ЛЛМ в сессии %s: %s", sessionID, res.Error)
		return Result{
			Success:      false,
			Message:      providerErrorMessage,
			Error:        res.Error,
			ResponseTime: res.ResponseTime,
		}
	}

	o.saveMessage(ctx, sessionID, &models.ChatMessage{
		MessageType:  models.MessageTypeAssistant,
		Content:      finalText,
		Timestamp:    time.Now(),
		ResponseTime: res.ResponseTime,
		TokensUsed:   res.TokensUsed,
		ModelUsed:    res.Model,
	})

	// 7. Пополнение базы знаний: база ничего не нашла, ЛЛМ ответила
	// содержательно — выращиваем новую запись и помечаем неотвеченный
	// запрос как обработанный.
	if len(entries) == 0 && utf8.RuneCountInString(finalText) >= minLearnLength {
		o.learn(ctx, input, finalText, language, sessionID)
	}

	return Result{
		Success:      true,
		Message:      finalText,
		Moderated:    moderated,
		ResponseTime: res.ResponseTime,
		TokensUsed:   res.TokensUsed,
	}
}

// composeMessages строит список сообщений для провайдера: системный промпт,
// опционально контекст базы знаний и отфильтрованный текст пользователя.
func (o *Orchestrator) composeMessages(ctx context.Context, entries []models.KnowledgeEntry, input string) []llm.Message {
	systemContent := defaultSystemPrompt
	if prompt, err := o.store.ActiveSystemPrompt(ctx); err != nil {
		o.logger.Printf("Чат: не удалось получить системный промпт, используется стандартный: %v", err)
	} else if prompt != nil && strings.TrimSpace(prompt.Content) != "" {
		systemContent = prompt.Content
	}

	messages := []llm.Message{{Role: "system", Content: systemContent}}

	if len(entries) > 0 {
		var b strings.Builder
		b.WriteString("Сведения из базы знаний:\n")
		for _, entry := range entries {
			b.WriteString("Q: " + entry.Question + "\n")
			b.WriteString("A: " + entry.Answer + "\n\n")
		}
		messages = append(messages, llm.Message{Role: "system", Content: b.String()})
	}

	return append(messages, llm.Message{Role: "user", Content: input})
}

// learn выращивает новую запись базы знаний из ответа ЛЛМ.
func (o *Orchestrator) learn(ctx context.Context, question, answer, language, sessionID string) {
	entry := &models.KnowledgeEntry{
		ID:              uuid.New(),
		Store:           models.StoreAuto,
		Question:        question,
		Answer:          answer,
		Category:        categorize(question),
		Keywords:        extractKeywords(question),
		Language:        language,
		Source:          models.SourceAIGenerated,
		ConfidenceScore: 0.8,
		IsVerified:      false,
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := o.store.CreateKnowledgeEntry(ctx, entry); err != nil {
		o.logger.Printf("Чат: не удалось создать запись базы знаний: %v", err)
		return
	}
	o.logger.Printf("Чат: база знаний пополнена записью %s (категория %s)", entry.ID, entry.Category)

	if err := o.store.PromotePendingQuery(ctx, question, sessionID, answer); err != nil {
		o.logger.Printf("Чат: не удалось отметить неотвеченный запрос: %v", err)
	}
}

// saveMessage пишет сообщение в историю сессии; ошибка не прерывает обработку.
func (o *Orchestrator) saveMessage(ctx context.Context, sessionID string, msg *models.ChatMessage) {
	msg.ID = uuid.New()
	if err := o.store.AddChatMessage(ctx, sessionID, msg); err != nil {
		o.logger.Printf("Чат: не удалось сохранить сообщение в сессии %s: %v", sessionID, err)
	}
}

// splitByStore разделяет использованные записи по хранилищам.
func splitByStore(entries []models.KnowledgeEntry) (faq, auto []uuid.UUID) {
	for _, entry := range entries {
		if entry.Store == models.StoreAuto {
			auto = append(auto, entry.ID)
		} else {
			faq = append(faq, entry.ID)
		}
	}
	return faq, auto
}

// extractKeywords собирает ключевые слова для новой записи из слов запроса
// длиннее двух символов.
func extractKeywords(question string) string {
	var words []string
	for _, token := range strings.Fields(strings.ToLower(question)) {
		token = strings.Trim(token, ".,!?;:()\"'«»")
		if utf8.RuneCountInString(token) > 2 {
			words = append(words, token)
		}
	}
	return strings.Join(words, ", ")
}

package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibotserver/llm"
	"unibotserver/models"
	"unibotserver/moderation"
)

// fakeStore записывает все обращения оркестратора к хранилищу.
type fakeStore struct {
	prompt *models.SystemPrompt

	sessions       []string
	messages       []*models.ChatMessage
	requestLogs    []*models.RequestLog
	pendingQueries []string
	promoted       []string
	created        []*models.KnowledgeEntry
	markedUsed     []uuid.UUID
}

func (f *fakeStore) GetOrCreateSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	f.sessions = append(f.sessions, sessionID)
	return &models.ChatSession{ID: uuid.New(), SessionID: sessionID}, nil
}

func (f *fakeStore) AddChatMessage(ctx context.Context, sessionID string, msg *models.ChatMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeStore) AddRequestLog(ctx context.Context, entry *models.RequestLog) error {
	f.requestLogs = append(f.requestLogs, entry)
	return nil
}

func (f *fakeStore) RecordPendingQuery(ctx context.Context, queryText, language, sessionID string) error {
	f.pendingQueries = append(f.pendingQueries, queryText)
	return nil
}

func (f *fakeStore) PromotePendingQuery(ctx context.Context, queryText, sessionID, answer string) error {
	f.promoted = append(f.promoted, queryText)
	return nil
}

func (f *fakeStore) CreateKnowledgeEntry(ctx context.Context, entry *models.KnowledgeEntry) error {
	f.created = append(f.created, entry)
	return nil
}

func (f *fakeStore) MarkEntryUsed(ctx context.Context, id uuid.UUID) error {
	f.markedUsed = append(f.markedUsed, id)
	return nil
}

func (f *fakeStore) ActiveSystemPrompt(ctx context.Context) (*models.SystemPrompt, error) {
	return f.prompt, nil
}

// fakeFilter пропускает текст как есть, кроме заданных реакций.
type fakeFilter struct {
	blockInput    bool
	censorWord    string
	inputCalls    int
	outputCalls   int
	lastInputText string
}

func (f *fakeFilter) Filter(ctx context.Context, text, contentType, language, sessionID, clientAddr string) moderation.Result {
	switch contentType {
	case models.ContentTypeUserInput:
		f.inputCalls++
		f.lastInputText = text
		if f.blockInput {
			return moderation.Result{
				FilteredText: moderation.BlockNotice,
				IsFiltered:   true,
				Action:       models.ActionBlocked,
				Language:     "ru",
			}
		}
	case models.ContentTypeAIResponse:
		f.outputCalls++
		if f.censorWord != "" && strings.Contains(text, f.censorWord) {
			return moderation.Result{
				FilteredText: strings.ReplaceAll(text, f.censorWord, "***"),
				IsFiltered:   true,
				Action:       models.ActionCensored,
				Language:     "ru",
			}
		}
	}
	return moderation.Result{FilteredText: text, Language: "ru"}
}

// fakeSearcher отдаёт фиксированный контекст.
type fakeSearcher struct {
	entries []models.KnowledgeEntry
	calls   int
}

func (f *fakeSearcher) ContextFor(ctx context.Context, message string, maxEntries int) []models.KnowledgeEntry {
	f.calls++
	if len(f.entries) > maxEntries {
		return f.entries[:maxEntries]
	}
	return f.entries
}

// fakeCompleter отдаёт фиксированный результат и запоминает промпт.
type fakeCompleter struct {
	result   llm.Result
	calls    int
	messages []llm.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message) llm.Result {
	f.calls++
	f.messages = messages
	return f.result
}

func okResult(message string) llm.Result {
	return llm.Result{Success: true, Message: message, ResponseTime: 0.5, TokensUsed: 30, Model: "test/model"}
}

const longAnswer = "Стипендия выплачивается ежемесячно до 25 числа через бухгалтерию университета."

func TestProcessMessage_EmptyAndTooLong(t *testing.T) {
	o := NewOrchestrator(&fakeStore{}, &fakeFilter{}, &fakeSearcher{}, &fakeCompleter{}, nil)

	res := o.ProcessMessage(context.Background(), "s1", "   ", "")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res = o.ProcessMessage(context.Background(), "s1", strings.Repeat("а", MaxMessageLength+1), "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "длинное")
}

func TestProcessMessage_BlockedInputShortCircuits(t *testing.T) {
	store := &fakeStore{}
	filter := &fakeFilter{blockInput: true}
	completer := &fakeCompleter{result: okResult("не должно вызываться")}
	o := NewOrchestrator(store, filter, &fakeSearcher{}, completer, nil)

	res := o.ProcessMessage(context.Background(), "s1", "запрещённый текст", "127.0.0.1")

	assert.False(t, res.Success)
	assert.True(t, res.Blocked)
	assert.Equal(t, moderation.BlockNotice, res.Message)

	// Жёсткий ранний выход: ни ЛЛМ, ни журнала обращения, ни неотвеченного
	// запроса, ни сообщений в истории
	assert.Zero(t, completer.calls)
	assert.Empty(t, store.requestLogs)
	assert.Empty(t, store.pendingQueries)
	assert.Empty(t, store.messages)
}

func TestProcessMessage_NoContextRecordsPendingAndLearns(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{result: okResult(longAnswer)}
	o := NewOrchestrator(store, &fakeFilter{}, &fakeSearcher{}, completer, nil)

	res := o.ProcessMessage(context.Background(), "s1", "Когда стипендия?", "")

	require.True(t, res.Success)
	assert.Equal(t, longAnswer, res.Message)

	// База знаний пуста: запрос зафиксирован как неотвеченный
	require.Equal(t, []string{"Когда стипендия?"}, store.pendingQueries)

	// Ответ длинный: выращена запись и запрос отмечен обработанным
	require.Len(t, store.created, 1)
	entry := store.created[0]
	assert.Equal(t, models.StoreAuto, entry.Store)
	assert.Equal(t, "Когда стипендия?", entry.Question)
	assert.Equal(t, longAnswer, entry.Answer)
	assert.Equal(t, models.CategoryScholarships, entry.Category)
	assert.Equal(t, models.SourceAIGenerated, entry.Source)
	assert.Equal(t, 0.8, entry.ConfidenceScore)
	assert.False(t, entry.IsVerified)
	assert.True(t, entry.IsActive)
	assert.Equal(t, []string{"Когда стипендия?"}, store.promoted)

	// Журнал обращения записан с исходным текстом
	require.Len(t, store.requestLogs, 1)
	assert.Equal(t, "Когда стипендия?", store.requestLogs[0].UserMessage)
	assert.Equal(t, longAnswer, store.requestLogs[0].AIResponse)
	assert.True(t, store.requestLogs[0].APISuccess)
}

func TestProcessMessage_ShortAnswerDoesNotLearn(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{result: okResult("Обратитесь в деканат.")}
	o := NewOrchestrator(store, &fakeFilter{}, &fakeSearcher{}, completer, nil)

	res := o.ProcessMessage(context.Background(), "s1", "Где деканат?", "")

	require.True(t, res.Success)
	assert.Empty(t, store.created, "короткий ответ не попадает в базу знаний")
	assert.Empty(t, store.promoted)
	// Неотвеченный запрос при этом зафиксирован
	assert.Len(t, store.pendingQueries, 1)
}

func TestProcessMessage_ContextMarksEntriesUsed(t *testing.T) {
	faq := models.KnowledgeEntry{ID: uuid.New(), Store: models.StoreFAQ, Question: "q1", Answer: "a1"}
	auto := models.KnowledgeEntry{ID: uuid.New(), Store: models.StoreAuto, Question: "q2", Answer: "a2"}
	store := &fakeStore{}
	completer := &fakeCompleter{result: okResult(longAnswer)}
	searcher := &fakeSearcher{entries: []models.KnowledgeEntry{faq, auto}}
	o := NewOrchestrator(store, &fakeFilter{}, searcher, completer, nil)

	res := o.ProcessMessage(context.Background(), "s1", "Когда стипендия?", "")

	require.True(t, res.Success)
	assert.ElementsMatch(t, []uuid.UUID{faq.ID, auto.ID}, store.markedUsed)
	assert.Empty(t, store.pendingQueries, "контекст найден — запрос не считается неотвеченным")
	assert.Empty(t, store.created, "при найденном контексте пополнения не происходит")

	// Идентификаторы использованных записей разложены по хранилищам
	require.Len(t, store.requestLogs, 1)
	assert.Equal(t, []uuid.UUID{faq.ID}, store.requestLogs[0].FAQEntriesUsed)
	assert.Equal(t, []uuid.UUID{auto.ID}, store.requestLogs[0].AutoEntriesUsed)

	// Контекст попал в промпт вторым системным сообщением
	require.Len(t, completer.messages, 3)
	assert.Equal(t, "system", completer.messages[1].Role)
	assert.Contains(t, completer.messages[1].Content, "Сведения из базы знаний:")
	assert.Contains(t, completer.messages[1].Content, "Q: q1")
	assert.Contains(t, completer.messages[1].Content, "A: a2")
}

func TestProcessMessage_OutputModerationOverwrites(t *testing.T) {
	store := &fakeStore{}
	raw := "Ответ содержит запрещенка и этого достаточно для длины порога обучения."
	completer := &fakeCompleter{result: okResult(raw)}
	filter := &fakeFilter{censorWord: "запрещенка"}
	o := NewOrchestrator(store, filter, &fakeSearcher{}, completer, nil)

	res := o.ProcessMessage(context.Background(), "s1", "Какой-то вопрос тут", "")

	require.True(t, res.Success)
	assert.True(t, res.Moderated)
	assert.NotContains(t, res.Message, "запрещенка")
	assert.Contains(t, res.Message, "***")

	// И журнал, и база знаний видят только отмодерированную версию
	require.Len(t, store.requestLogs, 1)
	assert.True(t, store.requestLogs[0].Moderated)
	assert.NotContains(t, store.requestLogs[0].AIResponse, "запрещенка")
	require.Len(t, store.created, 1)
	assert.NotContains(t, store.created[0].Answer, "запрещенка")
}

func TestProcessMessage_ProviderFailure(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{result: llm.Result{Success: false, Error: "API error: 500", ResponseTime: 1.2}}
	o := NewOrchestrator(store, &fakeFilter{}, &fakeSearcher{}, completer, nil)

	res := o.ProcessMessage(context.Background(), "s1", "Когда экзамен?", "")

	assert.False(t, res.Success)
	assert.Equal(t, providerErrorMessage, res.Message)
	assert.Equal(t, "API error: 500", res.Error)

	// Неудачное обращение тоже журналируется
	require.Len(t, store.requestLogs, 1)
	assert.False(t, store.requestLogs[0].APISuccess)
	assert.Equal(t, "API error: 500", store.requestLogs[0].ErrorMessage)

	// Из ошибки ничему не учимся
	assert.Empty(t, store.created)
	// Сообщение ассистента не сохраняется, только пользовательское
	require.Len(t, store.messages, 1)
	assert.Equal(t, models.MessageTypeUser, store.messages[0].MessageType)
}

func TestProcessMessage_ActivePromptUsed(t *testing.T) {
	store := &fakeStore{prompt: &models.SystemPrompt{Content: "Кастомный промпт."}}
	completer := &fakeCompleter{result: okResult(longAnswer)}
	o := NewOrchestrator(store, &fakeFilter{}, &fakeSearcher{}, completer, nil)

	o.ProcessMessage(context.Background(), "s1", "Когда стипендия?", "")

	require.NotEmpty(t, completer.messages)
	assert.Equal(t, "system", completer.messages[0].Role)
	assert.Equal(t, "Кастомный промпт.", completer.messages[0].Content)
}

func TestProcessMessage_DefaultPromptWhenNoneActive(t *testing.T) {
	completer := &fakeCompleter{result: okResult(longAnswer)}
	o := NewOrchestrator(&fakeStore{}, &fakeFilter{}, &fakeSearcher{}, completer, nil)

	o.ProcessMessage(context.Background(), "s1", "Когда стипендия?", "")

	require.NotEmpty(t, completer.messages)
	assert.Equal(t, defaultSystemPrompt, completer.messages[0].Content)
}

func TestProcessMessage_SavesBothMessages(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{result: okResult(longAnswer)}
	o := NewOrchestrator(store, &fakeFilter{}, &fakeSearcher{}, completer, nil)

	o.ProcessMessage(context.Background(), "s1", "Когда стипендия?", "")

	require.Len(t, store.messages, 2)
	assert.Equal(t, models.MessageTypeUser, store.messages[0].MessageType)
	assert.Equal(t, "Когда стипендия?", store.messages[0].Content)
	assert.Equal(t, models.MessageTypeAssistant, store.messages[1].MessageType)
	assert.Equal(t, longAnswer, store.messages[1].Content)
	assert.Equal(t, "test/model", store.messages[1].ModelUsed)
	assert.Equal(t, 30, store.messages[1].TokensUsed)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Где посмотреть расписание занятий?", models.CategorySchedules},
		{"Как получить справку об обучении?", models.CategoryDocuments},
		{"Когда выплачивается стипендия?", models.CategoryScholarships},
		{"Когда пересдача по математике?", models.CategoryExams},
		{"Как связаться с деканатом?", models.CategoryAdministration},
		{"Scholarship application deadline", models.CategoryScholarships},
		{"Емтихан кестесі қайда?", models.CategorySchedules},
		{"Просто привет", models.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, categorize(tt.text))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("Когда выплачивается стипендия за сентябрь?")
	assert.Equal(t, "когда, выплачивается, стипендия, сентябрь", got)

	// Короткие слова и пунктуация отбрасываются
	got = extractKeywords("А на «кафедре» ли?")
	assert.Equal(t, "кафедре", got)
}

package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibotserver/models"
)

// fakeRuleSource отдаёт фиксированный набор правил.
type fakeRuleSource struct {
	rules []models.ContentFilterRule
	err   error
}

func (f *fakeRuleSource) ActiveFilterRules(ctx context.Context) ([]models.ContentFilterRule, error) {
	return f.rules, f.err
}

// fakeEventSink накапливает записи журнала модерации.
type fakeEventSink struct {
	events []*models.ModerationEvent
}

func (f *fakeEventSink) AddModerationEvent(ctx context.Context, event *models.ModerationEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newRule(filterType, pattern, severity string) models.ContentFilterRule {
	return models.ContentFilterRule{
		ID:              uuid.New(),
		FilterType:      filterType,
		Pattern:         pattern,
		Severity:        severity,
		AppliesToInput:  true,
		AppliesToOutput: true,
		Language:        "all",
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func newModerator(rules []models.ContentFilterRule) (*Moderator, *fakeEventSink) {
	sink := &fakeEventSink{}
	return New(&fakeRuleSource{rules: rules}, sink, nil), sink
}

func TestFilter_NoMatchPassesThrough(t *testing.T) {
	m, sink := newModerator([]models.ContentFilterRule{
		newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium),
	})

	res := m.Filter(context.Background(), "Когда будет пересдача?", models.ContentTypeUserInput, "auto", "s1", "")

	assert.Equal(t, "Когда будет пересдача?", res.FilteredText)
	assert.False(t, res.IsFiltered)
	assert.Empty(t, res.Action)
	assert.Empty(t, sink.events, "при отсутствии совпадений журнал не пишется")
}

func TestFilter_BannedWordCensored(t *testing.T) {
	rule := newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium)
	m, sink := newModerator([]models.ContentFilterRule{rule})

	res := m.Filter(context.Background(), "Ты дурак или как", models.ContentTypeUserInput, "auto", "s1", "")

	assert.Equal(t, "Ты *** или как", res.FilteredText)
	assert.True(t, res.IsFiltered)
	assert.Equal(t, models.ActionCensored, res.Action)
	assert.Equal(t, models.SeverityMedium, res.Severity)
	require.Len(t, sink.events, 1)
	require.NotNil(t, sink.events[0].MatchedRuleID)
	assert.Equal(t, rule.ID, *sink.events[0].MatchedRuleID)
	assert.Equal(t, "Ты дурак или как", sink.events[0].OriginalText)
	assert.Equal(t, "Ты *** или как", sink.events[0].ModifiedText)
}

func TestFilter_BannedWordBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		word     string
		text     string
		filtered bool
		want     string
	}{
		{
			name:     "отдельное слово заменяется",
			word:     "дурак",
			text:     "дурак",
			filtered: true,
			want:     "***",
		},
		{
			name:     "слово с пунктуацией вокруг заменяется",
			word:     "дурак",
			text:     "Ну ты и дурак!",
			filtered: true,
			want:     "Ну ты и ***!",
		},
		{
			name:     "разный регистр",
			word:     "дурак",
			text:     "ДУРАК сказал",
			filtered: true,
			want:     "*** сказал",
		},
		{
			name:     "подстрока внутри слова не считается",
			word:     "дурак",
			text:     "полудурака не трогаем",
			filtered: false,
			want:     "полудурака не трогаем",
		},
		{
			name:     "латинское слово на границе строки",
			word:     "spam",
			text:     "this is spam",
			filtered: true,
			want:     "this is ***",
		},
		{
			name:     "латинская подстрока не считается",
			word:     "spam",
			text:     "spammer wrote this",
			filtered: false,
			want:     "spammer wrote this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newModerator([]models.ContentFilterRule{
				newRule(models.FilterTypeBannedWord, tt.word, models.SeverityMedium),
			})
			res := m.Filter(context.Background(), tt.text, models.ContentTypeUserInput, "auto", "s1", "")
			assert.Equal(t, tt.filtered, res.IsFiltered)
			assert.Equal(t, tt.want, res.FilteredText)
		})
	}
}

func TestFilter_PhraseSubstring(t *testing.T) {
	m, _ := newModerator([]models.ContentFilterRule{
		newRule(models.FilterTypePhrase, "иди к черту", models.SeverityMedium),
	})

	res := m.Filter(context.Background(), "Слушай, ИДИ К ЧЕРТУ отсюда", models.ContentTypeUserInput, "auto", "s1", "")

	assert.True(t, res.IsFiltered)
	assert.Equal(t, "Слушай, *** отсюда", res.FilteredText)
}

func TestFilter_PatternRegex(t *testing.T) {
	m, _ := newModerator([]models.ContentFilterRule{
		newRule(models.FilterTypePattern, `\d{16}`, models.SeverityHigh),
	})

	res := m.Filter(context.Background(), "Мой номер карты 1234567890123456", models.ContentTypeUserInput, "auto", "s1", "")

	assert.True(t, res.IsFiltered)
	assert.Equal(t, models.ActionBlocked, res.Action)
	assert.Equal(t, BlockNotice, res.FilteredText)
}

func TestFilter_InvalidRegexSkipped(t *testing.T) {
	broken := newRule(models.FilterTypePattern, `[unclosed`, models.SeverityHigh)
	good := newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium)
	m, _ := newModerator([]models.ContentFilterRule{broken, good})

	res := m.Filter(context.Background(), "дурак написал [unclosed", models.ContentTypeUserInput, "auto", "s1", "")

	// Битое правило не роняет модерацию и не блокирует текст
	assert.Equal(t, models.ActionCensored, res.Action)
	assert.Equal(t, "*** написал [unclosed", res.FilteredText)
}

func TestFilter_HighSeverityOverridesCensoring(t *testing.T) {
	medium := newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium)
	high := newRule(models.FilterTypePhrase, "иди к черту", models.SeverityHigh)
	m, sink := newModerator([]models.ContentFilterRule{medium, high})

	res := m.Filter(context.Background(), "дурак, иди к черту", models.ContentTypeUserInput, "auto", "s1", "")

	assert.Equal(t, models.ActionBlocked, res.Action)
	assert.Equal(t, BlockNotice, res.FilteredText)
	assert.Equal(t, models.SeverityHigh, res.Severity)
	// Правила упорядочены по серьёзности: high срабатывает первым и
	// останавливает проход, его ID попадает в журнал
	require.Len(t, sink.events, 1)
	require.NotNil(t, sink.events[0].MatchedRuleID)
	assert.Equal(t, high.ID, *sink.events[0].MatchedRuleID)
	assert.Equal(t, []uuid.UUID{high.ID}, res.MatchedRuleIDs)
}

func TestFilter_LowSeverityWarnsWithoutChanging(t *testing.T) {
	m, sink := newModerator([]models.ContentFilterRule{
		newRule(models.FilterTypeBannedWord, "дурак", models.SeverityLow),
	})

	res := m.Filter(context.Background(), "дурак", models.ContentTypeUserInput, "auto", "s1", "")

	assert.True(t, res.IsFiltered)
	assert.Equal(t, models.ActionWarned, res.Action)
	assert.Equal(t, "дурак", res.FilteredText, "low не меняет текст")
	require.Len(t, sink.events, 1)
}

func TestFilter_SecondPassIdempotent(t *testing.T) {
	m, _ := newModerator([]models.ContentFilterRule{
		newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium),
	})

	first := m.Filter(context.Background(), "Ты дурак", models.ContentTypeUserInput, "auto", "s1", "")
	second := m.Filter(context.Background(), first.FilteredText, models.ContentTypeUserInput, "auto", "s1", "")

	assert.False(t, second.IsFiltered, "повторный проход по отфильтрованному тексту ничего не находит")
	assert.Equal(t, first.FilteredText, second.FilteredText)
}

func TestFilter_ContentTypeScoping(t *testing.T) {
	rule := newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium)
	rule.AppliesToOutput = false
	m, _ := newModerator([]models.ContentFilterRule{rule})

	res := m.Filter(context.Background(), "дурак", models.ContentTypeAIResponse, "auto", "s1", "")

	assert.False(t, res.IsFiltered, "правило только для входа не трогает ответ ЛЛМ")
}

func TestFilter_LanguageScoping(t *testing.T) {
	rule := newRule(models.FilterTypeBannedWord, "fool", models.SeverityMedium)
	rule.Language = "en"
	m, _ := newModerator([]models.ContentFilterRule{rule})

	// Русский текст: английское правило не применяется даже при совпадении
	res := m.Filter(context.Background(), "Он сказал fool и ушёл", models.ContentTypeUserInput, "auto", "s1", "")
	assert.False(t, res.IsFiltered)

	// Английский текст: применяется
	res = m.Filter(context.Background(), "he is a fool", models.ContentTypeUserInput, "auto", "s1", "")
	assert.True(t, res.IsFiltered)
}

func TestFilter_RuleFetchErrorFailsOpen(t *testing.T) {
	sink := &fakeEventSink{}
	m := New(&fakeRuleSource{err: context.DeadlineExceeded}, sink, nil)

	res := m.Filter(context.Background(), "любой текст", models.ContentTypeUserInput, "auto", "s1", "")

	assert.Equal(t, "любой текст", res.FilteredText)
	assert.False(t, res.IsFiltered)
}

func TestFilter_EmptyTextUntouched(t *testing.T) {
	m, sink := newModerator([]models.ContentFilterRule{
		newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium),
	})

	res := m.Filter(context.Background(), "   ", models.ContentTypeUserInput, "auto", "s1", "")

	assert.False(t, res.IsFiltered)
	assert.Empty(t, sink.events)
}

func TestFilter_CustomReplacement(t *testing.T) {
	rule := newRule(models.FilterTypeBannedWord, "дурак", models.SeverityMedium)
	rule.Replacement = "[удалено]"
	m, _ := newModerator([]models.ContentFilterRule{rule})

	res := m.Filter(context.Background(), "Ты дурак", models.ContentTypeUserInput, "auto", "s1", "")

	assert.Equal(t, "Ты [удалено]", res.FilteredText)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"казахские буквы", "Емтихан кестесі қайда?", "kk"},
		{"русская кириллица", "Когда будет экзамен?", "ru"},
		{"латиница", "When is the exam?", "en"},
		{"цифры и знаки", "12345 !!!", "en"},
		{"смешанный с казахской буквой", "расписание сабақ", "kk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}

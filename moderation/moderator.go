// Package moderation реализует фильтрацию контента по настраиваемым правилам.
package moderation

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"unibotserver/models"
)

// BlockNotice — фиксированный текст, которым заменяется заблокированное
// сообщение целиком.
const BlockNotice = "Ваше сообщение содержит недопустимый контент и не может быть обработано."

// DefaultReplacement используется, если в правиле не задана замена.
const DefaultReplacement = "***"

// RuleSource отдаёт активные правила фильтрации.
type RuleSource interface {
	ActiveFilterRules(ctx context.Context) ([]models.ContentFilterRule, error)
}

// EventSink принимает записи журнала модерации.
type EventSink interface {
	AddModerationEvent(ctx context.Context, event *models.ModerationEvent) error
}

// Result — результат одного вызова фильтра.
type Result struct {
	FilteredText   string      `json:"filteredText"`
	IsFiltered     bool        `json:"isFiltered"`
	Action         string      `json:"action,omitempty"` // warned, censored, blocked
	MatchedRuleIDs []uuid.UUID `json:"matchedRuleIds,omitempty"`
	Severity       string      `json:"severity,omitempty"`
	Language       string      `json:"language"`
}

// Moderator применяет правила фильтрации к тексту и пишет журнал модерации.
type Moderator struct {
	rules  RuleSource
	events EventSink
	logger *log.Logger
}

// New создает Moderator. Если logger == nil, используется log.Default().
func New(rules RuleSource, events EventSink, logger *log.Logger) *Moderator {
	if logger == nil {
		logger = log.Default()
	}
	return &Moderator{rules: rules, events: events, logger: logger}
}

// Filter применяет активные правила к тексту.
// language == "auto" (или пустая строка) означает автоопределение языка.
// Журнальная запись создаётся ровно один раз и только если сработало
// хотя бы одно правило; ошибка записи не прерывает вызов.
func (m *Moderator) Filter(ctx context.Context, text, contentType, language, sessionID, clientAddr string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{FilteredText: text, Language: language}
	}

	if language == "" || language == "auto" {
		language = DetectLanguage(text)
	}

	all, err := m.rules.ActiveFilterRules(ctx)
	if err != nil {
		// Недоступность правил не должна ронять обработку сообщения
		m.logger.Printf("Модерация: не удалось получить правила: %v", err)
		return Result{FilteredText: text, Language: language}
	}

	candidates := selectRules(all, contentType, language)

	current := text
	action := ""
	severity := ""
	var matched []uuid.UUID

	for i := range candidates {
		rule := &candidates[i]

		replacement := rule.Replacement
		if replacement == "" {
			replacement = DefaultReplacement
		}

		next, ok := applyRule(current, rule, replacement, m.logger)
		if !ok {
			continue
		}

		matched = append(matched, rule.ID)
		if severity == "" {
			severity = rule.Severity
		}

		switch rule.Severity {
		case models.SeverityHigh:
			// Блокировка перекрывает любые ранее сделанные замены
			current = BlockNotice
			action = models.ActionBlocked
		case models.SeverityMedium:
			current = next
			if action != models.ActionBlocked {
				action = models.ActionCensored
			}
		case models.SeverityLow:
			if action == "" {
				action = models.ActionWarned
			}
		}

		if action == models.ActionBlocked {
			// Заблокированный текст больше не цензурируется частично
			break
		}
	}

	if len(matched) == 0 {
		return Result{FilteredText: text, Language: language}
	}

	firstRule := matched[0]
	event := &models.ModerationEvent{
		ID:            uuid.New(),
		OriginalText:  text,
		ModifiedText:  current,
		Action:        action,
		MatchedRuleID: &firstRule,
		ContentType:   contentType,
		SessionID:     sessionID,
		ClientAddress: clientAddr,
		CreatedAt:     time.Now(),
	}
	if err := m.events.AddModerationEvent(ctx, event); err != nil {
		m.logger.Printf("Модерация: не удалось записать событие: %v", err)
	}

	return Result{
		FilteredText:   current,
		IsFiltered:     true,
		Action:         action,
		MatchedRuleIDs: matched,
		Severity:       severity,
		Language:       language,
	}
}

// selectRules отбирает правила по типу контента и языку и упорядочивает их:
// сначала по убыванию серьёзности, затем по свежести обновления. Порядок
// определяет, чей ID попадёт в журнал первым.
func selectRules(rules []models.ContentFilterRule, contentType, language string) []models.ContentFilterRule {
	var out []models.ContentFilterRule
	for _, r := range rules {
		if !r.IsActive || !r.AppliesTo(contentType) {
			continue
		}
		if r.Language != "all" && r.Language != language {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Severity), severityRank(out[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func severityRank(s string) int {
	switch s {
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	case models.SeverityLow:
		return 1
	}
	return 0
}

// applyRule проверяет одно правило против текущего текста.
// Возвращает текст с заменами и флаг совпадения. Некорректное регулярное
// выражение пропускается (не роняет модерацию целиком).
func applyRule(text string, rule *models.ContentFilterRule, replacement string, logger *log.Logger) (string, bool) {
	if rule.Pattern == "" {
		return text, false
	}

	switch rule.FilterType {
	case models.FilterTypeBannedWord:
		return replaceWord(text, rule.Pattern, replacement)

	case models.FilterTypePhrase:
		return replaceFold(text, rule.Pattern, replacement)

	case models.FilterTypePattern:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			logger.Printf("Модерация: правило %s содержит некорректное выражение: %v", rule.ID, err)
			return text, false
		}
		if !re.MatchString(text) {
			return text, false
		}
		return re.ReplaceAllLiteralString(text, replacement), true
	}
	return text, false
}

// isWordRune сообщает, является ли символ частью слова.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// replaceWord заменяет вхождения слова без учёта регистра. Вхождение должно
// быть отделено с обеих сторон пробелом или несловесным символом — подстроки
// внутри других слов не считаются. Встроенное \b здесь не подходит: для
// кириллицы оно не срабатывает.
func replaceWord(text, word, replacement string) (string, bool) {
	tr := []rune(text)
	wr := []rune(strings.ToLower(word))
	if len(wr) == 0 {
		return text, false
	}

	var b strings.Builder
	matched := false
	for i := 0; i < len(tr); {
		if runesMatchFold(tr, wr, i) &&
			(i == 0 || !isWordRune(tr[i-1])) &&
			(i+len(wr) == len(tr) || !isWordRune(tr[i+len(wr)])) {
			b.WriteString(replacement)
			i += len(wr)
			matched = true
			continue
		}
		b.WriteRune(tr[i])
		i++
	}
	if !matched {
		return text, false
	}
	return b.String(), true
}

// replaceFold заменяет вхождения подстроки без учёта регистра.
func replaceFold(text, phrase, replacement string) (string, bool) {
	tr := []rune(text)
	pr := []rune(strings.ToLower(phrase))
	if len(pr) == 0 {
		return text, false
	}

	var b strings.Builder
	matched := false
	for i := 0; i < len(tr); {
		if runesMatchFold(tr, pr, i) {
			b.WriteString(replacement)
			i += len(pr)
			matched = true
			continue
		}
		b.WriteRune(tr[i])
		i++
	}
	if !matched {
		return text, false
	}
	return b.String(), true
}

// runesMatchFold проверяет совпадение pattern с текстом начиная с позиции i
// без учёта регистра.
func runesMatchFold(text, pattern []rune, i int) bool {
	if i+len(pattern) > len(text) {
		return false
	}
	for j, p := range pattern {
		if unicode.ToLower(text[i+j]) != p {
			return false
		}
	}
	return true
}

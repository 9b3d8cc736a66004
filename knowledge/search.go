// Package knowledge реализует поиск по базе знаний (FAQ + автопополняемое
// хранилище).
package knowledge

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"unibotserver/models"
)

// EntryStore отдаёт записи одного из хранилищ базы знаний.
type EntryStore interface {
	SearchEntries(ctx context.Context, store, query, category string, limit int) ([]models.KnowledgeEntry, error)
}

// Search выполняет поиск по обоим хранилищам базы знаний одной логикой.
type Search struct {
	entries EntryStore
	logger  *log.Logger
}

// NewSearch создает Search. Если logger == nil, используется log.Default().
func NewSearch(entries EntryStore, logger *log.Logger) *Search {
	if logger == nil {
		logger = log.Default()
	}
	return &Search{entries: entries, logger: logger}
}

// Find ищет активные записи, в которых query встречается (без учёта регистра)
// в вопросе, ответе или ключевых словах. Пустой query при заданной категории
// возвращает записи категории целиком. Каждое хранилище опрашивается
// независимо с лимитом limit/2, результаты склеиваются: сначала FAQ.
func (s *Search) Find(ctx context.Context, query, category string, limit int) ([]models.KnowledgeEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" && category == "" {
		return nil, nil
	}

	perStore := limit / 2

	faq, err := s.entries.SearchEntries(ctx, models.StoreFAQ, query, category, perStore)
	if err != nil {
		return nil, err
	}
	auto, err := s.entries.SearchEntries(ctx, models.StoreAuto, query, category, perStore)
	if err != nil {
		return nil, err
	}

	s.logger.Printf("База знаний: запрос %q — найдено %d (FAQ) + %d (авто)", query, len(faq), len(auto))
	return append(faq, auto...), nil
}

// ContextFor собирает контекст для ЛЛМ: сообщение разбивается на слова,
// каждое слово длиннее двух символов ищется отдельно, результаты
// дедуплицируются в порядке первого появления до maxEntries записей.
//
// Поиск намеренно нацелен на полноту, а не точность: ни ранжирования, ни
// взвешивания нет — любое совпадение по слову поднимает запись. Это
// осознанное ограничение, а не ошибка.
func (s *Search) ContextFor(ctx context.Context, message string, maxEntries int) []models.KnowledgeEntry {
	seen := make(map[uuid.UUID]bool)
	var unique []models.KnowledgeEntry

	for _, token := range strings.Fields(strings.ToLower(message)) {
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}

		entries, err := s.Find(ctx, token, "", 2)
		if err != nil {
			s.logger.Printf("База знаний: ошибка поиска по слову %q: %v", token, err)
			continue
		}

		for _, entry := range entries {
			if seen[entry.ID] {
				continue
			}
			seen[entry.ID] = true
			unique = append(unique, entry)
			if len(unique) >= maxEntries {
				return unique
			}
		}
	}
	return unique
}

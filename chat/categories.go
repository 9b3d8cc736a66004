package chat

import (
	"strings"

	"unibotserver/models"
)

// categoryKeywords — таблица соответствия категорий базы знаний ключевым
// словам (русский, казахский, английский). Порядок имеет значение: побеждает
// первая категория, чьё ключевое слово встретилось в тексте.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{models.CategorySchedules, []string{
		"расписание", "пара", "занятие", "аудитория",
		"кесте", "сабақ",
		"schedule", "timetable", "class",
	}},
	{models.CategoryDocuments, []string{
		"справка", "документ", "заявление", "диплом",
		"құжат", "анықтама",
		"document", "certificate", "transcript",
	}},
	{models.CategoryScholarships, []string{
		"стипенди", "выплат", "грант",
		"шәкіртақы",
		"scholarship", "grant", "payment",
	}},
	{models.CategoryExams, []string{
		"экзамен", "зачет", "зачёт", "сессия", "пересдача",
		"емтихан",
		"exam", "test", "retake",
	}},
	{models.CategoryAdministration, []string{
		"деканат", "ректорат", "администрация", "кафедра",
		"деканат", "ректор",
		"dean", "rector", "administration", "department",
	}},
}

// categorize подбирает категорию для текста запроса по таблице ключевых
// слов; если ничего не совпало — "general".
func categorize(text string) string {
	lower := strings.ToLower(text)
	for _, row := range categoryKeywords {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.category
			}
		}
	}
	return models.CategoryGeneral
}

package moderation

import "unicode"

// Специфичные для казахского языка буквы (в обоих регистрах).
var kazakhLetters = map[rune]bool{
	'ә': true, 'Ә': true,
	'ғ': true, 'Ғ': true,
	'қ': true, 'Қ': true,
	'ң': true, 'Ң': true,
	'ө': true, 'Ө': true,
	'ұ': true, 'Ұ': true,
	'ү': true, 'Ү': true,
	'һ': true, 'Һ': true,
	'і': true, 'І': true,
}

// DetectLanguage определяет язык текста по набору символов:
// казахские буквы → "kk", остальная кириллица → "ru", иначе → "en".
func DetectLanguage(text string) string {
	hasCyrillic := false
	for _, r := range text {
		if kazakhLetters[r] {
			return "kk"
		}
		if unicode.Is(unicode.Cyrillic, r) {
			hasCyrillic = true
		}
	}
	if hasCyrillic {
		return "ru"
	}
	return "en"
}

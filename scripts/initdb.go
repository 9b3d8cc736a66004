package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Загружаем переменные окружения из .env файла
	err := godotenv.Load()
	if err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	// Подключаемся к базе данных
	db, err := sql.Open("pgx", buildDSN())
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatalf("Ошибка проверки соединения с БД: %v", err)
	}
	log.Println("Успешное подключение к базе данных")

	// Создаем таблицы если они не существуют
	createTables(db)

	// Создаем тестового администратора
	adminID := uuid.New()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Ошибка хеширования пароля: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO admins (id, name, email, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
	`, adminID, "Администратор", "admin@example.com", string(passwordHash), "admin", true)
	if err != nil {
		log.Fatalf("Ошибка создания тестового администратора: %v", err)
	}
	log.Printf("Создан тестовый администратор с ID: %s", adminID)

	// Базовая конфигурация модели и системный промпт
	seedConfigs(db)

	// Стартовый набор правил фильтрации контента
	seedFilterRules(db)

	// Стартовые записи FAQ
	seedFAQ(db)

	log.Println("База данных успешно инициализирована")
}

// Создание таблиц базы данных
func createTables(db *sql.DB) {
	// Таблица сессий чата
	exec(db, "chat_sessions", `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_activity TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Таблица сообщений
	exec(db, "chat_messages", `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions (id),
			message_type TEXT NOT NULL,
			content TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			response_time DOUBLE PRECISION,
			tokens_used INTEGER,
			model_used TEXT
		)`)

	// Таблица правил фильтрации контента
	exec(db, "content_filter_rules", `
		CREATE TABLE IF NOT EXISTS content_filter_rules (
			id UUID PRIMARY KEY,
			filter_type TEXT NOT NULL,
			pattern TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT 'medium',
			replacement TEXT NOT NULL DEFAULT '***',
			applies_to_input BOOLEAN NOT NULL DEFAULT TRUE,
			applies_to_output BOOLEAN NOT NULL DEFAULT TRUE,
			applies_to_kb BOOLEAN NOT NULL DEFAULT FALSE,
			language TEXT NOT NULL DEFAULT 'all',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Журнал модерации
	exec(db, "moderation_events", `
		CREATE TABLE IF NOT EXISTS moderation_events (
			id UUID PRIMARY KEY,
			original_text TEXT NOT NULL,
			modified_text TEXT NOT NULL,
			action TEXT NOT NULL,
			matched_rule_id UUID,
			content_type TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			client_address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// База знаний (ручные FAQ и автонакопленные записи)
	exec(db, "knowledge_entries", `
		CREATE TABLE IF NOT EXISTS knowledge_entries (
			id UUID PRIMARY KEY,
			store TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			keywords TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT 'ru',
			source TEXT NOT NULL DEFAULT 'manual',
			confidence_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Необработанные запросы пользователей
	exec(db, "pending_queries", `
		CREATE TABLE IF NOT EXISTS pending_queries (
			id UUID PRIMARY KEY,
			query_text TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'ru',
			results_found BOOLEAN NOT NULL DEFAULT FALSE,
			should_promote BOOLEAN NOT NULL DEFAULT TRUE,
			promoted BOOLEAN NOT NULL DEFAULT FALSE,
			suggested_answer TEXT,
			session_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Журнал обращений к ЛЛМ
	exec(db, "request_logs", `
		CREATE TABLE IF NOT EXISTS request_logs (
			id UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			response_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			api_success BOOLEAN NOT NULL DEFAULT FALSE,
			error_message TEXT NOT NULL DEFAULT '',
			tokens_used INTEGER NOT NULL DEFAULT 0,
			moderated BOOLEAN NOT NULL DEFAULT FALSE,
			ts TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Связь журнала обращений с использованными записями базы знаний
	exec(db, "request_log_entries", `
		CREATE TABLE IF NOT EXISTS request_log_entries (
			request_log_id UUID NOT NULL REFERENCES request_logs (id),
			entry_id UUID NOT NULL REFERENCES knowledge_entries (id),
			store TEXT NOT NULL,
			PRIMARY KEY (request_log_id, entry_id)
		)`)

	// Конфигурации модели
	exec(db, "ai_model_configs", `
		CREATE TABLE IF NOT EXISTS ai_model_configs (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			model_name TEXT NOT NULL,
			max_tokens INTEGER NOT NULL DEFAULT 500,
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7,
			top_p DOUBLE PRECISION NOT NULL DEFAULT 0.9,
			repetition_penalty DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Конфигурации API-ключей
	exec(db, "api_key_configs", `
		CREATE TABLE IF NOT EXISTS api_key_configs (
			id UUID PRIMARY KEY,
			provider TEXT NOT NULL,
			api_key TEXT NOT NULL,
			api_url TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Системные промпты
	exec(db, "system_prompts", `
		CREATE TABLE IF NOT EXISTS system_prompts (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			prompt_type TEXT NOT NULL DEFAULT 'system',
			content TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	// Таблица администраторов
	exec(db, "admins", `
		CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'admin',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)

	log.Println("Все таблицы успешно созданы")
}

func exec(db *sql.DB, table, ddl string) {
	if _, err := db.Exec(ddl); err != nil {
		log.Fatalf("Ошибка создания таблицы %s: %v", table, err)
	}
}

// Базовая конфигурация модели и системный промпт
func seedConfigs(db *sql.DB) {
	_, err := db.Exec(`
		INSERT INTO ai_model_configs (id, name, model_name, max_tokens, temperature, top_p, repetition_penalty, is_active)
		SELECT $1, $2, $3, $4, $5, $6, $7, TRUE
		WHERE NOT EXISTS (SELECT 1 FROM ai_model_configs)
	`, uuid.New(), "Mistral 7B", "mistralai/Mistral-7B-Instruct-v0.1", 500, 0.7, 0.9, 1.0)
	if err != nil {
		log.Fatalf("Ошибка создания конфигурации модели: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO system_prompts (id, name, prompt_type, content, is_active)
		SELECT $1, $2, 'system', $3, TRUE
		WHERE NOT EXISTS (SELECT 1 FROM system_prompts)
	`, uuid.New(), "Базовый промпт",
		"Ты — помощник университета. Отвечай вежливо и по существу на вопросы "+
			"о расписании, документах, стипендиях и экзаменах. Отвечай на языке вопроса.")
	if err != nil {
		log.Fatalf("Ошибка создания системного промпта: %v", err)
	}

	log.Println("Конфигурация модели и промпт созданы")
}

// Стартовый набор правил фильтрации контента
func seedFilterRules(db *sql.DB) {
	rules := []struct {
		filterType string
		pattern    string
		severity   string
		language   string
	}{
		{"banned_word", "дурак", "medium", "ru"},
		{"banned_word", "идиот", "medium", "ru"},
		{"phrase", "иди к черту", "high", "ru"},
		{"pattern", `\d{16}`, "high", "all"},
	}

	for _, r := range rules {
		_, err := db.Exec(`
			INSERT INTO content_filter_rules
				(id, filter_type, pattern, severity, replacement, language)
			SELECT $1, $2, $3, $4, '***', $5
			WHERE NOT EXISTS (
				SELECT 1 FROM content_filter_rules WHERE pattern = $3 AND filter_type = $2
			)
		`, uuid.New(), r.filterType, r.pattern, r.severity, r.language)
		if err != nil {
			log.Fatalf("Ошибка создания правила фильтрации %q: %v", r.pattern, err)
		}
	}

	log.Printf("Добавлено %d правил фильтрации", len(rules))
}

// Стартовые записи FAQ
func seedFAQ(db *sql.DB) {
	entries := []struct {
		question string
		answer   string
		category string
		keywords string
		language string
	}{
		{
			question: "Где посмотреть расписание занятий?",
			answer:   "Актуальное расписание занятий публикуется на портале университета в разделе «Расписание» и обновляется каждую неделю.",
			category: "schedules",
			keywords: "расписание, занятия, пары",
			language: "ru",
		},
		{
			question: "Как получить справку об обучении?",
			answer:   "Справку об обучении можно заказать в деканате или через личный кабинет студента. Срок изготовления — до трех рабочих дней.",
			category: "documents",
			keywords: "справка, документы, деканат",
			language: "ru",
		},
		{
			question: "Когда выплачивается стипендия?",
			answer:   "Стипендия выплачивается ежемесячно до 25 числа. По вопросам задержек обращайтесь в бухгалтерию университета.",
			category: "scholarships",
			keywords: "стипендия, выплата, бухгалтерия",
			language: "ru",
		},
		{
			question: "Емтихан кестесі қайда жарияланады?",
			answer:   "Емтихан кестесі университет порталында сессия басталардан екі апта бұрын жарияланады.",
			category: "exams",
			keywords: "емтихан, кесте, сессия",
			language: "kk",
		},
	}

	now := time.Now()
	for _, e := range entries {
		_, err := db.Exec(`
			INSERT INTO knowledge_entries
				(id, store, question, answer, category, keywords, language, source,
				 confidence_score, is_verified, is_active, usage_count, created_at, updated_at)
			SELECT $1, 'faq', $2, $3, $4, $5, $6, 'manual', 1.0, TRUE, TRUE, 0, $7, $7
			WHERE NOT EXISTS (
				SELECT 1 FROM knowledge_entries WHERE question = $2
			)
		`, uuid.New(), e.question, e.answer, e.category, e.keywords, e.language, now)
		if err != nil {
			log.Fatalf("Ошибка создания записи FAQ %q: %v", e.question, err)
		}
	}

	log.Printf("Добавлено %d записей FAQ", len(entries))
}

func buildDSN() string {
	host := env("PG_HOST", "localhost")
	port := env("PG_PORT", "5432")
	user := env("PG_USER", "postgres")
	password := os.Getenv("PG_PASSWORD")
	dbname := env("PG_DATABASE", "unibot")
	sslmode := env("PG_SSL_MODE", "disable")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

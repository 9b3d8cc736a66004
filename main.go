package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"unibotserver/chat"
	"unibotserver/database"
	"unibotserver/handlers"
	"unibotserver/knowledge"
	"unibotserver/llm"
	"unibotserver/middleware"
	"unibotserver/moderation"
	"unibotserver/websocket"
)

func main() {
	// Инициализация базы данных
	if err := database.Init(); err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer database.Close()

	store := database.NewStore(database.DB)

	// Инициализация WebSocket хаба
	hub := websocket.NewHub()
	go hub.Run()
	handlers.SetWebSocketHub(hub)

	// Сборка конвейера обработки сообщений: события модерации дублируются
	// в админ-панели через WebSocket
	moderator := moderation.New(store, &handlers.BroadcastingEventSink{Sink: store}, nil)
	kb := knowledge.NewSearch(store, nil)
	client := llm.NewClient(store, nil)
	bot := chat.NewOrchestrator(store, moderator, kb, client, nil)

	handlers.Init(store, bot, kb)

	// Инициализация роутера Gin
	r := gin.Default()

	// Добавляем middleware для логирования
	r.Use(middleware.Logger())

	// Настройка CORS для взаимодействия с фронтендом
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// API эндпоинты
	api := r.Group("/api")
	{
		// Пользовательские эндпоинты (публичные)
		api.POST("/chat", handlers.ChatAPI)
		api.GET("/chat/history", handlers.ChatHistory)
		api.GET("/faq", handlers.FAQSearch)

		// Эндпоинт для авторизации админов (публичный)
		api.POST("/auth/login", handlers.Login)

		// Защищенные маршруты
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware())
		{
			admin.GET("/analytics", handlers.Analytics)
			admin.GET("/moderation", handlers.ModerationLog)
			admin.GET("/status", handlers.SystemStatus)
			admin.POST("/config/model/:id/activate", handlers.ActivateModelConfig)
			admin.POST("/config/api/:id/activate", handlers.ActivateAPIConfig)
			admin.POST("/config/prompt/:id/activate", handlers.ActivateSystemPrompt)
		}
	}

	// WebSocket эндпоинт для админ-панелей
	r.GET("/ws", handlers.ServeWs)

	// Запуск сервера
	log.Println("Сервер запущен на порту :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Analytics возвращает сводную статистику для админ-панели.
func Analytics(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := Store.GetAnalyticsSummary(ctx)
	if err != nil {
		log.Printf("Analytics: ошибка получения сводки: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Ошибка получения статистики"})
		return
	}

	recent, err := Store.RecentRequestLogs(ctx, 10)
	if err != nil {
		log.Printf("Analytics: ошибка получения последних обращений: %v", err)
		c.Error(err)
	}

	topPending, err := Store.TopPendingQueries(ctx, 10)
	if err != nil {
		log.Printf("Analytics: ошибка получения неотвеченных запросов: %v", err)
		c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"stats":           summary,
		"recent_activity": recent,
		"top_unanswered":  topPending,
	})
}

// ModerationLog возвращает последние события модерации.
func ModerationLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := Store.ModerationEvents(c.Request.Context(), limit)
	if err != nil {
		log.Printf("ModerationLog: ошибка получения журнала: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Ошибка получения журнала"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"events":  events,
	})
}

// SystemStatus возвращает текущие активные конфигурации.
func SystemStatus(c *gin.Context) {
	ctx := c.Request.Context()

	model, err := Store.ActiveModelConfig(ctx)
	if err != nil {
		log.Printf("SystemStatus: ошибка получения конфигурации модели: %v", err)
		c.Error(err)
	}
	prompt, err := Store.ActiveSystemPrompt(ctx)
	if err != nil {
		log.Printf("SystemStatus: ошибка получения системного промпта: %v", err)
		c.Error(err)
	}
	api, err := Store.ActiveAPIConfig(ctx)
	if err != nil {
		log.Printf("SystemStatus: ошибка получения конфигурации API: %v", err)
		c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"model":   model,
		"prompt":  prompt,
		"api":     api,
	})
}

// activateFunc — операция атомарной активации одной записи.
type activateFunc func(c *gin.Context, id uuid.UUID) error

func activate(c *gin.Context, what string, fn activateFunc) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Некорректный идентификатор"})
		return
	}

	if err := fn(c, id); err != nil {
		log.Printf("Не удалось активировать %s %s: %v", what, id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Ошибка активации"})
		return
	}

	log.Printf("Активирована запись %s: %s", what, id)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// ActivateModelConfig делает активной указанную конфигурацию модели.
func ActivateModelConfig(c *gin.Context) {
	activate(c, "конфигурация модели", func(c *gin.Context, id uuid.UUID) error {
		return Store.SetActiveModelConfig(c.Request.Context(), id)
	})
}

// ActivateAPIConfig делает активной указанную конфигурацию провайдера.
func ActivateAPIConfig(c *gin.Context) {
	activate(c, "конфигурация API", func(c *gin.Context, id uuid.UUID) error {
		return Store.SetActiveAPIConfig(c.Request.Context(), id)
	})
}

// ActivateSystemPrompt делает активным указанный системный промпт.
func ActivateSystemPrompt(c *gin.Context) {
	activate(c, "системный промпт", func(c *gin.Context, id uuid.UUID) error {
		return Store.SetActiveSystemPrompt(c.Request.Context(), id)
	})
}

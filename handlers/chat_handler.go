package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"unibotserver/chat"
	"unibotserver/websocket"
)

// ChatAPI обрабатывает входящее сообщение пользователя.
func ChatAPI(c *gin.Context) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Некорректные данные: " + err.Error()})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Сообщение не может быть пустым"})
		return
	}
	if utf8.RuneCountInString(message) > chat.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Сообщение слишком длинное (максимум 1000 символов)"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	result := Bot.ProcessMessage(c.Request.Context(), sessionID, message, c.ClientIP())

	// Уведомляем подключенные админ-панели
	if WebSocketHub != nil {
		payload := &websocket.ChatTurnPayload{
			SessionID:    sessionID,
			UserMessage:  message,
			AIResponse:   result.Message,
			Success:      result.Success,
			Blocked:      result.Blocked,
			Moderated:    result.Moderated,
			ResponseTime: result.ResponseTime,
		}
		if data, err := websocket.NewChatTurnMessage(payload); err == nil {
			WebSocketHub.BroadcastRaw(data)
		}
	}

	switch {
	case result.Success:
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"message":       result.Message,
			"moderated":     result.Moderated,
			"response_time": result.ResponseTime,
			"tokens_used":   result.TokensUsed,
			"session_id":    sessionID,
		})
	case result.Blocked:
		// Блокировка — штатный исход, а не сбой сервера
		c.JSON(http.StatusOK, gin.H{
			"success":    false,
			"blocked":    true,
			"message":    result.Message,
			"session_id": sessionID,
		})
	default:
		log.Printf("ChatAPI: ошибка обработки сообщения в сессии %s: %s", sessionID, result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"message":    result.Message,
			"error":      result.Error,
			"session_id": sessionID,
		})
	}
}

// ChatHistory возвращает историю сообщений сессии.
func ChatHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Требуется session_id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := Store.GetChatHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		log.Printf("ChatHistory: ошибка получения истории сессии %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Ошибка получения истории"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": messages,
	})
}

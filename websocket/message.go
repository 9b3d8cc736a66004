package websocket

import (
	"encoding/json"

	"unibotserver/models"
)

// WebSocketMessage представляет сообщение для WebSocket.
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage создает новое сообщение с указанным типом и данными.
func NewMessage(messageType string, payload interface{}) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	message := WebSocketMessage{
		Type:    messageType,
		Payload: payloadJSON,
	}

	return json.Marshal(message)
}

// ChatTurnPayload — краткое описание завершённого обмена для панели.
type ChatTurnPayload struct {
	SessionID    string  `json:"sessionId"`
	UserMessage  string  `json:"userMessage"`
	AIResponse   string  `json:"aiResponse"`
	Success      bool    `json:"success"`
	Blocked      bool    `json:"blocked,omitempty"`
	Moderated    bool    `json:"moderated,omitempty"`
	ResponseTime float64 `json:"responseTime"`
}

// NewChatTurnMessage создает уведомление о завершённом обмене с ЛЛМ.
func NewChatTurnMessage(payload *ChatTurnPayload) ([]byte, error) {
	return NewMessage("chat_turn", payload)
}

// NewModerationMessage создает уведомление о срабатывании модерации.
func NewModerationMessage(event *models.ModerationEvent) ([]byte, error) {
	return NewMessage("moderation_event", event)
}

// NewErrorMessage создает сообщение об ошибке.
func NewErrorMessage(errorText string) ([]byte, error) {
	payload := struct {
		Error string `json:"error"`
	}{
		Error: errorText,
	}

	return NewMessage("error", payload)
}

// Package websocket рассылает уведомления админ-панелям в реальном времени.
package websocket

import (
	"log"
)

// Hub обрабатывает WebSocket соединения админ-панелей.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Исходящие уведомления
	broadcast chan []byte

	// Регистрация клиента
	Register chan *Client

	// Отмена регистрации клиента
	Unregister chan *Client
}

// NewHub создает новый Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run запускает Hub.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Printf("WebSocket: клиент подключился. Всего клиентов: %d", len(h.clients))
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("WebSocket: клиент отключился. Всего клиентов: %d", len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastRaw отправляет сериализованное сообщение всем подключенным
// клиентам (см. конструкторы в message.go).
func (h *Hub) BroadcastRaw(data []byte) {
	h.broadcast <- data
}

// Package handlers содержит HTTP-обработчики API.
package handlers

import (
	"log"

	"unibotserver/chat"
	"unibotserver/database"
	"unibotserver/knowledge"
)

// Глобальные зависимости обработчиков, устанавливаются при старте.
var (
	Store *database.Store
	Bot   *chat.Orchestrator
	KB    *knowledge.Search
)

// Init устанавливает зависимости обработчиков.
func Init(store *database.Store, bot *chat.Orchestrator, kb *knowledge.Search) {
	Store = store
	Bot = bot
	KB = kb
	log.Println("Обработчики инициализированы")
}

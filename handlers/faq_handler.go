package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"unibotserver/moderation"
)

// FAQSearch ищет записи базы знаний по запросу. Запрос, по которому ничего
// не найдено, фиксируется как неотвеченный (кандидат на пополнение базы).
func FAQSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	category := c.Query("category")
	sessionID := c.Query("session_id")

	if query == "" && category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Требуется параметр q или category"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := KB.Find(c.Request.Context(), query, category, limit)
	if err != nil {
		log.Printf("FAQSearch: ошибка поиска по запросу %q: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Ошибка поиска"})
		return
	}

	if len(entries) == 0 && query != "" {
		language := moderation.DetectLanguage(query)
		if err := Store.RecordPendingQuery(c.Request.Context(), query, language, sessionID); err != nil {
			// Не мешаем ответу пользователю
			log.Printf("FAQSearch: не удалось записать неотвеченный запрос %q: %v", query, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": entries,
		"total":   len(entries),
	})
}

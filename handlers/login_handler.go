package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"unibotserver/database"
	"unibotserver/middleware"
)

// Login обрабатывает авторизацию админов
func Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&credentials); err != nil {
		log.Printf("Ошибка парсинга данных для авторизации: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Попытка авторизации для пользователя: %s", credentials.Email)

	admin, err := Store.GetAdmin(c.Request.Context(), credentials.Email)
	if err != nil {
		log.Printf("Ошибка получения данных администратора %s: %v", credentials.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка сервера"})
		return
	}
	if admin == nil || !admin.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверные учетные данные"})
		return
	}

	if err := database.VerifyPassword(credentials.Password, admin.PasswordHash); err != nil {
		log.Printf("Ошибка аутентификации для %s", credentials.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверные учетные данные"})
		return
	}

	token, err := middleware.GenerateToken(admin.ID.String(), admin.Role)
	if err != nil {
		log.Printf("Ошибка генерации токена для %s: %v", credentials.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка сервера"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": admin,
	})
}

package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the chat and health endpoints under group.
func RegisterRoutes(group *gin.RouterGroup, chat *ChatHandler, health *HealthHandler) {
	group.GET("/health", health.HandleHealth)

	c := group.Group("/chat")
	c.POST("/query", chat.HandleQuery)
	c.GET("/history", chat.HandleHistory)
	c.POST("/feedback", chat.HandleFeedback)
	c.GET("/recommendations", chat.HandleRecommendations)
	c.GET("/hot", chat.HandleHotQueries)
}

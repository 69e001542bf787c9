package models

type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type FeedbackRequest struct {
	ChatID         uint    `json:"chat_id" binding:"required"`
	IsHelpful      *bool   `json:"is_helpful" binding:"required"`
	RelevanceScore *int    `json:"relevance_score"`
	UserAction     *string `json:"user_action"`
}

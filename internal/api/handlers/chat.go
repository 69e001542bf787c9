package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/Ayash-Bera/archivist/internal/services"
	"github.com/Ayash-Bera/archivist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	maxQueryLength = 500
	requestTimeout = 10 * time.Second
)

// ChatEngine is the chat service surface used by the HTTP layer.
type ChatEngine interface {
	ProcessQuery(ctx context.Context, userID uint, text, sessionID string) (*models.QueryResult, error)
	GetChatHistory(ctx context.Context, userID uint, limit int) ([]models.ChatHistoryEntry, error)
	ProcessFeedback(ctx context.Context, chatID uint, helpful bool, relevanceScore *int, userAction *string) error
	GetRecommendations(ctx context.Context, userID uint, text string) ([]string, error)
	HotQueries(ctx context.Context, limit int) ([]string, error)
}

type ChatHandler struct {
	chat   ChatEngine
	logger *logrus.Logger
}

func NewChatHandler(chat ChatEngine, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

// HandleQuery answers one chat message.
func (h *ChatHandler) HandleQuery(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryLength {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query too long (max 500 characters)", nil)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetHeader(utils.SessionIDHeader)
	}
	if sessionID == "" {
		sessionID = utils.NewSessionID()
	} else if !utils.ValidateSessionID(sessionID) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.chat.ProcessQuery(ctx, userID, req.Query, sessionID)
	if err != nil {
		h.respondError(c, "Query rejected", err)
		return
	}
	if result.Failed() {
		utils.ErrorResponse(c, http.StatusInternalServerError, result.Error, nil)
		return
	}

	c.Header(utils.SessionIDHeader, result.SessionID)
	utils.SuccessResponse(c, http.StatusOK, "Query processed", result)
}

// HandleHistory lists the caller's recent interactions.
func (h *ChatHandler) HandleHistory(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.chat.GetChatHistory(c.Request.Context(), userID, limit)
	if err != nil {
		h.respondError(c, "Failed to load chat history", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "History retrieved", history)
}

// HandleFeedback records a helpfulness vote on a past answer.
func (h *ChatHandler) HandleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback format", err)
		return
	}

	err := h.chat.ProcessFeedback(c.Request.Context(), req.ChatID, *req.IsHelpful, req.RelevanceScore, req.UserAction)
	if err != nil {
		h.respondError(c, "Failed to record feedback", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Feedback recorded", nil)
}

// HandleRecommendations suggests follow-up queries for q.
func (h *ChatHandler) HandleRecommendations(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	recs, err := h.chat.GetRecommendations(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		h.respondError(c, "Failed to build recommendations", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Recommendations retrieved", recs)
}

// HandleHotQueries lists the most asked queries.
func (h *ChatHandler) HandleHotQueries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit > 50 {
		limit = 50
	}

	queries, err := h.chat.HotQueries(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, "Failed to load hot queries", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Hot queries retrieved", queries)
}

func (h *ChatHandler) userID(c *gin.Context) (uint, bool) {
	id, err := utils.ParseUserID(c.GetHeader(utils.UserIDHeader))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid X-User-ID header", err)
		return 0, false
	}
	if id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "X-User-ID header is required", nil)
		return 0, false
	}
	return id, true
}

func (h *ChatHandler) respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		utils.ErrorResponse(c, http.StatusBadRequest, message, err)
	case errors.Is(err, services.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, message, err)
	case errors.Is(err, services.ErrAlreadyRated):
		utils.ErrorResponse(c, http.StatusConflict, message, err)
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error(message)
		utils.ErrorResponse(c, http.StatusInternalServerError, message, nil)
	}
}

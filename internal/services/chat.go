package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ayash-Bera/archivist/internal/learning"
	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/Ayash-Bera/archivist/internal/query"
	"github.com/Ayash-Bera/archivist/internal/ranking"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit   = 20
	DefaultHotQueryLimit  = 10
	processingFailureText = "查询处理失败，请稍后重试"
)

// HotQueryCache caches the most frequent queries. A miss is reported as an error.
type HotQueryCache interface {
	GetHotQueries(ctx context.Context, limit int) ([]string, error)
	SetHotQueries(ctx context.Context, limit int, queries []string, ttl time.Duration) error
}

// ChatRepositories groups the collaborators the chat service reads and writes.
type ChatRepositories struct {
	Archives models.ArchiveRepository
	Chats    models.ChatHistoryRepository
	Users    models.UserRepository
}

type ChatConfig struct {
	TopN                int
	HistoryLimit        int
	ApplyKeywordWeights bool
	HotQueriesTTL       time.Duration
	Categories          []string
	Locations           []string
}

type ChatOption func(*ChatService)

// WithClock replaces time.Now for extraction, scoring and timestamps.
func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) {
		if now != nil {
			s.now = now
		}
	}
}

// ChatService answers archive questions and feeds the learning model.
type ChatService struct {
	chats     models.ChatHistoryRepository
	users     models.UserRepository
	cache     HotQueryCache
	extractor *query.Extractor
	gatherer  *ranking.Gatherer
	scorer    *ranking.Scorer
	model     *learning.Model
	cfg       ChatConfig
	now       func() time.Time
	logger    *logrus.Logger
}

// NewChatService wires the engine. cache may be nil.
func NewChatService(
	repos ChatRepositories,
	model *learning.Model,
	cache HotQueryCache,
	cfg ChatConfig,
	logger *logrus.Logger,
	opts ...ChatOption,
) *ChatService {
	if cfg.TopN <= 0 {
		cfg.TopN = ranking.DefaultTopN
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = learning.PreferenceHistoryLimit
	}

	s := &ChatService{
		chats:  repos.Chats,
		users:  repos.Users,
		cache:  cache,
		model:  model,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	extractorOpts := []query.ExtractorOption{query.WithClock(s.now)}
	if len(cfg.Categories) > 0 {
		extractorOpts = append(extractorOpts, query.WithCategories(cfg.Categories))
	}
	if len(cfg.Locations) > 0 {
		extractorOpts = append(extractorOpts, query.WithLocations(cfg.Locations))
	}
	s.extractor = query.NewExtractor(extractorOpts...)
	s.gatherer = ranking.NewGatherer(repos.Archives)

	scorerOpts := []ranking.ScorerOption{ranking.WithScorerClock(s.now)}
	if cfg.ApplyKeywordWeights {
		scorerOpts = append(scorerOpts, ranking.WithKeywordWeights(model))
	}
	s.scorer = ranking.NewScorer(model, scorerOpts...)

	return s
}

// ProcessQuery answers one chat query. Invalid input is returned as
// ErrInvalidArgument; any later failure is logged and returned as a result
// carrying only Error.
func (s *ChatService) ProcessQuery(ctx context.Context, userID uint, text, sessionID string) (*models.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalidArgument)
	}
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if err := s.requireUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return s.degrade(userID, text, err), nil
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	start := s.now()
	intent := s.extractor.Analyze(text)

	archives, err := s.gatherer.Gather(ctx, intent)
	if err != nil {
		return s.degrade(userID, text, err), nil
	}

	ranked := s.scorer.Rank(archives, intent, s.cfg.TopN)
	answer := ranking.ComposeAnswer(text, intent.Type, ranked)
	recommendations := ranking.Recommend(ranked)
	elapsed := s.now().Sub(start).Milliseconds()

	ids := make(models.StringArray, len(ranked))
	fileNumbers := make([]string, len(ranked))
	relevant := make([]models.RankedArchive, len(ranked))
	for i, c := range ranked {
		ids[i] = strconv.FormatUint(uint64(c.Archive.ID), 10)
		fileNumbers[i] = c.Archive.FileNumber
		relevant[i] = models.RankedArchive{
			ID:         c.Archive.ID,
			Title:      c.Archive.Title,
			FileNumber: c.Archive.FileNumber,
			Category:   c.Archive.Category,
			Location:   c.Archive.Location,
			Status:     c.Archive.Status,
			CreateTime: c.Archive.CreatedAt,
			Relevance:  c.Relevance,
		}
	}

	record := &models.ChatHistory{
		UserID:           userID,
		SessionID:        sessionID,
		Query:            text,
		Response:         answer,
		QueryType:        string(intent.Type),
		ProcessingTimeMs: elapsed,
		ArchiveIDs:       ids,
		Keywords:         models.StringArray(intent.Keywords),
		HasTimeRange:     intent.HasTimeRange(),
		HasCategory:      intent.HasCategory(),
		HasLocation:      intent.HasLocation(),
	}
	if err := s.chats.Save(ctx, record); err != nil {
		return s.degrade(userID, text, fmt.Errorf("failed to save chat history: %w", err)), nil
	}

	s.model.RecordQuery(userID, text, len(ranked) > 0)
	s.model.ObserveArchives(fileNumbers)
	s.model.RememberContext(userID, text, string(intent.Type), intent.Categories)

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"chat_id":    record.ID,
		"query_type": intent.Type,
		"candidates": len(archives),
		"returned":   len(ranked),
		"elapsed_ms": elapsed,
	}).Info("Processed chat query")

	return &models.QueryResult{
		ChatID:           record.ID,
		SessionID:        sessionID,
		Answer:           answer,
		RelevantArchives: relevant,
		Recommendations:  recommendations,
		QueryType:        string(intent.Type),
		ProcessingTimeMs: elapsed,
	}, nil
}

// requireUser maps a missing user record to ErrNotFound.
func (s *ChatService) requireUser(ctx context.Context, userID uint) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return nil
}

func (s *ChatService) degrade(userID uint, text string, err error) *models.QueryResult {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"user_id": userID,
		"query":   text,
	}).Error("Chat query processing failed")
	return &models.QueryResult{Error: processingFailureText}
}

// GetChatHistory returns the user's most recent interactions, newest first.
func (s *ChatService) GetChatHistory(ctx context.Context, userID uint, limit int) ([]models.ChatHistoryEntry, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}

	records, err := s.chats.FindRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	entries := make([]models.ChatHistoryEntry, len(records))
	for i, r := range records {
		entries[i] = models.ChatHistoryEntry{
			ID:         r.ID,
			Query:      r.Query,
			Response:   r.Response,
			CreateTime: r.CreatedAt,
			QueryType:  r.QueryType,
			IsHelpful:  r.IsHelpful,
		}
	}
	return entries, nil
}

// ProcessFeedback stores a helpfulness vote on a past answer and feeds it to
// the learning model. Only the feedback fields of the record change, and
// only once: a second vote returns ErrAlreadyRated.
func (s *ChatService) ProcessFeedback(ctx context.Context, chatID uint, helpful bool, relevanceScore *int, userAction *string) error {
	if chatID == 0 {
		return fmt.Errorf("%w: chat id is required", ErrInvalidArgument)
	}
	if relevanceScore != nil && (*relevanceScore < 1 || *relevanceScore > 5) {
		return fmt.Errorf("%w: relevance score must be between 1 and 5", ErrInvalidArgument)
	}

	record, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return fmt.Errorf("%w: chat %d", ErrNotFound, chatID)
		}
		return fmt.Errorf("failed to load chat %d: %w", chatID, err)
	}
	if record.IsHelpful != nil || record.FeedbackAt != nil {
		return fmt.Errorf("%w: chat %d", ErrAlreadyRated, chatID)
	}

	update := models.FeedbackUpdate{
		IsHelpful:      helpful,
		RelevanceScore: relevanceScore,
		UserAction:     userAction,
	}
	if err := s.chats.UpdateFeedback(ctx, chatID, update); err != nil {
		if errors.Is(err, models.ErrAlreadyRated) {
			return fmt.Errorf("%w: chat %d", ErrAlreadyRated, chatID)
		}
		return fmt.Errorf("failed to store feedback for chat %d: %w", chatID, err)
	}

	s.model.ApplyFeedback(record.Query, helpful)

	if err := s.UpdateUserPreferences(ctx, record.UserID); err != nil {
		s.logger.WithError(err).WithField("user_id", record.UserID).Warn("Failed to refresh user preferences")
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"helpful": helpful,
	}).Info("Recorded feedback")
	return nil
}

// UpdateUserPreferences recomputes the user's keyword profile from recent
// history and stores it on the user record.
func (s *ChatService) UpdateUserPreferences(ctx context.Context, userID uint) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	history, err := s.chats.FindRecentByUser(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to load history for user %d: %w", userID, err)
	}

	blob, err := learning.NewPreferenceProfile(history, s.now()).Encode()
	if err != nil {
		return err
	}
	user.Preferences = blob
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save preferences for user %d: %w", userID, err)
	}
	return nil
}

// GetRecommendations suggests follow-up queries. Suggestions come from the
// results of text when it finds anything, otherwise from the user's last
// categories, the hot queries and the stored preference profile.
func (s *ChatService) GetRecommendations(ctx context.Context, userID uint, text string) ([]string, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	if text = strings.TrimSpace(text); text != "" {
		intent := s.extractor.Analyze(text)
		archives, err := s.gatherer.Gather(ctx, intent)
		if err != nil {
			s.logger.WithError(err).WithField("query", text).Warn("Recommendation lookup failed")
		} else if recs := ranking.Recommend(s.scorer.Rank(archives, intent, s.cfg.TopN)); len(recs) > 0 {
			return recs, nil
		}
	}

	var out []string
	seen := make(map[string]bool)
	add := func(items ...string) {
		for _, item := range items {
			if len(out) >= ranking.MaxRecommendations {
				return
			}
			if item != "" && !seen[item] && item != text {
				seen[item] = true
				out = append(out, item)
			}
		}
	}

	if uc, ok := s.model.Context(userID); ok {
		for _, c := range uc.Categories {
			add(fmt.Sprintf("查看更多%s类档案", c))
		}
	}

	hot, err := s.HotQueries(ctx, ranking.MaxRecommendations)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load hot queries")
	}
	add(hot...)

	if len(out) < ranking.MaxRecommendations {
		add(s.preferredKeywords(ctx, userID)...)
	}
	return out, nil
}

func (s *ChatService) preferredKeywords(ctx context.Context, userID uint) []string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil
	}
	profile, err := learning.DecodePreferenceProfile(user.Preferences)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Debug("Ignoring malformed preference profile")
		return nil
	}
	return profile.TopKeywords(ranking.MaxRecommendations)
}

// HotQueries returns the most frequent queries across all users, served from
// the cache when possible.
func (s *ChatService) HotQueries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHotQueryLimit
	}

	if s.cache != nil {
		if cached, err := s.cache.GetHotQueries(ctx, limit); err == nil {
			return cached, nil
		}
	}

	queries, err := s.chats.FindHotQueries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load hot queries: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetHotQueries(ctx, limit, queries, s.cfg.HotQueriesTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache hot queries")
		}
	}
	return queries, nil
}

package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ayash-Bera/archivist/internal/learning"
	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// PreferenceUpdater recomputes and stores one user's preference profile.
type PreferenceUpdater interface {
	UpdateUserPreferences(ctx context.Context, userID uint) error
}

type ReconcilerConfig struct {
	PoolSize int
	Window   time.Duration
	Limit    int
}

// LearningReconciler keeps the in-memory learning state in line with the
// persisted chat history.
type LearningReconciler struct {
	chats       models.ChatHistoryRepository
	model       *learning.Model
	preferences PreferenceUpdater
	pool        *ants.Pool
	cfg         ReconcilerConfig
	now         func() time.Time
	logger      *logrus.Logger

	mu          sync.Mutex
	lastRefresh time.Time
}

func NewLearningReconciler(
	chats models.ChatHistoryRepository,
	model *learning.Model,
	preferences PreferenceUpdater,
	cfg ReconcilerConfig,
	logger *logrus.Logger,
) (*LearningReconciler, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * 24 * time.Hour
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5000
	}

	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler pool: %w", err)
	}

	return &LearningReconciler{
		chats:       chats,
		model:       model,
		preferences: preferences,
		pool:        pool,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
	}, nil
}

// Release stops the worker pool. The reconciler must not be used afterwards.
func (r *LearningReconciler) Release() {
	r.pool.Release()
}

// Rebuild replays chat records from the configured window into the learning
// model. Records of one user are replayed in order by a single worker.
func (r *LearningReconciler) Rebuild(ctx context.Context) (int, error) {
	since := r.now().Add(-r.cfg.Window)
	records, err := r.chats.FindSince(ctx, since, r.cfg.Limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load chat history for rebuild: %w", err)
	}

	var order []uint
	byUser := make(map[uint][]models.ChatHistory)
	for _, rec := range records {
		if _, ok := byUser[rec.UserID]; !ok {
			order = append(order, rec.UserID)
		}
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}

	var wg sync.WaitGroup
	for _, userID := range order {
		batch := byUser[userID]
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			for _, rec := range batch {
				r.model.Replay(rec)
			}
		}); err != nil {
			wg.Done()
			wg.Wait()
			return 0, fmt.Errorf("failed to schedule replay for user %d: %w", userID, err)
		}
	}
	wg.Wait()

	r.logger.WithFields(logrus.Fields{
		"records": len(records),
		"users":   len(order),
		"since":   since,
	}).Info("Rebuilt learning state from chat history")
	return len(records), nil
}

// RefreshPreferences recomputes the preference profile of every user active
// since the previous run. Individual failures are logged, not returned.
func (r *LearningReconciler) RefreshPreferences(ctx context.Context) error {
	started := r.now()

	r.mu.Lock()
	since := r.lastRefresh
	r.mu.Unlock()
	if since.IsZero() {
		since = started.Add(-r.cfg.Window)
	}

	users, err := r.chats.FindActiveUsersSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, userID := range users {
		id := userID
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			if err := r.preferences.UpdateUserPreferences(ctx, id); err != nil {
				failed.Add(1)
				r.logger.WithError(err).WithField("user_id", id).Warn("Preference refresh failed")
			}
		}); err != nil {
			wg.Done()
			failed.Add(1)
			r.logger.WithError(err).WithField("user_id", id).Warn("Failed to schedule preference refresh")
		}
	}
	wg.Wait()

	r.mu.Lock()
	r.lastRefresh = started
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"users":  len(users),
		"failed": failed.Load(),
	}).Info("Refreshed user preferences")
	return nil
}

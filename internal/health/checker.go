package health

import (
	"context"
	"time"

	"github.com/Ayash-Bera/archivist/internal/database"
	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Dependency is a named service checked through Ping.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// SnapshotCache stores the last overall result for cheap reads.
type SnapshotCache interface {
	CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error
	GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error)
}

// StatsSource reports cache counters. A SnapshotCache that implements it
// gets its counters attached to Current.
type StatsSource interface {
	GetCacheStats(ctx context.Context) (map[string]string, error)
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	deps       []Dependency
	cache      SnapshotCache
	healthRepo models.SystemHealthRepository
	logger     *logrus.Logger
	started    time.Time
}

// NewHealthChecker checks postgres and redis of dbManager.
func NewHealthChecker(dbManager *database.Manager, healthRepo models.SystemHealthRepository, logger *logrus.Logger) *HealthChecker {
	deps := []Dependency{
		{Name: "postgresql", Ping: dbManager.PingDatabase},
		{Name: "redis", Ping: dbManager.PingRedis},
	}
	return NewChecker(deps, database.NewCache(dbManager.Redis, logger), healthRepo, logger)
}

func NewChecker(deps []Dependency, cache SnapshotCache, healthRepo models.SystemHealthRepository, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		deps:       deps,
		cache:      cache,
		healthRepo: healthRepo,
		logger:     logger,
		started:    time.Now(),
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string            `json:"status"`
	Services []ServiceHealth   `json:"services"`
	Uptime   string            `json:"uptime"`
	Cache    map[string]string `json:"cache,omitempty"`
}

func (h *HealthChecker) check(ctx context.Context, p Dependency) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusUnhealthy
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", p.Name).Error("Health check failed")
	}

	if err := h.healthRepo.UpdateServiceHealth(p.Name, status, responseTime, errorMsg); err != nil {
		h.logger.WithError(err).WithField("service", p.Name).Warn("Failed to persist health status")
	}

	return ServiceHealth{
		Name:         p.Name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, len(h.deps))
	for i, p := range h.deps {
		services[i] = h.check(ctx, p)
	}

	statuses := make([]string, len(services))
	for i, s := range services {
		statuses[i] = s.Status
	}

	return OverallHealth{
		Status:   aggregate(statuses),
		Services: services,
		Uptime:   time.Since(h.started).String(),
	}
}

func aggregate(statuses []string) string {
	overall := StatusHealthy
	for _, s := range statuses {
		if s == StatusUnhealthy {
			return StatusUnhealthy
		}
		if s == StatusDegraded {
			overall = StatusDegraded
		}
	}
	return overall
}

// CheckCached returns cached health status if available
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	cached, err := h.cache.GetCachedSystemHealth(ctx)
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(cached))
	statuses := make([]string, len(cached))
	for i, c := range cached {
		services[i] = ServiceHealth{
			Name:         c.ServiceName,
			Status:       c.Status,
			ResponseTime: c.ResponseTimeMs,
			Error:        c.ErrorMessage,
			LastChecked:  c.CheckedAt.Format(time.RFC3339),
		}
		statuses[i] = c.Status
	}

	return &OverallHealth{
		Status:   aggregate(statuses),
		Services: services,
		Uptime:   time.Since(h.started).String(),
	}, nil
}

// Current serves the cached snapshot and falls back to a live check.
func (h *HealthChecker) Current(ctx context.Context) OverallHealth {
	var overall OverallHealth
	if cached, err := h.CheckCached(ctx); err == nil && len(cached.Services) > 0 {
		overall = *cached
	} else {
		overall = h.CheckAll(ctx)
	}

	if stats, ok := h.cache.(StatsSource); ok {
		counters, err := stats.GetCacheStats(ctx)
		if err != nil {
			h.logger.WithError(err).Debug("Cache stats unavailable")
		} else {
			overall.Cache = counters
		}
	}
	return overall
}

// PeriodicHealthCheck runs health checks until ctx is cancelled and caches
// each result for two intervals.
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refresh(ctx, interval)
		}
	}
}

func (h *HealthChecker) refresh(ctx context.Context, interval time.Duration) {
	health := h.CheckAll(ctx)

	snapshot := make([]models.SystemHealth, len(health.Services))
	for i, service := range health.Services {
		checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
		snapshot[i] = models.SystemHealth{
			ServiceName:    service.Name,
			Status:         service.Status,
			ResponseTimeMs: service.ResponseTime,
			ErrorMessage:   service.Error,
			CheckedAt:      checkedAt,
		}
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.cache.CacheSystemHealth(cacheCtx, snapshot, 2*interval); err != nil {
		h.logger.WithError(err).Error("Failed to cache health status")
	}

	h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
}

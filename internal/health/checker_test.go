package health

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHealthRepo struct {
	updates []models.SystemHealth
}

func (r *memHealthRepo) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	r.updates = append(r.updates, models.SystemHealth{ServiceName: serviceName, Status: status, ErrorMessage: errorMsg})
	return nil
}

func (r *memHealthRepo) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	return nil, models.ErrRecordNotFound
}

func (r *memHealthRepo) GetAllServicesHealth() ([]models.SystemHealth, error) { return r.updates, nil }
func (r *memHealthRepo) GetUnhealthyServices() ([]models.SystemHealth, error) { return nil, nil }

type memSnapshot struct {
	stored []models.SystemHealth
}

func (c *memSnapshot) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	c.stored = health
	return nil
}

func (c *memSnapshot) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	if c.stored == nil {
		return nil, errors.New("redis: nil")
	}
	return c.stored, nil
}

func newTestChecker(deps ...Dependency) (*HealthChecker, *memHealthRepo, *memSnapshot) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := &memHealthRepo{}
	cache := &memSnapshot{}
	return NewChecker(deps, cache, repo, logger), repo, cache
}

func ok(context.Context) error { return nil }

func TestCheckAll_Healthy(t *testing.T) {
	h, repo, _ := newTestChecker(Dependency{Name: "postgresql", Ping: ok}, Dependency{Name: "redis", Ping: ok})

	overall := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, overall.Status)
	assert.Len(t, overall.Services, 2)
	assert.Len(t, repo.updates, 2)
}

func TestCheckAll_OneDependencyDown(t *testing.T) {
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }
	h, repo, _ := newTestChecker(Dependency{Name: "postgresql", Ping: ok}, Dependency{Name: "redis", Ping: down})

	overall := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, overall.Status)
	assert.Equal(t, "dial tcp: connection refused", overall.Services[1].Error)
	assert.Equal(t, StatusUnhealthy, repo.updates[1].Status)
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, StatusHealthy, aggregate(nil))
	assert.Equal(t, StatusDegraded, aggregate([]string{StatusHealthy, StatusDegraded}))
	assert.Equal(t, StatusUnhealthy, aggregate([]string{StatusDegraded, StatusUnhealthy, StatusHealthy}))
}

func TestCurrent_PrefersSnapshot(t *testing.T) {
	calls := 0
	counting := func(context.Context) error { calls++; return nil }
	h, _, cache := newTestChecker(Dependency{Name: "redis", Ping: counting})

	first := h.Current(context.Background())
	assert.Equal(t, StatusHealthy, first.Status)
	assert.Equal(t, 1, calls)

	h.refresh(context.Background(), time.Second)
	require.Len(t, cache.stored, 1)
	assert.Equal(t, 2, calls)

	cached := h.Current(context.Background())
	assert.Equal(t, "redis", cached.Services[0].Name)
	assert.Equal(t, 2, calls)
}

type statsSnapshot struct {
	memSnapshot
	stats map[string]string
	err   error
}

func (c *statsSnapshot) GetCacheStats(ctx context.Context) (map[string]string, error) {
	return c.stats, c.err
}

func TestCurrent_AttachesCacheStats(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cache := &statsSnapshot{stats: map[string]string{"keyspace_hits": "42"}}
	h := NewChecker([]Dependency{{Name: "redis", Ping: ok}}, cache, &memHealthRepo{}, logger)

	overall := h.Current(context.Background())
	assert.Equal(t, "42", overall.Cache["keyspace_hits"])

	cache.err = errors.New("redis: connection pool timeout")
	overall = h.Current(context.Background())
	assert.Nil(t, overall.Cache)
	assert.Equal(t, StatusHealthy, overall.Status)
}

func TestCurrent_NoStatsWithoutSource(t *testing.T) {
	h, _, _ := newTestChecker(Dependency{Name: "redis", Ping: ok})
	assert.Nil(t, h.Current(context.Background()).Cache)
}

package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ayash-Bera/archivist/internal/learning"
	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type memArchives struct {
	mu    sync.Mutex
	items []models.Archive
	err   error
	calls int
}

func (m *memArchives) record() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *memArchives) filter(keep func(a *models.Archive) bool) []models.Archive {
	var out []models.Archive
	for i := range m.items {
		if keep(&m.items[i]) {
			out = append(out, m.items[i])
		}
	}
	return out
}

func (m *memArchives) Create(ctx context.Context, a *models.Archive) error {
	if err := m.record(); err != nil {
		return err
	}
	m.items = append(m.items, *a)
	return nil
}

func (m *memArchives) Upsert(ctx context.Context, a *models.Archive) error {
	return m.Create(ctx, a)
}

func (m *memArchives) GetByID(ctx context.Context, id uint) (*models.Archive, error) {
	if err := m.record(); err != nil {
		return nil, err
	}
	for _, a := range m.items {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, models.ErrRecordNotFound
}

func (m *memArchives) SearchByTitleOrDescription(ctx context.Context, keyword string) ([]models.Archive, error) {
	if err := m.record(); err != nil {
		return nil, err
	}
	return m.filter(func(a *models.Archive) bool {
		return strings.Contains(a.Title, keyword) || strings.Contains(a.Description, keyword)
	}), nil
}

func (m *memArchives) FindByCategory(ctx context.Context, category string) ([]models.Archive, error) {
	if err := m.record(); err != nil {
		return nil, err
	}
	return m.filter(func(a *models.Archive) bool { return a.Category == category }), nil
}

func (m *memArchives) FindByLocation(ctx context.Context, location string) ([]models.Archive, error) {
	if err := m.record(); err != nil {
		return nil, err
	}
	return m.filter(func(a *models.Archive) bool { return a.Location == location }), nil
}

func (m *memArchives) FindByCreationTimeBetween(ctx context.Context, start, end time.Time) ([]models.Archive, error) {
	if err := m.record(); err != nil {
		return nil, err
	}
	return m.filter(func(a *models.Archive) bool {
		return !a.CreatedAt.Before(start) && a.CreatedAt.Before(end)
	}), nil
}

type memChats struct {
	mu        sync.Mutex
	records   map[uint]*models.ChatHistory
	nextID    uint
	hot       []string
	hotCalls  int
	calls     int
	saveErr   error
	updateErr error
}

func newMemChats() *memChats {
	return &memChats{records: make(map[uint]*models.ChatHistory)}
}

func (m *memChats) Save(ctx context.Context, record *models.ChatHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if err := record.Validate(); err != nil {
		return err
	}
	m.nextID++
	record.ID = m.nextID
	record.CreatedAt = testNow
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *memChats) FindByID(ctx context.Context, id uint) (*models.ChatHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.records[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	out := *r
	return &out, nil
}

func (m *memChats) sorted(keep func(r *models.ChatHistory) bool) []models.ChatHistory {
	var out []models.ChatHistory
	for _, r := range m.records {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memChats) FindRecentByUser(ctx context.Context, userID uint, limit int) ([]models.ChatHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := m.sorted(func(r *models.ChatHistory) bool { return r.UserID == userID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memChats) FindHotQueries(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.hotCalls++
	if len(m.hot) > limit {
		return m.hot[:limit], nil
	}
	return m.hot, nil
}

func (m *memChats) UpdateFeedback(ctx context.Context, id uint, update models.FeedbackUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.records[id]
	if !ok {
		return models.ErrRecordNotFound
	}
	if r.IsHelpful != nil {
		return models.ErrAlreadyRated
	}
	helpful := update.IsHelpful
	r.IsHelpful = &helpful
	r.RelevanceScore = update.RelevanceScore
	r.UserAction = update.UserAction
	at := testNow
	r.FeedbackAt = &at
	return nil
}

func (m *memChats) FindSince(ctx context.Context, since time.Time, limit int) ([]models.ChatHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := m.sorted(func(r *models.ChatHistory) bool { return !r.CreatedAt.Before(since) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memChats) FindActiveUsersSince(ctx context.Context, since time.Time) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	seen := make(map[uint]bool)
	var out []uint
	for _, r := range m.sorted(func(r *models.ChatHistory) bool { return !r.CreatedAt.Before(since) }) {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

type memUsers struct {
	mu      sync.Mutex
	users   map[uint]*models.User
	calls   int
	saveErr error
}

func newMemUsers(ids ...uint) *memUsers {
	m := &memUsers{users: make(map[uint]*models.User)}
	for _, id := range ids {
		u := &models.User{Username: "user"}
		u.ID = id
		m.users[id] = u
	}
	return m
}

func (m *memUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	out := *u
	return &out, nil
}

func (m *memUsers) Save(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.saveErr != nil {
		return m.saveErr
	}
	u := *user
	m.users[user.ID] = &u
	return nil
}

type memHotCache struct {
	entries map[int][]string
	sets    int
}

func (c *memHotCache) GetHotQueries(ctx context.Context, limit int) ([]string, error) {
	q, ok := c.entries[limit]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return q, nil
}

func (c *memHotCache) SetHotQueries(ctx context.Context, limit int, queries []string, ttl time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[int][]string)
	}
	c.entries[limit] = queries
	c.sets++
	return nil
}

type fixture struct {
	archives *memArchives
	chats    *memChats
	users    *memUsers
	cache    *memHotCache
	model    *learning.Model
	service  *ChatService
}

func newFixture(archives ...models.Archive) *fixture {
	f := &fixture{
		archives: &memArchives{items: archives},
		chats:    newMemChats(),
		users:    newMemUsers(1, 2),
		cache:    &memHotCache{},
	}
	f.model = learning.NewModel(learning.NewStore(learning.StoreConfig{}), testClock, quietLogger())
	f.service = NewChatService(
		ChatRepositories{Archives: f.archives, Chats: f.chats, Users: f.users},
		f.model,
		f.cache,
		ChatConfig{HotQueriesTTL: time.Minute},
		quietLogger(),
		WithClock(testClock),
	)
	return f
}

func newArchive(id uint, title, category, location, status string, created time.Time) models.Archive {
	a := models.Archive{
		Title:      title,
		Category:   category,
		Location:   location,
		FileNumber: strings.ToUpper(category) + "-" + title,
		Status:     status,
	}
	a.ID = id
	a.CreatedAt = created
	return a
}

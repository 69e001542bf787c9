package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrRecordNotFound
	}
	return err
}

// ArchiveRepositoryImpl implements ArchiveRepository
type ArchiveRepositoryImpl struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) models.ArchiveRepository {
	return &ArchiveRepositoryImpl{db: db}
}

func (r *ArchiveRepositoryImpl) Create(ctx context.Context, archive *models.Archive) error {
	return r.db.WithContext(ctx).Create(archive).Error
}

// Upsert inserts the archive or refreshes the catalogue fields of the row
// with the same file number. The creation time is overwritten only when the
// caller supplies one.
func (r *ArchiveRepositoryImpl) Upsert(ctx context.Context, archive *models.Archive) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_number"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns(archive)),
	}).Create(archive).Error
}

func upsertColumns(archive *models.Archive) []string {
	columns := []string{"title", "description", "category", "location", "status", "updated_at"}
	if !archive.CreatedAt.IsZero() {
		columns = append(columns, "created_at")
	}
	return columns
}

func (r *ArchiveRepositoryImpl) GetByID(ctx context.Context, id uint) (*models.Archive, error) {
	var archive models.Archive
	if err := r.db.WithContext(ctx).First(&archive, id).Error; err != nil {
		return nil, translate(err)
	}
	return &archive, nil
}

func (r *ArchiveRepositoryImpl) SearchByTitleOrDescription(ctx context.Context, keyword string) ([]models.Archive, error) {
	var archives []models.Archive
	pattern := containsPattern(keyword)
	err := r.db.WithContext(ctx).
		Where("title ILIKE ? OR description ILIKE ?", pattern, pattern).
		Order("id").
		Find(&archives).Error
	return archives, err
}

func (r *ArchiveRepositoryImpl) FindByCategory(ctx context.Context, category string) ([]models.Archive, error) {
	var archives []models.Archive
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id").
		Find(&archives).Error
	return archives, err
}

func (r *ArchiveRepositoryImpl) FindByLocation(ctx context.Context, location string) ([]models.Archive, error) {
	var archives []models.Archive
	err := r.db.WithContext(ctx).
		Where("location = ?", location).
		Order("id").
		Find(&archives).Error
	return archives, err
}

// FindByCreationTimeBetween matches start <= created_at < end.
func (r *ArchiveRepositoryImpl) FindByCreationTimeBetween(ctx context.Context, start, end time.Time) ([]models.Archive, error) {
	var archives []models.Archive
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("id").
		Find(&archives).Error
	return archives, err
}

// ChatHistoryRepositoryImpl implements ChatHistoryRepository
type ChatHistoryRepositoryImpl struct {
	db *gorm.DB
}

func NewChatHistoryRepository(db *gorm.DB) models.ChatHistoryRepository {
	return &ChatHistoryRepositoryImpl{db: db}
}

func (r *ChatHistoryRepositoryImpl) Save(ctx context.Context, record *models.ChatHistory) error {
	if record.ID == 0 {
		return r.db.WithContext(ctx).Create(record).Error
	}
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *ChatHistoryRepositoryImpl) FindByID(ctx context.Context, id uint) (*models.ChatHistory, error) {
	var record models.ChatHistory
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *ChatHistoryRepositoryImpl) FindRecentByUser(ctx context.Context, userID uint, limit int) ([]models.ChatHistory, error) {
	var records []models.ChatHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// FindHotQueries returns the most asked query texts, most frequent first.
func (r *ChatHistoryRepositoryImpl) FindHotQueries(ctx context.Context, limit int) ([]string, error) {
	var queries []string
	err := r.db.WithContext(ctx).
		Model(&models.ChatHistory{}).
		Group("query").
		Order("COUNT(*) DESC, MAX(created_at) DESC").
		Limit(limit).
		Pluck("query", &queries).Error
	return queries, err
}

// UpdateFeedback writes the vote fields only, and only on a record that has
// not been rated yet. Optional fields left nil keep their stored value.
func (r *ChatHistoryRepositoryImpl) UpdateFeedback(ctx context.Context, id uint, update models.FeedbackUpdate) error {
	fields := map[string]interface{}{
		"is_helpful":  update.IsHelpful,
		"feedback_at": time.Now(),
	}
	if update.RelevanceScore != nil {
		fields["relevance_score"] = *update.RelevanceScore
	}
	if update.UserAction != nil {
		fields["user_action"] = *update.UserAction
	}

	result := r.db.WithContext(ctx).
		Model(&models.ChatHistory{}).
		Where("id = ? AND is_helpful IS NULL", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChatHistory{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.ErrRecordNotFound
	}
	return models.ErrAlreadyRated
}

// FindSince returns the newest limit records created at or after since,
// oldest first.
func (r *ChatHistoryRepositoryImpl) FindSince(ctx context.Context, since time.Time, limit int) ([]models.ChatHistory, error) {
	var records []models.ChatHistory
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	reverse(records)
	return records, nil
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func (r *ChatHistoryRepositoryImpl) FindActiveUsersSince(ctx context.Context, since time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.ChatHistory{}).
		Where("created_at >= ?", since).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) models.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Create(&models.SystemHealth{
		ServiceName:    serviceName,
		Status:         status,
		ResponseTimeMs: responseTime,
		ErrorMessage:   errorMsg,
		CheckedAt:      time.Now(),
	}).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		First(&health).Error
	if err != nil {
		return nil, translate(err)
	}
	return &health, nil
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

func (r *SystemHealthRepositoryImpl) GetUnhealthyServices() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT * FROM (
			SELECT DISTINCT ON (service_name) *
			FROM system_health
			ORDER BY service_name, checked_at DESC
		) latest
		WHERE status != 'healthy'
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Archives     models.ArchiveRepository
	ChatHistory  models.ChatHistoryRepository
	Users        models.UserRepository
	SystemHealth models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Archives:     NewArchiveRepository(db),
		ChatHistory:  NewChatHistoryRepository(db),
		Users:        NewUserRepository(db),
		SystemHealth: NewSystemHealthRepository(db),
	}
}

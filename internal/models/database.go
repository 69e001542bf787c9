package models

// GORM models

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrRecordNotFound is returned by repositories when a lookup by id misses.
var ErrRecordNotFound = errors.New("record not found")

// ErrAlreadyRated is returned when feedback is written to a chat record that
// already carries a vote.
var ErrAlreadyRated = errors.New("chat record already rated")

// Archive status values as stored in the archives table.
const (
	StatusAvailable  = "AVAILABLE"
	StatusBorrowed   = "BORROWED"
	StatusProcessing = "PROCESSING"
	StatusArchived   = "ARCHIVED"
)

// StringArray for PostgreSQL array support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	quoted := make([]string, len(s))
	for i, item := range s {
		item = strings.ReplaceAll(item, `\`, `\\`)
		item = strings.ReplaceAll(item, `"`, `\"`)
		quoted[i] = `"` + item + `"`
	}
	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
	case string:
		out, err := parseArrayLiteral(v)
		if err != nil {
			return err
		}
		*s = out
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// parseArrayLiteral reads a one-dimensional postgres text[] literal. Quoted
// elements may contain commas, braces and backslash escapes; an unquoted NULL
// becomes the empty string.
func parseArrayLiteral(src string) (StringArray, error) {
	src = strings.TrimSpace(src)
	if len(src) < 2 || src[0] != '{' || src[len(src)-1] != '}' {
		return nil, fmt.Errorf("malformed array literal %q", src)
	}
	body := src[1 : len(src)-1]
	out := StringArray{}
	if strings.TrimSpace(body) == "" {
		return out, nil
	}

	var elem strings.Builder
	quoted, inQuotes, escaped := false, false, false
	flush := func() {
		item := elem.String()
		if !quoted {
			item = strings.TrimSpace(item)
			if strings.EqualFold(item, "NULL") {
				item = ""
			}
		}
		out = append(out, item)
		elem.Reset()
		quoted = false
	}

	for _, r := range body {
		switch {
		case escaped:
			elem.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case r == ',' && !inQuotes:
			flush()
		default:
			elem.WriteRune(r)
		}
	}
	if inQuotes || escaped {
		return nil, fmt.Errorf("unterminated array literal %q", src)
	}
	flush()
	return out, nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Archive is a catalogued archive file. CreatedAt doubles as the archive's
// creation time for time-range matching.
type Archive struct {
	BaseModel
	Title       string `json:"title" gorm:"not null;index"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category" gorm:"index"`
	Location    string `json:"location" gorm:"index"`
	FileNumber  string `json:"file_number" gorm:"uniqueIndex;not null"`
	Status      string `json:"status" gorm:"default:'AVAILABLE';check:status IN ('AVAILABLE','BORROWED','PROCESSING','ARCHIVED')"`
}

// IsAvailable reports whether the archive can currently be borrowed.
func (a *Archive) IsAvailable() bool {
	return strings.EqualFold(a.Status, StatusAvailable)
}

// ChatHistory is one question/answer interaction of the archive assistant.
type ChatHistory struct {
	BaseModel
	UserID           uint        `json:"user_id" gorm:"not null;index"`
	SessionID        string      `json:"session_id" gorm:"size:64;index"`
	Query            string      `json:"query" gorm:"type:text;not null"`
	Response         string      `json:"response" gorm:"type:text"`
	QueryType        string      `json:"query_type" gorm:"size:20"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	ArchiveIDs       StringArray `json:"archive_ids" gorm:"type:text[]"`
	Keywords         StringArray `json:"keywords" gorm:"type:text[]"`
	HasTimeRange     bool        `json:"has_time_range"`
	HasCategory      bool        `json:"has_category"`
	HasLocation      bool        `json:"has_location"`
	IsHelpful        *bool       `json:"is_helpful"`
	RelevanceScore   *int        `json:"relevance_score"`
	UserAction       *string     `json:"user_action" gorm:"size:64"`
	FeedbackAt       *time.Time  `json:"feedback_at"`
}

// Successful reports whether the interaction produced at least one archive.
func (ch *ChatHistory) Successful() bool {
	return len(ch.ArchiveIDs) > 0
}

// User holds the account fields the assistant reads and the serialized
// preference profile it writes back.
type User struct {
	BaseModel
	Username    string `json:"username" gorm:"unique;not null"`
	DisplayName string `json:"display_name"`
	Preferences string `json:"preferences" gorm:"type:text"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// FeedbackUpdate carries the only chat history fields a feedback event may change.
type FeedbackUpdate struct {
	IsHelpful      bool
	RelevanceScore *int
	UserAction     *string
}

// Database interfaces for repository pattern
type ArchiveRepository interface {
	Create(ctx context.Context, archive *Archive) error
	Upsert(ctx context.Context, archive *Archive) error
	GetByID(ctx context.Context, id uint) (*Archive, error)
	SearchByTitleOrDescription(ctx context.Context, keyword string) ([]Archive, error)
	FindByCategory(ctx context.Context, category string) ([]Archive, error)
	FindByLocation(ctx context.Context, location string) ([]Archive, error)
	FindByCreationTimeBetween(ctx context.Context, start, end time.Time) ([]Archive, error)
}

type ChatHistoryRepository interface {
	Save(ctx context.Context, record *ChatHistory) error
	FindByID(ctx context.Context, id uint) (*ChatHistory, error)
	FindRecentByUser(ctx context.Context, userID uint, limit int) ([]ChatHistory, error)
	FindHotQueries(ctx context.Context, limit int) ([]string, error)
	UpdateFeedback(ctx context.Context, id uint, update FeedbackUpdate) error
	FindSince(ctx context.Context, since time.Time, limit int) ([]ChatHistory, error)
	FindActiveUsersSince(ctx context.Context, since time.Time) ([]uint, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*User, error)
	Save(ctx context.Context, user *User) error
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
	GetUnhealthyServices() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (Archive) TableName() string      { return "archives" }
func (ChatHistory) TableName() string  { return "chat_histories" }
func (User) TableName() string         { return "users" }
func (SystemHealth) TableName() string { return "system_health" }

// Model validation methods
func (a *Archive) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("archive title is required")
	}
	if a.FileNumber == "" {
		return fmt.Errorf("archive file number is required")
	}
	validStatuses := map[string]bool{
		StatusAvailable:  true,
		StatusBorrowed:   true,
		StatusProcessing: true,
		StatusArchived:   true,
	}
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("invalid archive status: %s", a.Status)
	}
	return nil
}

func (ch *ChatHistory) Validate() error {
	if ch.UserID == 0 {
		return fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(ch.Query) == "" {
		return fmt.Errorf("query text is required")
	}
	if ch.ProcessingTimeMs < 0 {
		return fmt.Errorf("processing time cannot be negative")
	}
	return nil
}

// GORM hooks
func (a *Archive) BeforeCreate(tx *gorm.DB) error {
	return a.Validate()
}

func (a *Archive) BeforeUpdate(tx *gorm.DB) error {
	return a.Validate()
}

func (ch *ChatHistory) BeforeCreate(tx *gorm.DB) error {
	return ch.Validate()
}

package seeder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
)

// Entry is one archive as it appears in a catalog source, before cleanup.
type Entry struct {
	FileNumber  string `yaml:"file_number"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Location    string `yaml:"location"`
	Status      string `yaml:"status"`
	CreatedAt   string `yaml:"created_at"`
}

// ErrInvalidEntry marks a catalog entry that cannot become an archive.
var ErrInvalidEntry = errors.New("invalid catalog entry")

var statusAliases = map[string]string{
	"可用":         models.StatusAvailable,
	"在库":         models.StatusAvailable,
	"已借出":        models.StatusBorrowed,
	"借出":         models.StatusBorrowed,
	"处理中":        models.StatusProcessing,
	"已归档":        models.StatusArchived,
	"归档":         models.StatusArchived,
	"available":  models.StatusAvailable,
	"borrowed":   models.StatusBorrowed,
	"processing": models.StatusProcessing,
	"archived":   models.StatusArchived,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006年1月2日",
	"2006年01月02日",
}

// CatalogProcessor cleans raw catalog text and turns entries into archives.
type CatalogProcessor struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	loc             *time.Location
}

func NewCatalogProcessor(loc *time.Location) *CatalogProcessor {
	if loc == nil {
		loc = time.Local
	}
	return &CatalogProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		loc:             loc,
	}
}

// CleanText strips markup and collapses whitespace runs into one space.
func (cp *CatalogProcessor) CleanText(text string) string {
	text = cp.htmlTags.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "　", " ")
	return strings.TrimSpace(cp.multiWhitespace.ReplaceAllString(text, " "))
}

// NormalizeStatus maps a display label or stored value to a status constant.
// An empty status defaults to AVAILABLE.
func NormalizeStatus(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.StatusAvailable, nil
	}
	if status, ok := statusAliases[strings.ToLower(s)]; ok {
		return status, nil
	}
	if status, ok := statusAliases[s]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, raw)
}

// ParseDate accepts the date formats found in catalogs. Dates without a
// zone are read in the processor's location.
func (cp *CatalogProcessor) ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, cp.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidEntry, raw)
}

// Normalize validates an entry and converts it into an archive ready for
// upsert. A missing creation date leaves CreatedAt zero so the database
// assigns the insert time.
func (cp *CatalogProcessor) Normalize(e Entry) (models.Archive, error) {
	archive := models.Archive{
		FileNumber:  strings.ToUpper(cp.CleanText(e.FileNumber)),
		Title:       cp.CleanText(e.Title),
		Description: cp.CleanText(e.Description),
		Category:    cp.CleanText(e.Category),
		Location:    cp.CleanText(e.Location),
	}

	status, err := NormalizeStatus(cp.CleanText(e.Status))
	if err != nil {
		return models.Archive{}, err
	}
	archive.Status = status

	if raw := cp.CleanText(e.CreatedAt); raw != "" {
		created, err := cp.ParseDate(raw)
		if err != nil {
			return models.Archive{}, err
		}
		archive.CreatedAt = created
	}

	if err := archive.Validate(); err != nil {
		return models.Archive{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return archive, nil
}

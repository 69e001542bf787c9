package learning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
)

// PreferenceHistoryLimit is how many recent chat records feed a profile.
const PreferenceHistoryLimit = 100

// PreferenceProfile is the keyword frequency profile stored on the user record.
type PreferenceProfile struct {
	Keywords   map[string]int `json:"keywords"`
	Samples    int            `json:"samples"`
	ComputedAt time.Time      `json:"computed_at"`
}

// AnalyzeUserPreferences counts whitespace-separated query tokens over at
// most PreferenceHistoryLimit records. It has no side effects.
func AnalyzeUserPreferences(history []models.ChatHistory) map[string]int {
	if len(history) > PreferenceHistoryLimit {
		history = history[:PreferenceHistoryLimit]
	}

	frequencies := make(map[string]int)
	for _, record := range history {
		for _, token := range strings.Fields(record.Query) {
			frequencies[token]++
		}
	}
	return frequencies
}

// NewPreferenceProfile builds a profile from a user's recent history.
func NewPreferenceProfile(history []models.ChatHistory, at time.Time) PreferenceProfile {
	samples := len(history)
	if samples > PreferenceHistoryLimit {
		samples = PreferenceHistoryLimit
	}
	return PreferenceProfile{
		Keywords:   AnalyzeUserPreferences(history),
		Samples:    samples,
		ComputedAt: at,
	}
}

// Encode serialises the profile for the user record.
func (p PreferenceProfile) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal preference profile: %w", err)
	}
	return string(data), nil
}

// DecodePreferenceProfile parses a stored profile. An empty blob is an empty profile.
func DecodePreferenceProfile(blob string) (PreferenceProfile, error) {
	var p PreferenceProfile
	if strings.TrimSpace(blob) == "" {
		return PreferenceProfile{Keywords: map[string]int{}}, nil
	}
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return PreferenceProfile{}, fmt.Errorf("failed to unmarshal preference profile: %w", err)
	}
	if p.Keywords == nil {
		p.Keywords = map[string]int{}
	}
	return p, nil
}

// TopKeywords returns up to n keywords by descending count, ties by keyword.
func (p PreferenceProfile) TopKeywords(n int) []string {
	keys := make([]string, 0, len(p.Keywords))
	for k := range p.Keywords {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if p.Keywords[keys[i]] != p.Keywords[keys[j]] {
			return p.Keywords[keys[i]] > p.Keywords[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Package ranking gathers candidate archives for a query intent, scores them
// and renders the answer and follow-up suggestions shown to the user.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/Ayash-Bera/archivist/internal/query"
)

// DefaultTopN is how many candidates survive ranking.
const DefaultTopN = 5

// FrequencySource reports how often an archive was observed in results.
type FrequencySource interface {
	AccessFrequency(fileNumber string) int64
}

// WeightLookup exposes learned keyword weights to the scorer.
type WeightLookup interface {
	KeywordWeight(keyword string) (float64, bool)
}

// Candidate pairs an archive with its relevance for one query.
type Candidate struct {
	Archive   models.Archive
	Relevance int
}

// Scorer computes additive integer relevance scores.
type Scorer struct {
	now       func() time.Time
	frequency FrequencySource
	weights   WeightLookup
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithScorerClock sets the clock used for the recency bonus.
func WithScorerClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeywordWeights makes every matched keyword also add its rounded
// learned weight. Without it learned weights do not affect scores.
func WithKeywordWeights(w WeightLookup) ScorerOption {
	return func(s *Scorer) {
		s.weights = w
	}
}

// NewScorer creates a scorer. frequency may be nil, which disables the
// access-frequency bonus.
func NewScorer(frequency FrequencySource, opts ...ScorerOption) *Scorer {
	s := &Scorer{now: time.Now, frequency: frequency}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the relevance of archive for intent.
func (s *Scorer) Score(archive *models.Archive, intent *query.Intent) int {
	score := 0

	for _, kw := range intent.Keywords {
		matched := false
		if strings.Contains(archive.Title, kw) {
			score += 3
			if archive.Title == kw {
				score += 2
			}
			matched = true
		}
		if strings.Contains(archive.Description, kw) {
			score += 2
			matched = true
		}
		if strings.Contains(archive.Category, kw) {
			score++
			matched = true
		}
		if matched && s.weights != nil {
			// Penalised keywords add nothing; a match never lowers the score.
			if w, ok := s.weights.KeywordWeight(kw); ok {
				score += max(0, int(math.Round(w)))
			}
		}
	}

	now := s.now()
	recent := query.TimeRange{Start: now.AddDate(0, -1, 0), End: now}
	for _, r := range intent.TimeRanges {
		if r.Contains(archive.CreatedAt) {
			score += 2
			if recent.Contains(archive.CreatedAt) {
				score++
			}
		}
	}

	for _, c := range intent.Categories {
		if archive.Category == c {
			score += 2
		}
	}
	for _, l := range intent.Locations {
		if archive.Location == l {
			score += 2
		}
	}

	if archive.IsAvailable() {
		score++
	}

	score += s.frequencyBonus(archive.FileNumber)
	return score
}

func (s *Scorer) frequencyBonus(fileNumber string) int {
	if s.frequency == nil {
		return 0
	}
	switch n := s.frequency.AccessFrequency(fileNumber); {
	case n > 100:
		return 3
	case n > 50:
		return 2
	case n > 10:
		return 1
	default:
		return 0
	}
}

// Rank scores archives, orders them by descending relevance and keeps the
// first topN. Equal scores keep their input order.
func (s *Scorer) Rank(archives []models.Archive, intent *query.Intent, topN int) []Candidate {
	if topN <= 0 {
		topN = DefaultTopN
	}

	candidates := make([]Candidate, len(archives))
	for i := range archives {
		candidates[i] = Candidate{
			Archive:   archives[i],
			Relevance: s.Score(&archives[i], intent),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

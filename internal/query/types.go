// Package query turns free-text archive questions into structured intents:
// keywords, time ranges, categories, locations and a coarse intent type.
package query

import "time"

// IntentType is the coarse purpose of a query.
type IntentType string

const (
	IntentSearch     IntentType = "SEARCH"
	IntentStatistics IntentType = "STATISTICS"
	IntentBorrow     IntentType = "BORROW"
	IntentQuestion   IntentType = "QUESTION"
)

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the range. End is exclusive, so a
// day range does not reach the following midnight.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Intent is the structured form of one query. It is built once by Analyzer
// and not modified afterwards.
type Intent struct {
	Type       IntentType
	Keywords   []string
	TimeRanges []TimeRange
	Categories []string
	Locations  []string
	Complexity int
}

// HasTimeRange reports whether any time range was extracted.
func (i *Intent) HasTimeRange() bool { return len(i.TimeRanges) > 0 }

// HasCategory reports whether any category term was matched.
func (i *Intent) HasCategory() bool { return len(i.Categories) > 0 }

// HasLocation reports whether any location term was matched.
func (i *Intent) HasLocation() bool { return len(i.Locations) > 0 }

package query

import (
	"regexp"
	"strconv"
	"time"
)

var (
	fullDatePattern  = regexp.MustCompile(`(\d{4})[年\-/.](\d{1,2})[月\-/.](\d{1,2})日?`)
	yearMonthPattern = regexp.MustCompile(`(\d{4})[年\-/.](\d{1,2})月?`)
	yearPattern      = regexp.MustCompile(`(\d{4})年?`)
	relativePattern  = regexp.MustCompile(`(最近|过去)(一周|7天|一个月|30天|一年)`)
)

// TimeRangeParser converts date-like fragments into time ranges relative to
// the clock it was built with.
type TimeRangeParser struct {
	now func() time.Time
}

// NewTimeRangeParser returns a parser using now as its clock. A nil now
// falls back to time.Now.
func NewTimeRangeParser(now func() time.Time) *TimeRangeParser {
	if now == nil {
		now = time.Now
	}
	return &TimeRangeParser{now: now}
}

// Parse always returns a well-formed range. Text that holds no recognisable
// date yields the default window of the last month.
func (p *TimeRangeParser) Parse(text string) TimeRange {
	if r, ok := p.TryParse(text); ok {
		return r
	}
	return p.DefaultRange()
}

// DefaultRange is [now - 1 month, now].
func (p *TimeRangeParser) DefaultRange() TimeRange {
	now := p.now()
	return TimeRange{Start: now.AddDate(0, -1, 0), End: now}
}

// TryParse reports whether text contained a date expression. Patterns are
// tried from the most specific to the least: full date, year and month,
// year, relative phrase. A matched but impossible date (month 13, Feb 30)
// is treated as no match.
func (p *TimeRangeParser) TryParse(text string) (TimeRange, bool) {
	loc := p.now().Location()

	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if !validDate(year, month, day) {
			return TimeRange{}, false
		}
		start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}, true
	}

	if m := yearMonthPattern.FindStringSubmatch(text); m != nil {
		year, month := atoi(m[1]), atoi(m[2])
		if month < 1 || month > 12 {
			return TimeRange{}, false
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}, true
	}

	if m := yearPattern.FindStringSubmatch(text); m != nil {
		start := time.Date(atoi(m[1]), time.January, 1, 0, 0, 0, 0, loc)
		return TimeRange{Start: start, End: start.AddDate(1, 0, 0)}, true
	}

	return p.TryParseRelative(text)
}

// TryParseRelative only recognises rolling windows such as "最近一周" or
// "过去30天", which end at the current instant.
func (p *TimeRangeParser) TryParseRelative(text string) (TimeRange, bool) {
	m := relativePattern.FindStringSubmatch(text)
	if m == nil {
		return TimeRange{}, false
	}

	now := p.now()
	var start time.Time
	switch m[2] {
	case "一周", "7天":
		start = now.AddDate(0, 0, -7)
	case "一个月":
		start = now.AddDate(0, -1, 0)
	case "30天":
		start = now.AddDate(0, 0, -30)
	case "一年":
		start = now.AddDate(-1, 0, 0)
	}
	return TimeRange{Start: start, End: now}, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= lastDay
}

// atoi is only called on regexp digit groups, which always convert.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

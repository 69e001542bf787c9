package query

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Single-character function words removed before whitespace tokenisation.
var defaultStopWords = []string{
	"的", "了", "在", "是", "我", "有", "和", "就", "都", "也", "很", "到",
	"要", "去", "你", "会", "着", "这", "那", "吗", "呢", "吧", "啊", "把",
	"被", "给", "与", "及",
}

var (
	DefaultCategories = []string{"财务", "人事", "合同", "技术", "行政", "法律", "项目", "工程"}
	DefaultLocations  = []string{"档案室", "一号库房", "二号库房", "三号库房", "北京", "上海", "广州", "深圳", "A区", "B区", "C区"}
)

var (
	codeTokenPattern = regexp.MustCompile(`[A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*`)
	listSeparators   = regexp.MustCompile(`[，,、；;和及与]`)
	digitPattern     = regexp.MustCompile(`\d`)

	yearMentionPattern  = regexp.MustCompile(`\d{4}年`)
	monthMentionPattern = regexp.MustCompile(`\d{1,2}月`)
	dayMentionPattern   = regexp.MustCompile(`\d{1,2}[日号]`)
)

// Extractor derives keywords, categories, locations and time ranges from raw
// query text. All methods are total and safe for concurrent use.
type Extractor struct {
	stopWords  *strings.Replacer
	categories []string
	locations  []string
	timeParser *TimeRangeParser
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithCategories replaces the category vocabulary.
func WithCategories(terms []string) ExtractorOption {
	return func(e *Extractor) {
		e.categories = append([]string(nil), terms...)
	}
}

// WithLocations replaces the location vocabulary.
func WithLocations(terms []string) ExtractorOption {
	return func(e *Extractor) {
		e.locations = append([]string(nil), terms...)
	}
}

// WithClock sets the clock used for relative and default time ranges.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.timeParser = NewTimeRangeParser(now)
	}
}

// NewExtractor creates an extractor with the default vocabularies.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	pairs := make([]string, 0, len(defaultStopWords)*2)
	for _, w := range defaultStopWords {
		pairs = append(pairs, w, " ")
	}

	e := &Extractor{
		stopWords:  strings.NewReplacer(pairs...),
		categories: DefaultCategories,
		locations:  DefaultLocations,
		timeParser: NewTimeRangeParser(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze builds the full intent for a query.
func (e *Extractor) Analyze(text string) *Intent {
	return &Intent{
		Type:       Classify(text),
		Keywords:   e.Keywords(text),
		TimeRanges: e.TimeRanges(text),
		Categories: e.Categories(text),
		Locations:  e.Locations(text),
		Complexity: Complexity(text),
	}
}

// Keywords returns the ordered, de-duplicated keyword set. Code-like tokens
// such as "FIN-2023-001" are always kept verbatim.
func (e *Extractor) Keywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keywords = append(keywords, k)
		}
	}

	for _, token := range strings.Fields(e.stopWords.Replace(text)) {
		if utf8.RuneCountInString(token) > 1 {
			add(token)
		}
	}
	for _, code := range codeTokenPattern.FindAllString(text, -1) {
		add(code)
	}
	return keywords
}

// Categories returns every category term contained in the text.
func (e *Extractor) Categories(text string) []string {
	return containedTerms(text, e.categories)
}

// Locations returns every location term contained in the text.
func (e *Extractor) Locations(text string) []string {
	return containedTerms(text, e.locations)
}

// TimeRanges parses every list fragment that contains a digit. When none of
// them holds a date, relative phrases are looked for in the whole text.
func (e *Extractor) TimeRanges(text string) []TimeRange {
	var ranges []TimeRange
	for _, fragment := range listSeparators.Split(text, -1) {
		if !digitPattern.MatchString(fragment) {
			continue
		}
		if r, ok := e.timeParser.TryParse(fragment); ok {
			ranges = append(ranges, r)
		}
	}
	if len(ranges) > 0 {
		return ranges
	}
	if r, ok := e.timeParser.TryParseRelative(text); ok {
		return []TimeRange{r}
	}
	return nil
}

// Complexity is a diagnostic heuristic and never gates behaviour.
func Complexity(text string) int {
	score := utf8.RuneCountInString(text) / 10

	if strings.Contains(text, "并且") || strings.Contains(text, "而且") {
		score += 2
	}
	if strings.Contains(text, "或者") {
		score += 2
	}
	if strings.Contains(text, "不") || strings.Contains(text, "没有") {
		score++
	}

	for _, p := range []*regexp.Regexp{yearMentionPattern, monthMentionPattern, dayMentionPattern} {
		if p.MatchString(text) {
			score++
		}
	}

	if strings.Contains(text, "排序") {
		score += 2
	}
	if strings.Contains(text, "分类") {
		score += 2
	}
	if strings.Contains(text, "统计") {
		score += 3
	}
	return score
}

func containedTerms(text string, vocabulary []string) []string {
	var found []string
	for _, term := range vocabulary {
		if strings.Contains(text, term) {
			found = append(found, term)
		}
	}
	return found
}

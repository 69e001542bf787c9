package ranking

import "fmt"

// MaxRecommendations caps the follow-up suggestions per answer.
const MaxRecommendations = 3

// Recommend proposes follow-up queries: one per distinct category, one for
// the year of the most recent result, one per distinct location.
func Recommend(candidates []Candidate) []string {
	if len(candidates) == 0 {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, c := range candidates {
		if c.Archive.Category != "" {
			add(fmt.Sprintf("查看更多%s类档案", c.Archive.Category))
		}
	}

	latest := candidates[0].Archive
	for _, c := range candidates[1:] {
		if c.Archive.CreatedAt.After(latest.CreatedAt) {
			latest = c.Archive
		}
	}
	add(fmt.Sprintf("查看%d年的其他档案", latest.CreatedAt.Year()))

	for _, c := range candidates {
		if c.Archive.Location != "" {
			add(fmt.Sprintf("查看存放在%s的档案", c.Archive.Location))
		}
	}

	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

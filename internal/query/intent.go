package query

import "strings"

var intentRules = []struct {
	intent IntentType
	terms  []string
}{
	{IntentStatistics, []string{"统计", "多少", "数量"}},
	{IntentBorrow, []string{"借阅", "借出", "归还"}},
	{IntentQuestion, []string{"什么", "如何", "为什么", "怎么", "是否"}},
}

// Classify labels a query. The first matching rule wins and SEARCH is the
// default, so every query gets exactly one label.
func Classify(text string) IntentType {
	for _, rule := range intentRules {
		for _, term := range rule.terms {
			if strings.Contains(text, term) {
				return rule.intent
			}
		}
	}
	return IntentSearch
}

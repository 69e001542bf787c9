package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query    string
		expected IntentType
	}{
		{"统计", IntentStatistics},
		{"财务档案有多少", IntentStatistics},
		{"档案数量", IntentStatistics},
		{"我想借阅合同", IntentBorrow},
		{"哪些档案已借出", IntentBorrow},
		{"如何归还", IntentBorrow},
		{"什么是人事档案", IntentQuestion},
		{"怎么查找", IntentQuestion},
		{"是否可用", IntentQuestion},
		{"统计借阅数量", IntentStatistics},
		{"2023年财务档案", IntentSearch},
		{"", IntentSearch},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.query))
		})
	}
}

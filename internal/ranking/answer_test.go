package ranking

import (
	"strings"
	"testing"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/Ayash-Bera/archivist/internal/query"
	"github.com/stretchr/testify/assert"
)

func candidates(archives ...models.Archive) []Candidate {
	out := make([]Candidate, len(archives))
	for i, a := range archives {
		out[i] = Candidate{Archive: a}
	}
	return out
}

func TestComposeAnswer_Statistics(t *testing.T) {
	day1 := time.Date(2023, 3, 15, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 1, 2, 9, 0, 0, 0, time.UTC)
	cs := candidates(
		archive(1, "a", "财务", "", "", day1),
		archive(2, "b", "人事", "", "", day2),
		archive(3, "c", "财务", "", "", day1),
	)

	text := ComposeAnswer("统计财务档案", query.IntentStatistics, cs)

	assert.True(t, strings.HasPrefix(text, "找到相关档案 3 份。"))
	assert.Contains(t, text, "- 财务：2 份")
	assert.Contains(t, text, "- 人事：1 份")
	assert.Less(t, strings.Index(text, "2023-01-02"), strings.Index(text, "2023-03-15"))
}

func TestComposeAnswer_StatisticsEmpty(t *testing.T) {
	assert.Equal(t, "找到相关档案 0 份。", ComposeAnswer("统计", query.IntentStatistics, nil))
}

func TestComposeAnswer_Borrow(t *testing.T) {
	borrowed := archive(1, "合同A", "", "一号库房", models.StatusBorrowed, fixedNow)
	available := archive(2, "合同B", "", "二号库房", models.StatusAvailable, fixedNow)

	assert.Contains(t, ComposeAnswer("借合同", query.IntentBorrow, nil), "未找到")
	assert.Contains(t, ComposeAnswer("借合同", query.IntentBorrow, candidates(borrowed)), "均不可借阅")

	text := ComposeAnswer("借合同", query.IntentBorrow, candidates(borrowed, available))
	assert.Contains(t, text, "《合同B》")
	assert.Contains(t, text, "二号库房")
	assert.NotContains(t, text, "《合同A》")
}

func TestComposeAnswer_QuestionVariants(t *testing.T) {
	a := archive(1, "项目计划", "项目", "A区", "", time.Date(2023, 5, 6, 14, 30, 0, 0, time.UTC))
	a.Description = "二期工程项目计划书"
	b := archive(2, "项目总结", "项目", "A区", "", fixedNow)

	where := ComposeAnswer("项目计划在哪", query.IntentQuestion, candidates(a, b))
	assert.Equal(t, 1, strings.Count(where, "A区"))

	when := ComposeAnswer("项目计划是什么时候的", query.IntentQuestion, candidates(a))
	assert.Contains(t, when, "2023-05-06 14:30")

	what := ComposeAnswer("项目计划是什么", query.IntentQuestion, candidates(a, b))
	assert.True(t, strings.HasPrefix(what, "二期工程项目计划书"))
	assert.Contains(t, what, "《项目计划》")

	empty := ComposeAnswer("为什么", query.IntentQuestion, nil)
	assert.Contains(t, empty, "抱歉")
	assert.Contains(t, empty, "3. ")
}

func TestComposeAnswer_Search(t *testing.T) {
	a := archive(1, "FIN-2023-001", "财务", "档案室", models.StatusProcessing, fixedNow)

	text := ComposeAnswer("FIN-2023-001", query.IntentSearch, candidates(a))
	assert.Contains(t, text, "档案编号：FIN-2023-001")
	assert.Contains(t, text, "状态：处理中")

	assert.Contains(t, ComposeAnswer("没有", query.IntentSearch, nil), "抱歉")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "可用", StatusLabel("available"))
	assert.Equal(t, "已借出", StatusLabel(models.StatusBorrowed))
	assert.Equal(t, "已归档", StatusLabel(models.StatusArchived))
	assert.Equal(t, "LOST", StatusLabel("LOST"))
}

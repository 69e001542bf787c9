package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/Ayash-Bera/archivist/internal/query"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var statusLabels = map[string]string{
	models.StatusAvailable:  "可用",
	models.StatusBorrowed:   "已借出",
	models.StatusProcessing: "处理中",
	models.StatusArchived:   "已归档",
}

// StatusLabel renders an archive status for display. Unknown values pass through.
func StatusLabel(status string) string {
	if label, ok := statusLabels[strings.ToUpper(status)]; ok {
		return label
	}
	return status
}

const searchTips = "您可以尝试：\n1. 使用更简洁或不同的关键词\n2. 核对档案编号或名称是否正确\n3. 放宽时间范围或分类条件"

// ComposeAnswer renders the reply for a ranked candidate list.
func ComposeAnswer(text string, intent query.IntentType, candidates []Candidate) string {
	switch intent {
	case query.IntentStatistics:
		return composeStatistics(candidates)
	case query.IntentBorrow:
		return composeBorrow(candidates)
	case query.IntentQuestion:
		return composeQuestion(text, candidates)
	default:
		return composeSearch(candidates)
	}
}

func composeStatistics(candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "找到相关档案 %d 份。", len(candidates))
	if len(candidates) == 0 {
		return b.String()
	}

	byCategory := make(map[string]int)
	byDay := make(map[string]int)
	for _, c := range candidates {
		category := c.Archive.Category
		if category == "" {
			category = "未分类"
		}
		byCategory[category]++
		byDay[c.Archive.CreatedAt.Format(dateLayout)]++
	}

	b.WriteString("\n\n按类别统计：")
	for _, k := range sortedKeys(byCategory) {
		fmt.Fprintf(&b, "\n- %s：%d 份", k, byCategory[k])
	}
	b.WriteString("\n\n按创建日期统计：")
	for _, k := range sortedKeys(byDay) {
		fmt.Fprintf(&b, "\n- %s：%d 份", k, byDay[k])
	}
	return b.String()
}

func composeBorrow(candidates []Candidate) string {
	if len(candidates) == 0 {
		return "未找到相关档案，无法办理借阅。"
	}

	var available []Candidate
	for _, c := range candidates {
		if c.Archive.IsAvailable() {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return fmt.Sprintf("找到 %d 份相关档案，但目前均不可借阅。", len(candidates))
	}

	var b strings.Builder
	b.WriteString("以下档案可以借阅：")
	for i, c := range available {
		fmt.Fprintf(&b, "\n%d. 《%s》（编号：%s，位置：%s）", i+1, c.Archive.Title, c.Archive.FileNumber, c.Archive.Location)
	}
	return b.String()
}

func composeQuestion(text string, candidates []Candidate) string {
	if len(candidates) == 0 {
		return "抱歉，暂时无法回答您的问题，没有找到相关档案。\n" + searchTips
	}

	var b strings.Builder
	switch {
	case strings.Contains(text, "在哪") || strings.Contains(text, "位置"):
		b.WriteString("相关档案存放在以下位置：")
		seen := make(map[string]bool)
		for _, c := range candidates {
			loc := c.Archive.Location
			if loc == "" || seen[loc] {
				continue
			}
			seen[loc] = true
			fmt.Fprintf(&b, "\n- %s", loc)
		}
	case strings.Contains(text, "什么时候") || strings.Contains(text, "时间"):
		b.WriteString("相关档案的创建时间如下：")
		for _, c := range candidates {
			fmt.Fprintf(&b, "\n- 《%s》：%s", c.Archive.Title, c.Archive.CreatedAt.Format(dateTimeLayout))
		}
	default:
		top := candidates[0].Archive
		description := top.Description
		if strings.TrimSpace(description) == "" {
			description = "该档案暂无描述。"
		}
		b.WriteString(description)
		fmt.Fprintf(&b, "\n\n详细信息请查看档案《%s》（编号：%s）。", top.Title, top.FileNumber)
	}
	return b.String()
}

func composeSearch(candidates []Candidate) string {
	if len(candidates) == 0 {
		return "抱歉，没有找到与您的查询相关的档案。\n" + searchTips
	}

	var b strings.Builder
	fmt.Fprintf(&b, "为您找到以下 %d 份相关档案：", len(candidates))
	for i, c := range candidates {
		a := c.Archive
		fmt.Fprintf(&b, "\n\n%d. 《%s》\n   档案编号：%s\n   创建时间：%s\n   存放位置：%s\n   状态：%s",
			i+1, a.Title, a.FileNumber, a.CreatedAt.Format(dateLayout), a.Location, StatusLabel(a.Status))
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

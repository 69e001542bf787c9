package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecommend_Empty(t *testing.T) {
	assert.Empty(t, Recommend(nil))
}

func TestRecommend_OrderAndCap(t *testing.T) {
	cs := candidates(
		archive(1, "a", "财务", "档案室", "", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)),
		archive(2, "b", "人事", "B区", "", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)),
		archive(3, "c", "合同", "C区", "", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)),
	)

	got := Recommend(cs)
	assert.Equal(t, []string{"查看更多财务类档案", "查看更多人事类档案", "查看更多合同类档案"}, got)
}

func TestRecommend_YearAndLocation(t *testing.T) {
	cs := candidates(
		archive(1, "a", "财务", "档案室", "", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)),
		archive(2, "b", "财务", "档案室", "", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)),
	)

	got := Recommend(cs)
	assert.Equal(t, []string{"查看更多财务类档案", "查看2023年的其他档案", "查看存放在档案室的档案"}, got)
	assert.LessOrEqual(t, len(got), MaxRecommendations)
}

package seeder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogPage1 = `<html><body>
<table class="nav"><tr><td>首页</td></tr></table>
<table>
  <tr><th>档案编号</th><th>标题</th><th>类别</th><th>存放位置</th><th>状态</th><th>创建日期</th></tr>
  <tr><td>CW-2023-001</td><td> 2023年度财务报表 </td><td>财务</td><td>A区</td><td>可用</td><td>2023-03-15</td></tr>
  <tr><td>HR-2022-007</td><td>员工花名册</td><td>人事</td><td>B区</td><td>已借出</td><td>2022-11-02</td></tr>
  <tr><td></td><td>空行</td><td></td><td></td><td></td><td></td></tr>
</table>
<a rel="next" href="/catalog?page=2">下一页</a>
</body></html>`

const catalogPage2 = `<html><body>
<table>
  <tr><th>编号</th><th>题名</th><th>状态</th></tr>
  <tr><td>JS-2021-003</td><td>厂房图纸</td><td>已归档</td></tr>
</table>
</body></html>`

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, catalogPage1)
		case "2":
			fmt.Fprint(w, catalogPage2)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlFollowsNextPages(t *testing.T) {
	srv := catalogServer(t)
	cr := NewCrawler(CrawlerConfig{}, quietLogger())

	entries, err := cr.Crawl(context.Background(), srv.URL+"/catalog")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		FileNumber: "CW-2023-001",
		Title:      "2023年度财务报表",
		Category:   "财务",
		Location:   "A区",
		Status:     "可用",
		CreatedAt:  "2023-03-15",
	}, entries[0])
	assert.Equal(t, "已借出", entries[1].Status)
	assert.Equal(t, "JS-2021-003", entries[2].FileNumber)
	assert.Equal(t, "厂房图纸", entries[2].Title)
	assert.Equal(t, "已归档", entries[2].Status)
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	srv := catalogServer(t)
	cr := NewCrawler(CrawlerConfig{MaxPages: 1}, quietLogger())

	entries, err := cr.Crawl(context.Background(), srv.URL+"/catalog")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCrawlReportsHTTPErrors(t *testing.T) {
	srv := catalogServer(t)
	cr := NewCrawler(CrawlerConfig{}, quietLogger())

	_, err := cr.Crawl(context.Background(), srv.URL+"/catalog?page=9")
	assert.Error(t, err)
}

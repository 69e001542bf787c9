package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// CrawlerConfig controls how an HTML catalog is fetched.
type CrawlerConfig struct {
	UserAgent string
	// MaxPages bounds how many rel=next pages are followed. Zero means no bound.
	MaxPages int
	Delay    time.Duration
	Timeout  time.Duration
}

// Crawler reads archive rows out of HTML catalog tables. A table is used when
// its header row names a file number column; the other columns are matched
// by header label.
type Crawler struct {
	config CrawlerConfig
	logger *logrus.Logger
}

var columnLabels = map[string]string{
	"编号":          "file_number",
	"档案编号":        "file_number",
	"file number": "file_number",
	"标题":          "title",
	"题名":          "title",
	"title":       "title",
	"描述":          "description",
	"摘要":          "description",
	"description": "description",
	"类别":          "category",
	"分类":          "category",
	"category":    "category",
	"位置":          "location",
	"存放位置":        "location",
	"location":    "location",
	"状态":          "status",
	"status":      "status",
	"创建时间":        "created_at",
	"创建日期":        "created_at",
	"日期":          "created_at",
	"created":     "created_at",
}

func NewCrawler(config CrawlerConfig, logger *logrus.Logger) *Crawler {
	if config.UserAgent == "" {
		config.UserAgent = "Archivist-Seeder/1.0"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Crawler{config: config, logger: logger}
}

// Crawl visits startURL and every page reachable through rel=next links and
// returns the catalog rows in page order.
func (cr *Crawler) Crawl(ctx context.Context, startURL string) ([]Entry, error) {
	var opts []colly.CollectorOption
	opts = append(opts, colly.UserAgent(cr.config.UserAgent))
	if cr.config.MaxPages > 0 {
		opts = append(opts, colly.MaxDepth(cr.config.MaxPages))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(cr.config.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cr.config.Delay,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure crawler: %w", err)
	}

	var (
		entries  []Entry
		crawlErr error
		pages    int
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("table", func(e *colly.HTMLElement) {
		rows := cr.parseTable(e.DOM)
		if len(rows) > 0 {
			cr.logger.WithFields(logrus.Fields{
				"url":  e.Request.URL.String(),
				"rows": len(rows),
			}).Debug("Catalog table parsed")
		}
		entries = append(entries, rows...)
	})

	c.OnHTML("a[rel=next]", func(e *colly.HTMLElement) {
		next := e.Request.AbsoluteURL(e.Attr("href"))
		if next == "" {
			return
		}
		if err := e.Request.Visit(next); err != nil {
			cr.logger.WithError(err).WithField("url", next).Debug("Next page skipped")
		}
	})

	c.OnScraped(func(r *colly.Response) {
		pages++
	})

	c.OnError(func(r *colly.Response, err error) {
		if crawlErr == nil {
			crawlErr = fmt.Errorf("failed to fetch %s: %w", r.Request.URL, err)
		}
	})

	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", startURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if crawlErr != nil {
		return nil, crawlErr
	}

	cr.logger.WithFields(logrus.Fields{
		"url":     startURL,
		"pages":   pages,
		"entries": len(entries),
	}).Info("Catalog crawl completed")

	return entries, nil
}

func (cr *Crawler) parseTable(table *goquery.Selection) []Entry {
	var columns []string
	var entries []Entry

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if headers := row.Find("th"); headers.Length() > 0 {
			columns = columns[:0]
			headers.Each(func(_ int, th *goquery.Selection) {
				label := strings.ToLower(strings.TrimSpace(th.Text()))
				columns = append(columns, columnLabels[label])
			})
			return
		}
		if !hasColumn(columns, "file_number") {
			return
		}

		var entry Entry
		row.Find("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(columns) {
				return
			}
			value := strings.TrimSpace(td.Text())
			switch columns[i] {
			case "file_number":
				entry.FileNumber = value
			case "title":
				entry.Title = value
			case "description":
				entry.Description = value
			case "category":
				entry.Category = value
			case "location":
				entry.Location = value
			case "status":
				entry.Status = value
			case "created_at":
				entry.CreatedAt = value
			}
		})
		if entry.FileNumber != "" {
			entries = append(entries, entry)
		}
	})

	return entries
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

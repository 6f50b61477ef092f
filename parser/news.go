package parser

import (
	"context"
	"strings"

	"mars-scraper/models"
)

// NewsExtractor reads the latest headline from the Mars news page
type NewsExtractor struct {
	url      string
	fallback models.NewsPayload
}

// NewNewsExtractor creates a NewsExtractor
func NewNewsExtractor(url string, fallback models.NewsPayload) *NewsExtractor {
	return &NewsExtractor{url: url, fallback: fallback}
}

func (e *NewsExtractor) Name() models.TaskName { return models.TaskNews }

func (e *NewsExtractor) Fallback() models.Payload { return e.fallback }

func (e *NewsExtractor) Extract(ctx context.Context, env *Env) (models.TaskResult, error) {
	visitedAt := env.now()
	html, err := browse(ctx, env, e.url)
	if err != nil {
		return models.TaskResult{}, err
	}

	payload, ok := ParseNews(html)
	if !ok {
		return miss(e.Name(), visitedAt, e.fallback), nil
	}
	return success(e.Name(), visitedAt, payload), nil
}

// ParseNews takes the first title and the first teaser on the page.
// Both must be present.
func ParseNews(html string) (models.NewsPayload, bool) {
	doc, ok := newDocument(html)
	if !ok {
		return models.NewsPayload{}, false
	}

	title := doc.Find("div.content_title").First()
	teaser := doc.Find("div.article_teaser_body").First()
	if title.Length() == 0 || teaser.Length() == 0 {
		return models.NewsPayload{}, false
	}

	return models.NewsPayload{
		Title:   strings.TrimSpace(title.Text()),
		Summary: strings.TrimSpace(teaser.Text()),
	}, true
}

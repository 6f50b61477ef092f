package parser

import (
	"context"

	"mars-scraper/models"
)

// FeaturedImageExtractor reads the full-size featured image from the JPL gallery
type FeaturedImageExtractor struct {
	url      string
	baseURL  string
	fallback models.FeaturedImagePayload
}

// NewFeaturedImageExtractor creates a FeaturedImageExtractor. Image links
// are resolved against baseURL.
func NewFeaturedImageExtractor(url, baseURL string, fallback models.FeaturedImagePayload) *FeaturedImageExtractor {
	return &FeaturedImageExtractor{url: url, baseURL: baseURL, fallback: fallback}
}

func (e *FeaturedImageExtractor) Name() models.TaskName { return models.TaskFeaturedImage }

func (e *FeaturedImageExtractor) Fallback() models.Payload { return e.fallback }

func (e *FeaturedImageExtractor) Extract(ctx context.Context, env *Env) (models.TaskResult, error) {
	visitedAt := env.now()
	html, err := browse(ctx, env, e.url)
	if err != nil {
		return models.TaskResult{}, err
	}

	payload, ok := ParseFeaturedImage(html, e.baseURL)
	if !ok {
		return miss(e.Name(), visitedAt, e.fallback), nil
	}
	return success(e.Name(), visitedAt, payload), nil
}

// ParseFeaturedImage follows the first gallery's fancybox link to the
// full-size image
func ParseFeaturedImage(html, baseURL string) (models.FeaturedImagePayload, bool) {
	doc, ok := newDocument(html)
	if !ok {
		return models.FeaturedImagePayload{}, false
	}

	link := doc.Find("section.grid_gallery").First().Find("a.fancybox").First()
	href, exists := link.Attr("data-fancybox-href")
	if !exists {
		return models.FeaturedImagePayload{}, false
	}

	imageURL, ok := resolveURL(baseURL, href)
	if !ok {
		return models.FeaturedImagePayload{}, false
	}
	return models.FeaturedImagePayload{ImageURL: imageURL}, true
}

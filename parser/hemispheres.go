package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mars-scraper/logger"
	"mars-scraper/models"
)

// HemispheresOptions configures a HemispheresExtractor
type HemispheresOptions struct {
	URL     string
	BaseURL string
	// TitleSuffix is how many trailing runes to drop from each detail heading
	TitleSuffix int
	Fallback    models.HemispheresPayload
}

// HemispheresExtractor collects the enhanced image of every Mars hemisphere.
// The listing page is read through the session and each detail page is
// fetched directly. Either every hemisphere is found or the task falls back.
type HemispheresExtractor struct {
	opts HemispheresOptions
}

// NewHemispheresExtractor creates a HemispheresExtractor
func NewHemispheresExtractor(opts HemispheresOptions) *HemispheresExtractor {
	return &HemispheresExtractor{opts: opts}
}

func (e *HemispheresExtractor) Name() models.TaskName { return models.TaskHemispheres }

// Fallback returns a fresh copy so callers cannot alias the configured images
func (e *HemispheresExtractor) Fallback() models.Payload {
	images := make([]models.HemisphereImage, len(e.opts.Fallback.Images))
	copy(images, e.opts.Fallback.Images)
	return models.HemispheresPayload{Images: images}
}

func (e *HemispheresExtractor) Extract(ctx context.Context, env *Env) (models.TaskResult, error) {
	visitedAt := env.now()
	listing, err := browse(ctx, env, e.opts.URL)
	if err != nil {
		return models.TaskResult{}, err
	}

	links := ParseHemisphereLinks(listing)
	if len(links) != models.HemisphereCount {
		logger.Log.Debug().Int("links", len(links)).Int("want", models.HemisphereCount).Msg("unexpected hemisphere count")
		return miss(e.Name(), visitedAt, e.Fallback()), nil
	}

	images := make([]models.HemisphereImage, 0, len(links))
	for _, link := range links {
		detailURL, ok := resolveURL(e.opts.BaseURL, link)
		if !ok {
			return miss(e.Name(), visitedAt, e.Fallback()), nil
		}

		page, err := env.Fetcher.Fetch(ctx, detailURL)
		if err != nil {
			return models.TaskResult{}, fmt.Errorf("failed to fetch hemisphere page: %w", err)
		}

		image, ok := ParseHemisphereDetail(page, e.opts.BaseURL, e.opts.TitleSuffix)
		if !ok {
			logger.Log.Debug().Str("url", detailURL).Msg("hemisphere page missing title or image")
			return miss(e.Name(), visitedAt, e.Fallback()), nil
		}
		images = append(images, image)
	}

	return success(e.Name(), visitedAt, models.HemispheresPayload{Images: images}), nil
}

// ParseHemisphereLinks returns the detail links of the listing in document
// order. Every item renders two anchors to the same page, so only every
// other link is kept. The rule is positional and never compares hrefs.
func ParseHemisphereLinks(listing string) []string {
	doc, ok := newDocument(listing)
	if !ok {
		return nil
	}

	var links []string
	doc.Find("a.product-item").Each(func(i int, a *goquery.Selection) {
		if i%2 != 0 {
			return
		}
		href, _ := a.Attr("href")
		links = append(links, href)
	})
	return links
}

// ParseHemisphereDetail reads the title and full-size image from a
// hemisphere page. suffix trailing runes are dropped from the heading.
func ParseHemisphereDetail(page, baseURL string, suffix int) (models.HemisphereImage, bool) {
	doc, ok := newDocument(page)
	if !ok {
		return models.HemisphereImage{}, false
	}

	heading := doc.Find("h2").First()
	img := doc.Find("img.wide-image").First()
	if heading.Length() == 0 || img.Length() == 0 {
		return models.HemisphereImage{}, false
	}

	src, exists := img.Attr("src")
	if !exists {
		return models.HemisphereImage{}, false
	}
	imageURL, ok := resolveURL(baseURL, src)
	if !ok {
		return models.HemisphereImage{}, false
	}

	return models.HemisphereImage{
		Title:    trimSuffix(strings.TrimSpace(heading.Text()), suffix),
		ImageURL: imageURL,
	}, true
}

func trimSuffix(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return ""
	}
	return string(runes[:len(runes)-n])
}

package parser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mars-scraper/config"
	"mars-scraper/fetcher"
	"mars-scraper/logger"
	"mars-scraper/models"
)

// Env is what an extractor may use during a run. Session is the run's
// shared browsing session and is owned by the caller.
type Env struct {
	Session fetcher.Session
	Fetcher fetcher.Fetcher
	Now     func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Extractor runs one task against its page.
//
// A page that does not have the expected structure is not an error: Extract
// returns a result with Success false and the task's fallback payload. The
// returned error is reserved for fetch failures the task cannot absorb.
type Extractor interface {
	Name() models.TaskName
	Extract(ctx context.Context, env *Env) (models.TaskResult, error)
	// Fallback returns the payload recorded when extraction finds nothing
	Fallback() models.Payload
}

// Defaults returns the extractors for every declared task, in report order
func Defaults(cfg *config.Config) []Extractor {
	return []Extractor{
		NewNewsExtractor(cfg.Tasks.News.URL, cfg.Fallbacks.News),
		NewFeaturedImageExtractor(cfg.Tasks.FeaturedImage.URL, cfg.Tasks.FeaturedImage.BaseURL, cfg.Fallbacks.FeaturedImage),
		NewWeatherExtractor(cfg.Tasks.Weather.URL, cfg.Fallbacks.Weather),
		NewFactsExtractor(cfg.Tasks.Facts.URL, cfg.Fallbacks.Facts),
		NewHemispheresExtractor(HemispheresOptions{
			URL:         cfg.Tasks.Hemispheres.URL,
			BaseURL:     cfg.Tasks.Hemispheres.BaseURL,
			TitleSuffix: cfg.Tasks.Hemispheres.TitleSuffix,
			Fallback:    cfg.HemisphereFallbacks(),
		}),
	}
}

// browse loads url in the shared session and returns its rendered HTML
func browse(ctx context.Context, env *Env, url string) (string, error) {
	if err := env.Session.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	html, err := env.Session.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func newDocument(html string) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// resolveURL resolves ref against base, the way a browser follows a link
func resolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

func success(task models.TaskName, visitedAt time.Time, payload models.Payload) models.TaskResult {
	return models.TaskResult{Task: task, Success: true, VisitedAt: visitedAt, Payload: payload}
}

func miss(task models.TaskName, visitedAt time.Time, fallback models.Payload) models.TaskResult {
	logger.Log.Info().Str("task", string(task)).Msg("expected content not found, using fallback")
	return models.TaskResult{Task: task, Success: false, VisitedAt: visitedAt, Payload: fallback}
}

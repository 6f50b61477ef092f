package fetcher

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"

	"mars-scraper/logger"
)

// CollyFetcher implements the Fetcher interface using colly
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a new CollyFetcher instance.
// Every Fetch visits its URL even when an earlier call already did.
func NewCollyFetcher(userAgent string) *CollyFetcher {
	opts := []colly.CollectorOption{colly.AllowURLRevisit()}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}
	return &CollyFetcher{
		collector: colly.NewCollector(opts...),
	}
}

// Fetch implements the Fetcher interface. A transport failure or a
// non-2xx status is returned as an error.
func (cf *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	c := cf.collector.Clone()
	c.Context = ctx

	var body string
	var status int
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		logger.Log.Debug().Err(err).Str("url", url).Int("status", r.StatusCode).Msg("fetch failed")
	})

	if err := c.Visit(url); err != nil {
		if status != 0 {
			return "", fmt.Errorf("failed to fetch %s: status %d: %w", url, status, err)
		}
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("failed to fetch %s: unexpected status %d", url, status)
	}

	logger.Log.Debug().Str("url", url).Int("bytes", len(body)).Msg("fetched page")
	return body, nil
}

package parser

import (
	"context"
	"strings"

	"mars-scraper/models"
)

// WeatherExtractor reads the latest Mars weather report tweet
type WeatherExtractor struct {
	url      string
	fallback models.WeatherPayload
}

// NewWeatherExtractor creates a WeatherExtractor
func NewWeatherExtractor(url string, fallback models.WeatherPayload) *WeatherExtractor {
	return &WeatherExtractor{url: url, fallback: fallback}
}

func (e *WeatherExtractor) Name() models.TaskName { return models.TaskWeather }

func (e *WeatherExtractor) Fallback() models.Payload { return e.fallback }

func (e *WeatherExtractor) Extract(ctx context.Context, env *Env) (models.TaskResult, error) {
	visitedAt := env.now()
	html, err := browse(ctx, env, e.url)
	if err != nil {
		return models.TaskResult{}, err
	}

	payload, ok := ParseWeather(html)
	if !ok {
		return miss(e.Name(), visitedAt, e.fallback), nil
	}
	return success(e.Name(), visitedAt, payload), nil
}

// ParseWeather returns the text of the first tweet posted by MarsWxReport
func ParseWeather(html string) (models.WeatherPayload, bool) {
	doc, ok := newDocument(html)
	if !ok {
		return models.WeatherPayload{}, false
	}

	text := doc.Find(`div.tweet[data-screen-name="MarsWxReport"]`).First().Find("p.js-tweet-text").First()
	if text.Length() == 0 {
		return models.WeatherPayload{}, false
	}
	return models.WeatherPayload{TweetText: strings.TrimSpace(text.Text())}, true
}

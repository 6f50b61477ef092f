package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mars-scraper/config"
	"mars-scraper/models"
)

const (
	newsURL     = "https://mars.test/news/"
	imageURL    = "https://jpl.test/spaceimages/"
	weatherURL  = "https://twitter.test/marswxreport"
	newsPage    = `<html><body><ul><li><div class="content_title"> <a href="/news/1">Rover Finds Clay</a> </div><div class="article_teaser_body">Curiosity drilled a new sample.</div></li><li><div class="content_title">Older</div></li></ul></body></html>`
	galleryPage = `<html><body><section class="grid_gallery"><a class="fancybox" data-fancybox-href="/spaceimages/images/mediumsize/PIA1.jpg">x</a><a class="fancybox" data-fancybox-href="/second.jpg">y</a></section></body></html>`
	weatherPage = `<html><body>
<div class="tweet" data-screen-name="SomeoneElse"><p class="js-tweet-text">not weather</p></div>
<div class="tweet js-stream-tweet" data-screen-name="MarsWxReport"><p class="TweetTextSize js-tweet-text">  Sol 1800 (2026-05-01), high -21C  </p></div>
</body></html>`
	emptyPage = `<html><body><p>maintenance</p></body></html>`
)

func TestExtractorsOnMatchingContent(t *testing.T) {
	cfg := config.Defaults()
	env, _, _ := newEnv(map[string]string{
		newsURL:    newsPage,
		imageURL:   galleryPage,
		weatherURL: weatherPage,
	}, nil)

	tests := []struct {
		name      string
		extractor Extractor
		want      models.Payload
	}{
		{
			name:      "news",
			extractor: NewNewsExtractor(newsURL, cfg.Fallbacks.News),
			want:      models.NewsPayload{Title: "Rover Finds Clay", Summary: "Curiosity drilled a new sample."},
		},
		{
			name:      "featured image",
			extractor: NewFeaturedImageExtractor(imageURL, "https://jpl.nasa.gov", cfg.Fallbacks.FeaturedImage),
			want:      models.FeaturedImagePayload{ImageURL: "https://jpl.nasa.gov/spaceimages/images/mediumsize/PIA1.jpg"},
		},
		{
			name:      "weather",
			extractor: NewWeatherExtractor(weatherURL, cfg.Fallbacks.Weather),
			want:      models.WeatherPayload{TweetText: "Sol 1800 (2026-05-01), high -21C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.extractor.Extract(context.Background(), env)
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, tt.extractor.Name(), res.Task)
			assert.Equal(t, fixedTime, res.VisitedAt)
			assert.Equal(t, tt.want, res.Payload)
		})
	}
}

func TestExtractorsFallBackOnMissingStructure(t *testing.T) {
	cfg := config.Defaults()
	env, _, _ := newEnv(map[string]string{
		newsURL:    emptyPage,
		imageURL:   `<section class="grid_gallery"><a class="fancybox">no href</a></section>`,
		weatherURL: `<div class="tweet" data-screen-name="MarsWxReport"><p>no text class</p></div>`,
	}, nil)

	tests := []struct {
		name      string
		extractor Extractor
		want      models.Payload
	}{
		{
			name:      "news",
			extractor: NewNewsExtractor(newsURL, cfg.Fallbacks.News),
			want:      models.NewsPayload{Title: "", Summary: "no news found"},
		},
		{
			name:      "featured image",
			extractor: NewFeaturedImageExtractor(imageURL, "https://jpl.nasa.gov", cfg.Fallbacks.FeaturedImage),
			want:      models.FeaturedImagePayload{ImageURL: "https://www.nasa.gov/sites/default/files/thumbnails/image/pia22313.jpg"},
		},
		{
			name:      "weather",
			extractor: NewWeatherExtractor(weatherURL, cfg.Fallbacks.Weather),
			want:      models.WeatherPayload{TweetText: "The latest weather tweet was not available."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.extractor.Extract(context.Background(), env)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, fixedTime, res.VisitedAt)
			assert.Equal(t, tt.want, res.Payload)
			assert.Equal(t, tt.extractor.Fallback(), res.Payload)
		})
	}
}

func TestExtractorsAreIdempotent(t *testing.T) {
	const factsURL = "https://facts.test/mars/"
	cfg := config.Defaults()
	listing := listingPage(
		"/search/map/Mars/Viking/cerberus_enhanced", "/search/map/Mars/Viking/cerberus_enhanced",
		"/search/map/Mars/Viking/schiaparelli_enhanced", "/search/map/Mars/Viking/schiaparelli_enhanced",
		"/search/map/Mars/Viking/syrtis_major_enhanced", "/search/map/Mars/Viking/syrtis_major_enhanced",
		"/search/map/Mars/Viking/valles_marineris_enhanced", "/search/map/Mars/Viking/valles_marineris_enhanced",
	)
	fetched := detailPages()
	fetched[factsURL] = `<table><tr><td>Diameter</td><td>6,779 km</td></tr></table>`

	env, _, _ := newEnv(map[string]string{
		newsURL:    newsPage,
		imageURL:   galleryPage,
		weatherURL: weatherPage,
		listingURL: listing,
	}, fetched)

	for _, e := range []Extractor{
		NewNewsExtractor(newsURL, cfg.Fallbacks.News),
		NewFeaturedImageExtractor(imageURL, "https://jpl.nasa.gov", cfg.Fallbacks.FeaturedImage),
		NewWeatherExtractor(weatherURL, cfg.Fallbacks.Weather),
		NewFactsExtractor(factsURL, cfg.Fallbacks.Facts),
		hemisphereExtractor(),
	} {
		t.Run(string(e.Name()), func(t *testing.T) {
			first, err := e.Extract(context.Background(), env)
			require.NoError(t, err)
			second, err := e.Extract(context.Background(), env)
			require.NoError(t, err)
			assert.True(t, first.Success)
			assert.Equal(t, first, second)
		})
	}
}

func TestBrowserExtractorsPropagateNavigationFailure(t *testing.T) {
	cfg := config.Defaults()
	env, _, _ := newEnv(map[string]string{}, nil)

	_, err := NewNewsExtractor(newsURL, cfg.Fallbacks.News).Extract(context.Background(), env)
	assert.Error(t, err)
}

func TestParseFeaturedImageResolvesAgainstBase(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"root relative", "/images/a.jpg", "https://jpl.nasa.gov/images/a.jpg"},
		{"absolute", "https://cdn.test/a.jpg", "https://cdn.test/a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<section class="grid_gallery"><a class="fancybox" data-fancybox-href="` + tt.href + `"></a></section>`
			got, ok := ParseFeaturedImage(page, "https://jpl.nasa.gov")
			require.True(t, ok)
			assert.Equal(t, tt.want, got.ImageURL)
		})
	}

	_, ok := ParseFeaturedImage(`<a class="fancybox" data-fancybox-href="/a.jpg"></a>`, "https://jpl.nasa.gov")
	assert.False(t, ok, "link outside the gallery")
}

func TestParseNewsRequiresBothParts(t *testing.T) {
	_, ok := ParseNews(`<div class="content_title">Only a title</div>`)
	assert.False(t, ok)
}

func TestDefaultsCoverEveryTaskInOrder(t *testing.T) {
	extractors := Defaults(config.Defaults())
	require.Len(t, extractors, len(models.Tasks))
	for i, e := range extractors {
		assert.Equal(t, models.Tasks[i], e.Name())
	}
}

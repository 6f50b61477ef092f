package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"mars-scraper/models"

	"gopkg.in/yaml.v3"
)

const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"
)

// Config is the full application configuration
type Config struct {
	Browser   BrowserConfig  `yaml:"browser"`
	Fetch     FetchConfig    `yaml:"fetch"`
	Tasks     TasksConfig    `yaml:"tasks"`
	Fallbacks FallbackConfig `yaml:"fallbacks"`
	Database  DatabaseConfig `yaml:"database"`
	Sheets    SheetsConfig   `yaml:"sheets"`
	Telegram  TelegramConfig `yaml:"telegram"`
	Log       LogConfig      `yaml:"log"`
}

// BrowserConfig controls the shared browsing session
type BrowserConfig struct {
	Driver      string        `yaml:"driver"`
	Headless    bool          `yaml:"headless"`
	DataDir     string        `yaml:"data_dir"`
	Bin         string        `yaml:"bin"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// FetchConfig controls one-off page fetches outside the browser
type FetchConfig struct {
	UserAgent string `yaml:"user_agent"`
}

// TaskConfig holds where a task reads its page from
type TaskConfig struct {
	URL     string `yaml:"url"`
	BaseURL string `yaml:"base_url"`
}

// HemispheresConfig adds the listing rules specific to the hemisphere catalog
type HemispheresConfig struct {
	TaskConfig  `yaml:",inline"`
	TitleSuffix int `yaml:"title_suffix"`
}

// TasksConfig holds the per-task page locations
type TasksConfig struct {
	News          TaskConfig        `yaml:"news"`
	FeaturedImage TaskConfig        `yaml:"featured_image"`
	Weather       TaskConfig        `yaml:"weather"`
	Facts         TaskConfig        `yaml:"facts"`
	Hemispheres   HemispheresConfig `yaml:"hemispheres"`
}

// HemisphereFallback is the entry repeated for every missing hemisphere
type HemisphereFallback struct {
	Title    string `yaml:"title"`
	ImageURL string `yaml:"image_url"`
}

// FallbackConfig holds the payload substituted when a task finds no match.
// Only the declared task names are accepted as keys.
type FallbackConfig struct {
	News          models.NewsPayload          `yaml:"news"`
	FeaturedImage models.FeaturedImagePayload `yaml:"featured_image"`
	Weather       models.WeatherPayload       `yaml:"weather"`
	Facts         models.FactsPayload         `yaml:"facts"`
	Hemispheres   HemisphereFallback          `yaml:"hemispheres"`
}

// DatabaseConfig holds the Postgres connection string
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SheetsConfig holds the Google Sheets export target
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url"`
	CredentialsPath string `yaml:"credentials_path"`
}

// TelegramConfig holds the bot settings
type TelegramConfig struct {
	Token          string        `yaml:"token"`
	AllowedChatIDs []int64       `yaml:"allowed_chat_ids"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Defaults returns a configuration pointing at the public Mars sources
func Defaults() *Config {
	return &Config{
		Browser: BrowserConfig{
			Driver:   DriverRod,
			Headless: true,
			DataDir:  "/tmp/mars-data",
		},
		Fetch: FetchConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Tasks: TasksConfig{
			News: TaskConfig{
				URL: "https://mars.nasa.gov/news/",
			},
			FeaturedImage: TaskConfig{
				URL:     "https://www.jpl.nasa.gov/spaceimages/?search=&category=Mars",
				BaseURL: "https://jpl.nasa.gov",
			},
			Weather: TaskConfig{
				URL: "https://twitter.com/marswxreport?lang=en",
			},
			Facts: TaskConfig{
				URL: "http://space-facts.com/mars/",
			},
			Hemispheres: HemispheresConfig{
				TaskConfig: TaskConfig{
					URL:     "https://astrogeology.usgs.gov/search/results?q=hemisphere+enhanced&k1=target&v1=Mars",
					BaseURL: "https://astrogeology.usgs.gov",
				},
				TitleSuffix: len(" Enhanced"),
			},
		},
		Fallbacks: FallbackConfig{
			News:          models.NewsPayload{Title: "", Summary: "no news found"},
			FeaturedImage: models.FeaturedImagePayload{ImageURL: "https://www.nasa.gov/sites/default/files/thumbnails/image/pia22313.jpg"},
			Weather:       models.WeatherPayload{TweetText: "The latest weather tweet was not available."},
			Facts:         models.FactsPayload{TableHTML: `<table border="1" class="dataframe"><tbody><tr><td>No data available.</td></tr></tbody></table>`},
			Hemispheres: HemisphereFallback{
				Title:    "no name available",
				ImageURL: "https://free-images.com/display/rose_background_excuse_me_1.html",
			},
		},
		Telegram: TelegramConfig{
			PollInterval: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment overrides.
// MARS_SCRAPER_CONFIG replaces path when set.
func Load(path string) (*Config, error) {
	if envPath := os.Getenv("MARS_SCRAPER_CONFIG"); envPath != "" {
		path = envPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and connection settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("BOT_DATA_DIR"); v != "" {
		c.Browser.DataDir = v
	}
}

// Validate checks that the task settings can drive a run
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case DriverRod, DriverChromedp:
	default:
		return fmt.Errorf("unknown browser driver %q (want %s or %s)", c.Browser.Driver, DriverRod, DriverChromedp)
	}

	urls := map[string]string{
		"tasks.news.url":                c.Tasks.News.URL,
		"tasks.featured_image.url":      c.Tasks.FeaturedImage.URL,
		"tasks.featured_image.base_url": c.Tasks.FeaturedImage.BaseURL,
		"tasks.weather.url":             c.Tasks.Weather.URL,
		"tasks.facts.url":               c.Tasks.Facts.URL,
		"tasks.hemispheres.url":         c.Tasks.Hemispheres.URL,
		"tasks.hemispheres.base_url":    c.Tasks.Hemispheres.BaseURL,
	}
	for key, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("%s is required", key)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}

	if c.Tasks.Hemispheres.TitleSuffix < 0 {
		return fmt.Errorf("tasks.hemispheres.title_suffix must not be negative")
	}
	if c.Telegram.PollInterval <= 0 {
		return fmt.Errorf("telegram.poll_interval must be positive")
	}
	return nil
}

// HemisphereFallbacks expands the hemisphere fallback into the full sequence
func (c *Config) HemisphereFallbacks() models.HemispheresPayload {
	images := make([]models.HemisphereImage, models.HemisphereCount)
	for i := range images {
		images[i] = models.HemisphereImage{
			Title:    c.Fallbacks.Hemispheres.Title,
			ImageURL: c.Fallbacks.Hemispheres.ImageURL,
		}
	}
	return models.HemispheresPayload{Images: images}
}

// IsAllowedChat reports whether a Telegram chat may use the bot.
// An empty allow-list admits nobody.
func (c *Config) IsAllowedChat(chatID int64) bool {
	for _, id := range c.Telegram.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

package fetcher

import (
	"context"
	"fmt"

	"mars-scraper/config"
)

// Session is one open browsing session shared by every task of a run.
// Navigate loads a page and HTML returns the DOM of the current page.
type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Opener starts a new browsing session
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Fetcher retrieves a page body directly, without a browser
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// NewOpener returns the session opener for the configured driver
func NewOpener(cfg config.BrowserConfig) (Opener, error) {
	switch cfg.Driver {
	case config.DriverRod:
		return NewRodOpener(cfg), nil
	case config.DriverChromedp:
		return NewChromedpOpener(cfg), nil
	}
	return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
}

package fetcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"mars-scraper/config"
	"mars-scraper/logger"
)

// ChromedpOpener starts a browsing session through chromedp
type ChromedpOpener struct {
	cfg config.BrowserConfig
}

// NewChromedpOpener creates a ChromedpOpener for the given browser settings
func NewChromedpOpener(cfg config.BrowserConfig) *ChromedpOpener {
	return &ChromedpOpener{cfg: cfg}
}

// execAllocatorOptions returns options that work both locally and in Docker
func (o *ChromedpOpener) execAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-features", "site-per-process,TranslateUI"),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("safebrowsing-disable-auto-update", true),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.WindowSize(1920, 1080),
	)

	if o.cfg.DataDir != "" {
		if err := os.MkdirAll(o.cfg.DataDir, 0755); err != nil {
			logger.Log.Warn().Err(err).Str("dir", o.cfg.DataDir).Msg("failed to create browser data directory")
		} else {
			opts = append(opts, chromedp.UserDataDir(o.cfg.DataDir))
		}
	}

	if o.cfg.Bin != "" {
		return append(opts, chromedp.ExecPath(o.cfg.Bin))
	}
	paths := append([]string{"/headless-shell/headless-shell"}, chromePaths...)
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			opts = append(opts, chromedp.ExecPath(p))
			break
		}
	}
	return opts
}

// Open starts the browser and its single tab
func (o *ChromedpOpener) Open(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, o.execAllocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Log.Debug().Bool("headless", o.cfg.Headless).Msg("chromedp session opened")

	return &chromedpSession{
		ctx:           browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		settleDelay:   o.cfg.SettleDelay,
	}, nil
}

type chromedpSession struct {
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	settleDelay   time.Duration

	closeOnce sync.Once
}

// run executes actions on the tab, stopping early when ctx is cancelled
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tabCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return settle(ctx, s.settleDelay)
}

func (s *chromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Close() error {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocCancel()
		logger.Log.Debug().Msg("chromedp session closed")
	})
	return nil
}

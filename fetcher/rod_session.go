package fetcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"mars-scraper/config"
	"mars-scraper/logger"
)

// Chrome/Chromium locations probed when no binary is configured
var chromePaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// RodOpener launches a headless browser through rod
type RodOpener struct {
	cfg config.BrowserConfig
}

// NewRodOpener creates a RodOpener for the given browser settings
func NewRodOpener(cfg config.BrowserConfig) *RodOpener {
	return &RodOpener{cfg: cfg}
}

// Open launches the browser and opens the single tab used for the run
func (o *RodOpener) Open(ctx context.Context) (Session, error) {
	userDataDir := o.cfg.DataDir
	if userDataDir != "" {
		// This should be mounted as a volume to use disk instead of memory
		if err := os.MkdirAll(userDataDir, 0755); err != nil {
			logger.Log.Warn().Err(err).Str("dir", userDataDir).Msg("failed to create browser data directory")
			userDataDir = ""
		}
	}

	l := launcher.New().
		Context(ctx).
		Headless(o.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false). // Disable leakless to avoid antivirus issues
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-breakpad").
		Set("disable-client-side-phishing-detection").
		Set("disable-default-apps").
		Set("disable-hang-monitor").
		Set("disable-popup-blocking").
		Set("disable-prompt-on-repost").
		Set("disable-sync").
		Set("disable-translate").
		Set("metrics-recording-only").
		Set("mute-audio").
		Set("no-zygote").
		Set("safebrowsing-disable-auto-update").
		Set("use-mock-keychain").
		// Memory optimization flags
		Set("memory-pressure-off").
		Set("disable-ipc-flooding-protection").
		Set("disable-features", "TranslateUI,BlinkGenPropertyTrees")
	if userDataDir != "" {
		l = l.UserDataDir(userDataDir)
	}

	if bin := o.browserBin(); bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w\n\nNote: On Linux, you may need to install Chromium dependencies:\n  apt-get update && apt-get install -y chromium chromium-sandbox || yum install -y chromium", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	logger.Log.Debug().Str("control_url", controlURL).Msg("rod session opened")

	return &rodSession{
		browser:     browser,
		page:        page,
		settleDelay: o.cfg.SettleDelay,
	}, nil
}

func (o *RodOpener) browserBin() string {
	if o.cfg.Bin != "" {
		return o.cfg.Bin
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	// rod downloads a Chromium build when nothing is found
	return ""
}

type rodSession struct {
	browser     *rod.Browser
	page        *rod.Page
	settleDelay time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for %s to load: %w", url, err)
	}
	return settle(ctx, s.settleDelay)
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if err := s.page.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to close page")
		}
		if err := s.browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
	})
	return s.closeErr
}

// settle waits for client-side rendering after the load event
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

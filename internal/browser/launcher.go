// Package browser is the go-rod implementation of the capture browser: a
// visible, isolated Chrome with stealth patches, per-page navigation
// tracking and an in-page finish binding.
package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/hyperaide-sync/capture"
	"github.com/hazyhaar/hyperaide-sync/internal/config"
)

// Config configures the launcher.
type Config struct {
	// Bin is the browser executable. Empty = system Chrome if found, else
	// rod's managed Chromium.
	Bin string

	ViewportWidth  int
	ViewportHeight int
	UserAgent      string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 800
	}
	if c.UserAgent == "" {
		c.UserAgent = config.DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// FromConfig maps the resolved runtime configuration to a launcher Config.
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	return Config{
		Bin:            cfg.Browser.Bin,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		UserAgent:      cfg.Browser.UserAgent,
		Logger:         logger,
	}
}

// Launcher starts capture browsers. It satisfies capture.Launcher.
type Launcher struct {
	cfg Config
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg Config) *Launcher {
	cfg.defaults()
	return &Launcher{cfg: cfg}
}

// Launch starts Chrome, connects to it and opens the first page. Event
// subscriptions are in place before Launch returns.
func (l *Launcher) Launch(ctx context.Context) (capture.Browser, error) {
	log := l.cfg.Logger

	lnch := l.newChromeLauncher().Context(ctx)
	u, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	log.Info("browser: launched local chrome", "url", u)

	// The session outlives ctx so an interrupt can still close Chrome cleanly.
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	b := rod.New().ControlURL(u).Context(sessCtx)
	if err := b.Connect(); err != nil {
		cancel()
		lnch.Kill()
		lnch.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b = b.NoDefaultDevice()

	s := newSession(sessCtx, cancel, b, lnch, l.cfg)

	// The first page is claimed before discovery starts, so the
	// TargetCreated replay for it finds it already attached.
	page, err := stealth.Page(b)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	s.claim(page.TargetID)
	if err := s.wire(page); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: attach first page: %w", err)
	}
	s.first = page

	go b.EachEvent(func(e *proto.TargetTargetCreated) {
		if e.TargetInfo.Type != proto.TargetTargetInfoTypePage {
			return
		}
		go s.attachTarget(e.TargetInfo.TargetID)
	})()
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: discover targets: %w", err)
	}

	return s, nil
}

func (l *Launcher) newChromeLauncher() *launcher.Launcher {
	bin := l.cfg.Bin
	if bin == "" {
		if found, ok := launcher.LookPath(); ok {
			bin = found
		}
	}

	lnch := launcher.New().Headless(false).Leakless(true)
	if bin != "" {
		lnch = lnch.Bin(bin)
	}

	// Anti-detection flags.
	return lnch.
		Delete("enable-automation").
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("user-agent", l.cfg.UserAgent).
		Set("window-size", fmt.Sprintf("%d,%d", l.cfg.ViewportWidth, l.cfg.ViewportHeight))
}

// Package capture drives one interactive browser session: launch, welcome
// page, navigation tracking and cookie polling until the user is done.
//
// The browser exposes no cookie-change event, so the jar is re-read on a
// fixed interval and the last complete snapshot wins. The final snapshot is
// best effort: a read racing with browser teardown fails and the previous
// snapshot is kept, so it can be up to one interval stale.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/hyperaide-sync/cookie"
)

// ErrLaunch wraps a browser launch failure.
var ErrLaunch = errors.New("capture: browser launch failed")

// ErrAlreadyRun is returned when Run is called twice on one Controller.
var ErrAlreadyRun = errors.New("capture: session already run")

// Config configures a Controller.
type Config struct {
	Launcher Launcher

	// WelcomeURL is loaded in the first page. Empty skips straight to the
	// fallback document.
	WelcomeURL string

	// WelcomeTimeout bounds the welcome navigation. Default: 10s.
	WelcomeTimeout time.Duration

	// PollInterval between cookie jar reads. Default: 500ms.
	PollInterval time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.WelcomeTimeout <= 0 {
		c.WelcomeTimeout = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result is what a session produced. Cookies holds only auth-relevant
// cookies from the final snapshot; Domains is sorted.
type Result struct {
	Cookies []cookie.Cookie
	Domains []string
	Reason  EndReason
	// Observed is the size of the final snapshot before classification.
	Observed int
}

// Cancelled reports whether the session was interrupted.
func (r *Result) Cancelled() bool { return r.Reason == EndCancelled }

// Controller owns one browser session. It is single use and not safe for
// concurrent use; all session state is touched only from Run.
type Controller struct {
	cfg     Config
	id      string
	state   State
	history []State
	logger  *slog.Logger

	domains  map[string]struct{}
	snapshot []cookie.Cookie
}

// New creates a Controller in the idle state.
func New(cfg Config) *Controller {
	cfg.defaults()
	id := uuid.NewString()
	return &Controller{
		cfg:     cfg,
		id:      id,
		state:   StateIdle,
		history: []State{StateIdle},
		logger:  cfg.Logger.With("session", id),
		domains: make(map[string]struct{}),
	}
}

// ID identifies the session in logs.
func (c *Controller) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// History returns every state the session went through, in order.
func (c *Controller) History() []State {
	return append([]State(nil), c.history...)
}

// Run launches the browser and blocks until the session ends. A cancelled
// ctx yields an empty Result with Reason EndCancelled and a nil error.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if c.state != StateIdle {
		return nil, ErrAlreadyRun
	}

	c.setState(StateLaunching)
	b, err := c.cfg.Launcher.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.setState(StateCancelled)
			return &Result{Reason: EndCancelled}, nil
		}
		c.setState(StateError)
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	c.openWelcome(ctx, b)

	c.setState(StateLive)
	reason := c.live(ctx, b)

	if reason == EndCancelled {
		c.closeBrowser(b)
		c.setState(StateCancelled)
		return &Result{Reason: EndCancelled}, nil
	}

	c.setState(StateEnding)
	c.drainNavigations(b)
	c.closeBrowser(b)
	c.setState(StateClosed)

	res := &Result{
		Cookies:  cookie.FilterAuth(c.snapshot),
		Domains:  c.sortedDomains(),
		Reason:   reason,
		Observed: len(c.snapshot),
	}
	c.logger.Info("capture: session ended",
		"reason", reason, "observed", res.Observed, "auth_cookies", len(res.Cookies), "domains", len(res.Domains))
	return res, nil
}

// openWelcome never fails the session: a failed navigation falls back to a
// static instructions document.
func (c *Controller) openWelcome(ctx context.Context, b Browser) {
	if c.cfg.WelcomeURL != "" {
		navCtx, cancel := context.WithTimeout(ctx, c.cfg.WelcomeTimeout)
		err := b.Navigate(navCtx, c.cfg.WelcomeURL)
		cancel()
		if err == nil {
			return
		}
		c.logger.Warn("capture: welcome page failed, using fallback", "url", c.cfg.WelcomeURL, "error", err)
	}
	if err := b.SetContent(FallbackHTML); err != nil {
		c.logger.Warn("capture: fallback document failed", "error", err)
	}
}

func (c *Controller) live(ctx context.Context, b Browser) EndReason {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	nav := b.Navigations()
	fin := b.Finished()

	for {
		if ctx.Err() != nil {
			return EndCancelled
		}

		select {
		case <-ctx.Done():
			return EndCancelled

		case u, ok := <-nav:
			if !ok {
				nav = nil
				continue
			}
			c.observe(u)

		case <-fin:
			c.logger.Debug("capture: finish signal received")
			// One last read so changes made just before the signal count.
			if cookies, err := b.Cookies(); err == nil {
				c.snapshot = cookies
			}
			return EndFinishSignal

		case <-ticker.C:
			if reason, done := c.poll(b); done {
				return reason
			}
		}
	}
}

// poll checks the page count, then replaces the snapshot.
func (c *Controller) poll(b Browser) (EndReason, bool) {
	n, err := b.PageCount()
	if err != nil {
		c.logger.Info("capture: browser unreachable", "error", err)
		return EndBrowserGone, true
	}
	if n == 0 {
		return EndWindowClosed, true
	}

	cookies, err := b.Cookies()
	if err != nil {
		c.logger.Info("capture: cookie read failed", "error", err)
		return EndBrowserGone, true
	}
	c.snapshot = cookies
	return 0, false
}

func (c *Controller) observe(rawURL string) {
	d := cookie.ExtractDomain(rawURL)
	if d == "" {
		return
	}
	if _, seen := c.domains[d]; !seen {
		c.domains[d] = struct{}{}
		c.logger.Debug("capture: domain visited", "domain", d)
	}
}

func (c *Controller) drainNavigations(b Browser) {
	nav := b.Navigations()
	for {
		select {
		case u, ok := <-nav:
			if !ok {
				return
			}
			c.observe(u)
		default:
			return
		}
	}
}

func (c *Controller) closeBrowser(b Browser) {
	if err := b.Close(); err != nil {
		c.logger.Debug("capture: close browser", "error", err)
	}
}

func (c *Controller) sortedDomains() []string {
	out := make([]string, 0, len(c.domains))
	for d := range c.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (c *Controller) setState(s State) {
	if !canTransition(c.state, s) {
		c.logger.Error("capture: illegal state change", "from", c.state, "to", s)
	}
	c.logger.Debug("capture: state change", "from", c.state, "to", s)
	c.state = s
	c.history = append(c.history, s)
}

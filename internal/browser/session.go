package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/hazyhaar/hyperaide-sync/capture"
	"github.com/hazyhaar/hyperaide-sync/cookie"
)

// session is one launched Chrome. It satisfies capture.Browser.
type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	browser *rod.Browser
	lnch    *launcher.Launcher
	cfg     Config

	first *rod.Page

	nav        chan string
	fin        chan struct{}
	finishOnce sync.Once
	closeOnce  sync.Once

	mu       sync.Mutex
	attached map[proto.TargetTargetID]bool
}

func newSession(ctx context.Context, cancel context.CancelFunc, b *rod.Browser, lnch *launcher.Launcher, cfg Config) *session {
	return &session{
		ctx:      ctx,
		cancel:   cancel,
		browser:  b,
		lnch:     lnch,
		cfg:      cfg,
		nav:      make(chan string, 256),
		fin:      make(chan struct{}),
		attached: make(map[proto.TargetTargetID]bool),
	}
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if s.first == nil {
		return errors.New("browser: no page")
	}
	p := s.first.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

func (s *session) SetContent(html string) error {
	if s.first == nil {
		return errors.New("browser: no page")
	}
	return s.first.SetDocumentContent(html)
}

func (s *session) Navigations() <-chan string { return s.nav }

func (s *session) Finished() <-chan struct{} { return s.fin }

// PageCount counts page targets without attaching to them.
func (s *session) PageCount() (int, error) {
	res, err := proto.TargetGetTargets{}.Call(s.browser)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range res.TargetInfos {
		if t.Type == proto.TargetTargetInfoTypePage {
			n++
		}
	}
	return n, nil
}

func (s *session) Cookies() ([]cookie.Cookie, error) {
	raw, err := s.browser.GetCookies()
	if err != nil {
		return nil, err
	}
	out := make([]cookie.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, convertCookie(c))
	}
	return out, nil
}

// Close is idempotent. Errors from an already dead browser are ignored by
// callers; the process is killed and its profile removed regardless.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.browser.Close()
		s.cancel()
		s.lnch.Kill()
		s.lnch.Cleanup()
	})
	return err
}

// attachTarget wires a page the user opened. The claim happens before any
// CDP call so a target reported twice is injected and wired once.
func (s *session) attachTarget(id proto.TargetTargetID) {
	if !s.claim(id) {
		return
	}
	page, err := s.browser.PageFromTarget(id)
	if err != nil {
		s.cfg.Logger.Debug("browser: attach target", "target", id, "error", err)
		return
	}
	// Pages the user opens did not go through stealth.Page.
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		s.cfg.Logger.Debug("browser: stealth inject", "target", id, "error", err)
	}
	if err := s.wire(page); err != nil {
		s.cfg.Logger.Debug("browser: attach page", "target", id, "error", err)
	}
}

// claim marks id as attached and reports whether the caller got it first.
func (s *session) claim(id proto.TargetTargetID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached[id] {
		return false
	}
	s.attached[id] = true
	return true
}

// wire sets up navigation tracking, the finish binding and the viewport on
// a claimed page.
func (s *session) wire(page *rod.Page) error {
	go page.Context(s.ctx).EachEvent(func(e *proto.PageFrameNavigated) {
		// Only top-level frames of web pages count as visits.
		if e.Frame.ParentID != "" || !cookie.IsWebURL(e.Frame.URL) {
			return
		}
		select {
		case s.nav <- e.Frame.URL:
		case <-s.ctx.Done():
		}
	})()

	if _, err := page.Expose(capture.FinishBinding, func(gson.JSON) (interface{}, error) {
		s.finishOnce.Do(func() { close(s.fin) })
		return nil, nil
	}); err != nil {
		return fmt.Errorf("browser: expose finish binding: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		s.cfg.Logger.Warn("browser: set viewport failed", "error", err)
	}
	return nil
}

func convertCookie(c *proto.NetworkCookie) cookie.Cookie {
	return cookie.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  float64(c.Expires),
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: cookie.SameSite(c.SameSite),
	}
}

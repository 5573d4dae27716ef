package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/hyperaide-sync/cookie"
)

func TestConvertCookie(t *testing.T) {
	got := convertCookie(&proto.NetworkCookie{
		Name:     "sid",
		Value:    "abc",
		Domain:   ".example.com",
		Path:     "/",
		Expires:  proto.TimeSinceEpoch(1700000000),
		HTTPOnly: true,
		Secure:   true,
		SameSite: proto.NetworkCookieSameSiteLax,
	})
	want := cookie.Cookie{
		Name: "sid", Value: "abc", Domain: ".example.com", Path: "/",
		Expires: 1700000000, HTTPOnly: true, Secure: true, SameSite: cookie.SameSiteLax,
	}
	if got != want {
		t.Fatalf("convertCookie: got %#v, want %#v", got, want)
	}
}

func TestConfigDefaults(t *testing.T) {
	l := NewLauncher(Config{})
	if l.cfg.ViewportWidth != 1280 || l.cfg.ViewportHeight != 800 {
		t.Fatalf("viewport: %dx%d", l.cfg.ViewportWidth, l.cfg.ViewportHeight)
	}
	if l.cfg.UserAgent == "" || l.cfg.Logger == nil {
		t.Fatal("defaults not applied")
	}
}

func TestChromeFlags(t *testing.T) {
	l := NewLauncher(Config{Bin: "/usr/bin/true", UserAgent: "UA/1"})
	lnch := l.newChromeLauncher()

	if !lnch.Has("disable-blink-features") || lnch.Get("disable-blink-features") != "AutomationControlled" {
		t.Error("automation indicator not disabled")
	}
	if lnch.Has("enable-automation") {
		t.Error("enable-automation must be removed")
	}
	if lnch.Has("headless") {
		t.Error("capture browser must be visible")
	}
	if lnch.Get("user-agent") != "UA/1" {
		t.Errorf("user-agent: got %q", lnch.Get("user-agent"))
	}
	if lnch.Get("window-size") != "1280,800" {
		t.Errorf("window-size: got %q", lnch.Get("window-size"))
	}
}

func newTestSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLauncher(Config{})
	return newSession(ctx, cancel, nil, nil, l.cfg)
}

func TestClaim_OnceUnderConcurrency(t *testing.T) {
	s := newTestSession()
	defer s.cancel()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.claim("target-1") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := wins.Load(); n != 1 {
		t.Fatalf("claim won %d times, want 1", n)
	}
	if !s.claim("target-2") {
		t.Fatal("a different target must be claimable")
	}
}

func TestAttachTarget_SkipsClaimedPage(t *testing.T) {
	s := newTestSession()
	defer s.cancel()

	// The first page is claimed at launch; the replayed TargetCreated must
	// not reach the browser (nil here) to inject or wire it again.
	s.claim("first-page")
	s.attachTarget("first-page")
}

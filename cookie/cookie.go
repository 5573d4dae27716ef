// Package cookie holds the cookie record captured from a live browser and the
// pure helpers used to decide which cookies and domains are worth syncing.
package cookie

import (
	"net/url"
	"strings"
	"time"
)

// SameSite is the cookie SameSite attribute as reported by the browser.
type SameSite string

const (
	SameSiteNone   SameSite = "None"
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
)

// Cookie is one entry of the browser cookie jar. The JSON shape is the one
// the sync server expects on upload.
type Cookie struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Domain   string   `json:"domain"`
	Path     string   `json:"path"`
	Expires  float64  `json:"expires"` // seconds since epoch, -1 for session cookies
	HTTPOnly bool     `json:"httpOnly"`
	Secure   bool     `json:"secure"`
	SameSite SameSite `json:"sameSite,omitempty"`
}

// ExpiresAt returns the expiry time. ok is false for session cookies.
func (c Cookie) ExpiresAt() (t time.Time, ok bool) {
	if c.Expires <= 0 {
		return time.Time{}, false
	}
	sec := int64(c.Expires)
	nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec), true
}

// authPatterns are matched as substrings of the lower-cased cookie name.
var authPatterns = []string{
	"session", "token", "auth", "jwt", "login", "user", "sid", "csrf",
	"_session", "_token", "_auth", "access", "refresh", "id_token",
}

// IsAuthCookie reports whether c looks like it carries session or
// authentication state. False positives are acceptable.
func IsAuthCookie(c Cookie) bool {
	name := strings.ToLower(c.Name)
	for _, p := range authPatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	// Server-set session cookies are usually httpOnly.
	return c.HTTPOnly
}

// FilterAuth returns the cookies for which IsAuthCookie is true, preserving order.
func FilterAuth(cookies []Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if IsAuthCookie(c) {
			out = append(out, c)
		}
	}
	return out
}

// NormalizeDomain lower-cases domain, strips leading dots and removes every
// "www." occurrence. The result is a fixed point: normalizing it again
// returns it unchanged.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(domain)
	for {
		next := strings.ReplaceAll(strings.TrimLeft(d, "."), "www.", "")
		if next == d {
			return d
		}
		d = next
	}
}

// ExtractDomain returns the normalized host of rawURL, without port.
// Any parse failure yields "".
func ExtractDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Hostname())
}

// IsWebURL reports whether rawURL is an http or https URL with a host.
// Browser-internal pages (about:, chrome:, data:) are not.
func IsWebURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

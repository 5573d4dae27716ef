package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInsecureURL is returned when the sync token would travel over plain
// http to a host other than the local machine.
var ErrInsecureURL = errors.New("config: plain http is only allowed for localhost")

// Validate checks the API and welcome URLs.
func (c *Config) Validate() error {
	if err := checkURL("api url", c.BaseURL()); err != nil {
		return err
	}
	return checkURL("welcome url", c.Welcome())
}

func checkURL(what, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", what, err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("config: %s %q has no host", what, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return nil
	case "http":
		if isLoopback(host) {
			return nil
		}
		return fmt.Errorf("%w: %s %q", ErrInsecureURL, what, raw)
	default:
		return fmt.Errorf("config: %s %q: scheme must be http or https", what, raw)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

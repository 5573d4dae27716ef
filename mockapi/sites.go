package mockapi

import (
	"net"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/hazyhaar/hyperaide-sync/cookie"
)

// siteGroup is one registrable domain and the number of uploaded cookies
// scoped to it.
type siteGroup struct {
	Domain      string
	DisplayName string
	Cookies     int
}

// registrable returns the eTLD+1 of a cookie domain. Hosts without one
// (localhost, IP literals, bare suffixes) are kept as they are.
func registrable(domain string) string {
	d := cookie.NormalizeDomain(domain)
	if d == "" || net.ParseIP(d) != nil {
		return d
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(d); err == nil {
		return etld1
	}
	return d
}

// displayName is the capitalised first label of a registrable domain:
// "github.com" -> "Github".
func displayName(domain string) string {
	label, _, _ := strings.Cut(domain, ".")
	if label == "" {
		return domain
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// groupSites folds cookies into registrable domains, sorted by domain.
func groupSites(cookies []cookie.Cookie) []siteGroup {
	counts := make(map[string]int)
	for _, c := range cookies {
		if d := registrable(c.Domain); d != "" {
			counts[d]++
		}
	}
	groups := make([]siteGroup, 0, len(counts))
	for d, n := range counts {
		groups = append(groups, siteGroup{Domain: d, DisplayName: displayName(d), Cookies: n})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Domain < groups[j].Domain })
	return groups
}

package policy

import (
	"errors"
	"strings"

	"fetchbot/internal/httputil"
	"fetchbot/internal/media"
)

// BaseBlockedDomains are host substrings that are always refused.
var BaseBlockedDomains = []string{
	"netflix.com",
	"shahid.net",
	"shahed4u",
	"osn.com",
	"disneyplus.com",
	"amazon.com",
	"hbomax.com",
}

var (
	ErrBanned       = errors.New("identity is banned")
	ErrBlocked      = errors.New("domain is blocked")
	ErrMalformedURL = errors.New("url must start with http:// or https://")
)

// Gate decides whether a submission may proceed to resolution.
type Gate struct {
	lists *Lists
	base  []string
}

// NewGate creates a gate over lists and the fixed base denylist.
func NewGate(lists *Lists) *Gate {
	return &Gate{lists: lists, base: BaseBlockedDomains}
}

// Check returns nil when identity may submit rawURL, or a *media.Failure
// tagged identity-banned, malformed-url or domain-blocked.
// It performs no I/O.
func (g *Gate) Check(identity int64, rawURL string) error {
	if g.lists.IsBanned(identity) {
		return media.Fail(media.ReasonIdentityBanned, ErrBanned)
	}

	rawURL = strings.TrimSpace(rawURL)
	if !hasHTTPScheme(rawURL) || httputil.ValidateURL(rawURL) != nil {
		return media.Fail(media.ReasonMalformedURL, ErrMalformedURL)
	}

	if g.IsBlocked(httputil.Hostname(rawURL)) {
		return media.Fail(media.ReasonDomainBlocked, ErrBlocked)
	}

	return nil
}

// IsBlocked reports whether host contains any fixed or dynamic denylist entry.
func (g *Gate) IsBlocked(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	for _, b := range g.base {
		if strings.Contains(host, b) {
			return true
		}
	}
	return g.lists.matchesBlocked(host)
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

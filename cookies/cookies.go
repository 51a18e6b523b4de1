// Package cookies knows the token cookie names and how to read and split
// cookie headers. Parsing is deliberately forgiving: a malformed Cookie
// header degrades to "not found", never to a failed request.
package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie names for the two deployment topologies. The cross-site name is
// tried first, the same-site __Host- name is the fallback.
const (
	AccessCrossSite  = "__Secure-at"
	AccessSameSite   = "__Host-at"
	RefreshCrossSite = "__Secure-rt"
	RefreshSameSite  = "__Host-rt"
)

// AccessNames and RefreshNames list accepted cookie names in lookup order.
var (
	AccessNames  = []string{AccessCrossSite, AccessSameSite}
	RefreshNames = []string{RefreshCrossSite, RefreshSameSite}
)

// Read returns the URL-decoded value of the first cookie with the given
// name in a Cookie header. The second return reports whether it was found.
// Values may contain embedded '=' characters; only the first '=' splits
// name from value.
func Read(cookieHeader, name string) (string, bool) {
	for _, pair := range strings.Split(cookieHeader, ";") {
		pair = strings.TrimSpace(pair)
		k, v, found := strings.Cut(pair, "=")
		if !found || k != name {
			continue
		}
		// PathUnescape, not QueryUnescape: '+' in a token value is a
		// literal plus, not a space.
		decoded, err := url.PathUnescape(v)
		if err != nil {
			return v, true
		}
		return decoded, true
	}
	return "", false
}

// ReadFirst returns the value of the first present cookie among names.
func ReadFirst(cookieHeader string, names []string) (string, bool) {
	for _, n := range names {
		if v, ok := Read(cookieHeader, n); ok {
			return v, true
		}
	}
	return "", false
}

// HasAny reports whether any of the named cookies appears in the header.
func HasAny(cookieHeader string, names []string) bool {
	_, ok := ReadFirst(cookieHeader, names)
	return ok
}

// SplitSetCookie splits a combined Set-Cookie header value into individual
// cookie-setting directives. A naive comma split breaks on Expires dates
// ("Expires=Wed, 09 Jun 2025 ..."), so a comma only terminates a directive
// when what follows looks like the start of the next cookie's name=value
// pair: optional whitespace, then a run of characters free of ';' and '=',
// then '='.
func SplitSetCookie(headerValue string) []string {
	if headerValue == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(headerValue); i++ {
		if headerValue[i] != ',' {
			continue
		}
		if !startsNewCookie(headerValue[i+1:]) {
			continue
		}
		if part := strings.TrimSpace(headerValue[start:i]); part != "" {
			out = append(out, part)
		}
		start = i + 1
	}
	if part := strings.TrimSpace(headerValue[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

// startsNewCookie reports whether s begins with `\s*[^;=]+?=`.
func startsNewCookie(s string) bool {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	nameLen := 0
	for i < len(s) {
		switch s[i] {
		case '=':
			return nameLen > 0
		case ';', ',':
			return false
		default:
			nameLen++
			i++
		}
	}
	return false
}

// AccessCookieConfig describes how the refresh route sets the access-token
// cookie for the active deployment topology.
type AccessCookieConfig struct {
	CrossSite    bool
	ParentDomain string
	MaxAge       time.Duration
}

// NewAccessCookie builds the HttpOnly access-token cookie. Cross-site
// deployments share the cookie across subdomains (SameSite=None + parent
// domain); same-site deployments use the __Host- convention.
func NewAccessCookie(token string, cfg AccessCookieConfig) *http.Cookie {
	c := &http.Cookie{
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		MaxAge:   int(cfg.MaxAge.Seconds()),
	}
	if cfg.CrossSite {
		c.Name = AccessCrossSite
		c.SameSite = http.SameSiteNoneMode
		c.Domain = cfg.ParentDomain
	} else {
		c.Name = AccessSameSite
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

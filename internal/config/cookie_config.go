package config

import (
	"regexp"
	"strconv"
	"time"
)

type CookieConfig interface {
	IsCrossSite() bool
	GetParentDomain() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type Cookies struct{}

var _ CookieConfig = Cookies{}

func (Cookies) IsCrossSite() bool {
	return GetEnv("COOKIE_CROSS_SITE", "") == "true"
}

func (Cookies) GetParentDomain() string {
	return GetEnv("COOKIE_PARENT_DOMAIN", ".jalgo.ai")
}

// Keep these in sync with the backend's token TTLs.
func (Cookies) GetAccessTokenExpiry() time.Duration {
	return parseExpiry(GetEnv("ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute)
}

func (Cookies) GetRefreshTokenExpiry() time.Duration {
	return parseExpiry(GetEnv("REFRESH_TOKEN_EXPIRY", "7d"), 7*24*time.Hour)
}

var expiryRe = regexp.MustCompile(`^(\d+)([smhd])$`)

// parseExpiry understands the backend's "15m" / "7d" style TTL strings,
// which time.ParseDuration cannot (no day unit).
func parseExpiry(s string, fallback time.Duration) time.Duration {
	m := expiryRe.FindStringSubmatch(s)
	if m == nil {
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback
	}
	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	default:
		return time.Duration(n) * 24 * time.Hour
	}
}

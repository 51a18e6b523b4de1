package config

import "time"

type UpstreamConfig interface {
	GetAPIBaseURL() string
	GetRefreshPath() string
	GetUpstreamTimeout() time.Duration
}

type Upstream struct{}

var _ UpstreamConfig = Upstream{}

// GetAPIBaseURL returns the Express backend base URL. No default: an empty
// value is a deployment mistake and handlers fail fast with CONFIG_ERROR.
func (Upstream) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "")
}

func (Upstream) GetRefreshPath() string {
	return GetEnv("REFRESH_PATH", "/ipa/v1/auth/refresh-token")
}

// GetUpstreamTimeout bounds every upstream round trip, including the
// refresh call and the retry.
func (Upstream) GetUpstreamTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv("UPSTREAM_TIMEOUT", "10s"))
	if err != nil {
		return 10 * time.Second
	}
	return d
}

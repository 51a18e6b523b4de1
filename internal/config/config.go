package config

type Config interface {
	EnvConfig
	UpstreamConfig
	CookieConfig
	CorsConfig
	TelemetryConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetServiceName() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type TelemetryConfig interface {
	GetOTLPEndpoint() string
}

type mainConfig struct {
	EnvVars
	Upstream
	Cookies
	Cors
}

func New() Config {
	return mainConfig{}
}

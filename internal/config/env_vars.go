package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
	serviceVar = "SERVICE_NAME"
	otlpVar    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envEnvVar  = "ENV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ TelemetryConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Gateway")
}

func (EnvVars) GetServiceName() string {
	return GetEnv(serviceVar, "auth-gateway")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envEnvVar)
	if env == "" {
		return "DEV"
	}
	return env
}

// GetOTLPEndpoint returns the OTLP trace collector endpoint. Empty means
// tracing stays disabled.
func (EnvVars) GetOTLPEndpoint() string {
	return GetEnv(otlpVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

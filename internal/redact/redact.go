// Package redact strips credentials from values before they reach logs.
package redact

import "strings"

var secretKeys = []string{
	"authorization", "proxy-authorization", "cookie", "set-cookie",
	"password", "pass", "token", "refresh", "access", "secret", "otp",
}

const maskedValue = "[REDACTED]"

// Value deep-copies v with every map entry whose key contains a secret
// marker replaced by a placeholder. Non-container values pass through.
func Value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSecretKey(k) {
				out[k] = maskedValue
			} else {
				out[k] = Value(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	default:
		return v
	}
}

func isSecretKey(k string) bool {
	lk := strings.ToLower(k)
	for _, s := range secretKeys {
		if strings.Contains(lk, s) {
			return true
		}
	}
	return false
}

package logger

import (
	"log/slog"
	"strings"
)

// sensitiveKeyPatterns marks attribute keys whose values should never hit
// the log stream verbatim (encryption keys, gossip secrets, credentials
// passed through config).
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"encryption_key",
	"credential",
	"private_key",
	"gossip_key",
}

const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute's key suggests sensitive data
// and redacts the value if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		keyLower := strings.ToLower(a.Key)
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				if a.Value.String() != "" {
					return slog.String(a.Key, redactedValue)
				}
				break
			}
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// IsSensitiveKey reports whether a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

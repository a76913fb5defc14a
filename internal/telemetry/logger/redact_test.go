package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Level: "info", Format: "json", Output: &buf}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"password", "mysecret123", "***REDACTED***"},
		{"user_password", "hunter2", "***REDACTED***"},
		{"gossip_key", "some-key-value", "***REDACTED***"},
		{"private_key", "pem-data", "***REDACTED***"},
		{"credential", "cred123", "***REDACTED***"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", tt.key, tt.value)

			var logEntry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}

			val, ok := logEntry[tt.key].(string)
			if !ok {
				t.Fatalf("Expected %s field in log", tt.key)
			}
			if val != tt.expected {
				t.Errorf("Key %q should be redacted to %q, got %q", tt.key, tt.expected, val)
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Level: "info", Format: "json", Output: &buf}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("node joined", "node_id", "node-1", "shard_index", "12")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if nodeID, ok := logEntry["node_id"].(string); !ok || nodeID != "node-1" {
		t.Errorf("node_id should not be redacted, got: %v", logEntry["node_id"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key       string
		sensitive bool
	}{
		{"password", true},
		{"user_password", true},
		{"PASSWORD", true},
		{"secret", true},
		{"gossip_key", true},
		{"private_key", true},
		{"credential", true},
		{"node_id", false},
		{"shard_index", false},
		{"request_id", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if result := IsSensitiveKey(tt.key); result != tt.sensitive {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, result, tt.sensitive)
			}
		})
	}
}

func TestRedactSensitive_NonSensitiveKeyWithSecretInValue(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Level: "info", Format: "json", Output: &buf}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("config loaded", "config", "secret=hunter2")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if _, ok := logEntry["config"]; !ok {
		t.Fatalf("expected config field in log")
	}
}

package monitoring

import (
	"testing"

	"github.com/skyfleet/skyfleet/config"
	coremon "github.com/skyfleet/skyfleet/core/monitoring"
)

func TestNewSentryMonitorDisabled(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestNewSentryMonitorInvalidDSN(t *testing.T) {
	if _, err := NewSentryMonitor(config.SentryConfig{DSN: "::not-a-dsn"}); err == nil {
		t.Fatal("expected error for invalid dsn")
	}
}

func TestSentryMonitorCapture(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "https://public@127.0.0.1:1/1", Environment: "test"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	m.CaptureException(nil, nil)
	m.CaptureException(errTest("mission fault"), map[string]string{"vehicle_id": "d1"})
	m.Flush(0)
}

type errTest string

func (e errTest) Error() string { return string(e) }

package pkg

import (
	"context"
	"testing"

	"github.com/dawatapp/dawat/pkg/event"
)

func TestStreamConfigFor(t *testing.T) {
	cfg := StreamConfigFor("nats://localhost:4222")

	if cfg.StreamName != DefaultStreamName {
		t.Errorf("StreamName = %q, want %q", cfg.StreamName, DefaultStreamName)
	}
	if cfg.MaxAge != DefaultStreamMaxAge {
		t.Errorf("MaxAge = %v, want %v", cfg.MaxAge, DefaultStreamMaxAge)
	}

	want := map[string]bool{event.PostsTopic: true, event.OrdersTopic: true}
	if len(cfg.Subjects) != len(want) {
		t.Fatalf("Subjects = %v", cfg.Subjects)
	}
	for _, s := range cfg.Subjects {
		if !want[s] {
			t.Errorf("unexpected subject %q", s)
		}
	}
}

func TestNewNATSStreamPublisherRequiresSubjects(t *testing.T) {
	cfg := StreamConfigFor("nats://localhost:4222")
	cfg.Subjects = nil

	if _, err := NewNATSStreamPublisher(context.Background(), cfg); err == nil {
		t.Error("NewNATSStreamPublisher() should reject a stream without subjects")
	}
}

package cron

import (
	"testing"
)

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	outbox := &stubJob{name: OutboxRetentionJobName}
	notifications := &stubJob{name: NotificationRetentionJobName}

	registry, err := NewRegistry(outbox, nil, notifications)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != outbox || jobs[1] != notifications {
		t.Fatalf("expected registration order to be kept, got %v", jobs)
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "outbox_retention"}, &stubJob{name: "outbox_retention"}); err == nil {
		t.Fatal("expected duplicate name error")
	}

	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := registry.Register(&stubJob{name: "  "}); err == nil {
		t.Fatal("expected blank name error")
	}
	if len(registry.Jobs()) != 0 {
		t.Fatalf("expected no jobs, got %d", len(registry.Jobs()))
	}
}

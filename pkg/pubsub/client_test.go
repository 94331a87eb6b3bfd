package pubsub

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, kind, name, want string
	}{
		{"pawcircle", kindTopic, "pc-order-events", "projects/pawcircle/topics/pc-order-events"},
		{"pawcircle", kindTopic, " projects/other/topics/x ", "projects/other/topics/x"},
		{"pawcircle", kindSubscription, "orders-sub", "projects/pawcircle/subscriptions/orders-sub"},
		{"pawcircle", kindSubscription, "projects/other/topics/x", "projects/pawcircle/subscriptions/projects/other/topics/x"},
		{"", kindTopic, "pc-order-events", ""},
		{"pawcircle", kindTopic, "  ", ""},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.kind, tc.name); got != tc.want {
			t.Fatalf("%s %s %q: expected %q, got %q", tc.project, tc.kind, tc.name, tc.want, got)
		}
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "t"}, nil)
	if !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	if !errors.Is(err, errTopicRequired) {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func checkReturning(kind, id string, err error, seen *[]string) resourceCheck {
	return resourceCheck{kind: kind, id: id, lookup: func(_ context.Context, name string) error {
		*seen = append(*seen, name)
		return err
	}}
}

func TestPingRunsEveryResourceCheck(t *testing.T) {
	var seen []string
	c := &Client{projectID: "pawcircle", checks: []resourceCheck{
		checkReturning(kindTopic, "pc-order-events", nil, &seen),
		checkReturning(kindSubscription, "orders-sub", nil, &seen),
	}}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	want := []string{
		"projects/pawcircle/topics/pc-order-events",
		"projects/pawcircle/subscriptions/orders-sub",
	}
	if !slices.Equal(seen, want) {
		t.Fatalf("expected lookups %v, got %v", want, seen)
	}
}

func TestPingReportsMissingAndFailingResources(t *testing.T) {
	var seen []string
	c := &Client{projectID: "pawcircle", checks: []resourceCheck{
		checkReturning(kindTopic, "pc-order-events", nil, &seen),
		checkReturning(kindSubscription, "orders-sub", status.Error(codes.NotFound, "gone"), &seen),
	}}
	err := c.Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), `subscription "orders-sub" does not exist`) {
		t.Fatalf("expected missing subscription error, got %v", err)
	}

	boom := status.Error(codes.Unavailable, "down")
	c.checks = []resourceCheck{checkReturning(kindTopic, "pc-order-events", boom, &seen)}
	err = c.Ping(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), `checking topic "pc-order-events"`) {
		t.Fatalf("expected wrapped lookup failure, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil || c.OrdersSubscription() != nil {
		t.Fatal("nil client must hand out nil handles")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

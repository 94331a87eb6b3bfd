package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// resourceCheck is one admin lookup Ping runs; NotFound from lookup means the resource is missing.
type resourceCheck struct {
	kind   string
	id     string
	lookup func(ctx context.Context, name string) error
}

// Client wraps the Pub/Sub v2 client for the order events topic and its subscription.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	checks    []resourceCheck
}

// NewClient connects and fails when the orders topic (or the configured subscription) is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errTopicRequired
	}

	ps, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: ps, projectID: projectID, cfg: cfg}
	c.checks = c.adminChecks()

	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":      projectID,
			"topic":        cfg.OrdersTopic,
			"subscription": cfg.OrdersSubscription,
		}), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) adminChecks() []resourceCheck {
	checks := []resourceCheck{{
		kind: kindTopic,
		id:   c.cfg.OrdersTopic,
		lookup: func(ctx context.Context, name string) error {
			_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
			return err
		},
	}}
	if strings.TrimSpace(c.cfg.OrdersSubscription) != "" {
		checks = append(checks, resourceCheck{
			kind: kindSubscription,
			id:   c.cfg.OrdersSubscription,
			lookup: func(ctx context.Context, name string) error {
				_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
				return err
			},
		})
	}
	return checks
}

// Ping confirms every configured resource still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || len(c.checks) == 0 {
		return errNotInitialized
	}
	for _, p := range c.checks {
		err := p.lookup(ctx, resourceName(c.projectID, p.kind, p.id))
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("%s %q does not exist", strings.TrimSuffix(p.kind, "s"), p.id)
		default:
			return fmt.Errorf("checking %s %q: %w", strings.TrimSuffix(p.kind, "s"), p.id, err)
		}
	}
	return nil
}

// Publisher accepts a topic ID or a full resource name. Nil when the client is unusable.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if full := c.fullName(kindTopic, name); full != "" {
		return c.client.Publisher(full)
	}
	return nil
}

// Subscription accepts a subscription ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if full := c.fullName(kindSubscription, name); full != "" {
		return c.client.Subscriber(full)
	}
	return nil
}

func (c *Client) OrdersSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.OrdersSubscription)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) fullName(kind, name string) string {
	if c == nil || c.client == nil {
		return ""
	}
	return resourceName(c.projectID, kind, name)
}

// resourceName expands a bare ID into projects/<p>/<kind>/<id>. Full names pass through.
func resourceName(projectID, kind, name string) string {
	id := strings.TrimSpace(name)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+kind+"/") {
		return id
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return strings.Join([]string{"projects", projectID, kind, id}, "/")
}

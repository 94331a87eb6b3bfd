package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Keys held per user in the session store.
const (
	KeyAppliedPromo = "applied_promo_code"
	KeyLastOrder    = "last_order"
	KeyCartView     = "cart_view"
)

// Store keeps small per-user values that outlive a request but not the session.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error)
	Set(ctx context.Context, userID uuid.UUID, key, value string) error
	Delete(ctx context.Context, userID uuid.UUID, keys ...string) error
}

// GetJSON decodes the value stored at key into dest. The bool is false when nothing is stored.
func GetJSON(ctx context.Context, store Store, userID uuid.UUID, key string, dest any) (bool, error) {
	raw, ok, err := store.Get(ctx, userID, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, store Store, userID uuid.UUID, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	return store.Set(ctx, userID, key, string(payload))
}

// Package redis implements the live cart store on Redis. Each customer's
// cart is a hash keyed by tea/package pair; the snapshot reader consumes it
// at placement time and Clear wipes it afterwards.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/cart"
)

const cartKeyPrefix = "cart:"

var _ cart.Store = (*CartStore)(nil)

// CartStore stores carts in Redis hashes. Field keys are "<teaID>:<packageID>",
// values are quantities. Last write wins between a concurrent add and a
// clear, which is acceptable for a single-owner cart.
type CartStore struct {
	client *redis.Client
}

// NewCartStore connects to Redis and verifies the connection.
func NewCartStore(ctx context.Context, redisURL string) (*CartStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &CartStore{client: client}, nil
}

// NewCartStoreWithClient wraps an existing client. Used by tests and by
// callers that share one connection.
func NewCartStoreWithClient(client *redis.Client) *CartStore {
	return &CartStore{client: client}
}

// Client exposes the underlying connection for health checks.
func (s *CartStore) Client() *redis.Client {
	return s.client
}

// Close releases the connection.
func (s *CartStore) Close() error {
	return s.client.Close()
}

// Items returns the customer's current cart lines.
func (s *CartStore) Items(ctx context.Context, customerID int64) ([]cart.Item, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(customerID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read cart hash")
	}

	items := make([]cart.Item, 0, len(fields))
	for field, value := range fields {
		teaID, packageID, err := parseCartField(field)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty < 1 {
			return nil, errors.Errorf("malformed cart quantity %q for %q", value, field)
		}
		items = append(items, cart.Item{TeaID: teaID, PackageID: packageID, Quantity: qty})
	}
	return items, nil
}

// SetItem writes one cart line; quantity zero removes it.
func (s *CartStore) SetItem(ctx context.Context, customerID int64, item cart.Item) error {
	field := fmt.Sprintf("%d:%d", item.TeaID, item.PackageID)
	if item.Quantity <= 0 {
		return errors.Wrap(s.client.HDel(ctx, cartKey(customerID), field).Err(), "remove cart line")
	}
	return errors.Wrap(s.client.HSet(ctx, cartKey(customerID), field, item.Quantity).Err(), "write cart line")
}

// Clear removes the customer's whole cart.
func (s *CartStore) Clear(ctx context.Context, customerID int64) error {
	return errors.Wrap(s.client.Del(ctx, cartKey(customerID)).Err(), "clear cart")
}

func cartKey(customerID int64) string {
	return cartKeyPrefix + strconv.FormatInt(customerID, 10)
}

func parseCartField(field string) (teaID, packageID int64, err error) {
	teaStr, pkgStr, ok := strings.Cut(field, ":")
	if !ok {
		return 0, 0, errors.Errorf("malformed cart field %q", field)
	}
	teaID, err = strconv.ParseInt(teaStr, 10, 64)
	if err != nil {
		return 0, 0, errors.Errorf("malformed cart field %q", field)
	}
	packageID, err = strconv.ParseInt(pkgStr, 10, 64)
	if err != nil {
		return 0, 0, errors.Errorf("malformed cart field %q", field)
	}
	return teaID, packageID, nil
}

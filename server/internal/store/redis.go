package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quickbite/quickbite/pkg/types"
)

// maxTxRetries bounds optimistic-lock retries for status updates.
const maxTxRetries = 5

// Redis stores orders as JSON documents with sorted-set indexes:
//
//	{prefix}seq                  INCR order sequence
//	{prefix}order:{id}           order document
//	{prefix}orders               ZSET all order ids by creation time
//	{prefix}user:{userId}:orders ZSET one user's order ids
//
// Terminal orders get a TTL equal to the retention window; index entries
// pointing at expired documents are skipped and pruned on read.
type Redis struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedis wraps an open client. prefix namespaces every key.
func NewRedis(rdb *redis.Client, prefix string, retention time.Duration) *Redis {
	return &Redis{
		rdb:       rdb,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

func (r *Redis) orderKey(id string) string    { return r.prefix + "order:" + id }
func (r *Redis) allKey() string               { return r.prefix + "orders" }
func (r *Redis) userKey(userID string) string { return r.prefix + "user:" + userID + ":orders" }
func (r *Redis) seqKey() string               { return r.prefix + "seq" }

// CreateOrder implements Store.
func (r *Redis) CreateOrder(ctx context.Context, in NewOrder) (*types.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	seq, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("store: next order id: %w", err)
	}
	o := in.build(orderID(seq), r.now())
	doc, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}

	score := float64(o.CreatedAt.UnixNano())
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.orderKey(o.OrderID), doc, 0)
		p.ZAdd(ctx, r.allKey(), redis.Z{Score: score, Member: o.OrderID})
		p.ZAdd(ctx, r.userKey(o.UserID), redis.Z{Score: score, Member: o.OrderID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: write order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus implements Store. The read-check-write runs under
// WATCH and is retried when another writer touches the order first.
func (r *Redis) UpdateOrderStatus(ctx context.Context, id string, status types.Status, estimatedTime *int) (*types.Order, error) {
	key := r.orderKey(id)
	var updated *types.Order

	txf := func(tx *redis.Tx) error {
		o, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := applyStatus(o, status, estimatedTime, r.now()); err != nil {
			return err
		}
		doc, err := json.Marshal(o)
		if err != nil {
			return err
		}
		var ttl time.Duration
		if o.Status.Terminal() {
			ttl = r.retention
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, doc, ttl)
			return nil
		})
		if err == nil {
			updated = o
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("store: update %s: too much contention", id)
}

// GetOrder implements Store.
func (r *Redis) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	return r.load(ctx, r.rdb, r.orderKey(id))
}

// ListOrders implements Store.
func (r *Redis) ListOrders(ctx context.Context, userID string) ([]*types.Order, error) {
	index := r.allKey()
	if userID != "" {
		index = r.userKey(userID)
	}
	ids, err := r.rdb.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read index: %w", err)
	}
	if len(ids) == 0 {
		return []*types.Order{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.orderKey(id)
	}
	docs, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read orders: %w", err)
	}

	out := make([]*types.Order, 0, len(docs))
	var stale []any
	for i, doc := range docs {
		s, ok := doc.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var o types.Order
		if err := json.Unmarshal([]byte(s), &o); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", ids[i], err)
		}
		out = append(out, &o)
	}
	if len(stale) > 0 {
		r.rdb.ZRem(ctx, index, stale...) //nolint:errcheck
	}
	return out, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) load(ctx context.Context, c getter, key string) (*types.Order, error) {
	doc, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read order: %w", err)
	}
	var o types.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("store: decode order: %w", err)
	}
	return &o, nil
}

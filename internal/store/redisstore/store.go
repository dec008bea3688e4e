// Package redisstore implements store.Store on Redis so several desk
// processes can share tickets, the ledger and the blacklist.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dvloznov/exchange-desk/internal/store"
)

// maxTxAttempts bounds the WATCH/MULTI loop in Update.
const maxTxAttempts = 8

// Options configures the Redis connection.
type Options struct {
	Addrs      []string
	Password   string
	DB         int
	UseCluster bool
	// Namespace prefixes every key, e.g. "desk".
	Namespace string
}

// Store is a Redis-backed store.Store.
type Store struct {
	client redis.UniversalClient // works with both single and cluster
	ns     string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("redisstore: at least one address is required")
	}

	var rdb redis.UniversalClient
	if opts.UseCluster && len(opts.Addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    opts.Addrs,
			Password: opts.Password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     opts.Addrs[0],
			Password: opts.Password,
			DB:       opts.DB,
		})
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	return NewWithClient(rdb, opts.Namespace), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, namespace string) *Store {
	return &Store{client: client, ns: namespace}
}

func (s *Store) key(k string) string {
	if s.ns == "" {
		return k
	}
	return s.ns + ":" + k
}

// Create implements store.Store using SETNX.
func (s *Store) Create(ctx context.Context, key string, value []byte) error {
	ok, err := s.client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return fmt.Errorf("redisstore: create %s: %w", key, err)
	}
	if !ok {
		return store.ErrExists
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return v, nil
}

// Update implements store.Store with an optimistic WATCH/MULTI transaction.
// A transaction that loses a race is re-run against the fresh value.
func (s *Store) Update(ctx context.Context, key string, fn store.UpdateFunc) ([]byte, error) {
	k := s.key(key)
	var next []byte

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err = fn(cur)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxAttempts; i++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, store.ErrConflict
}

// Take implements store.Store using GETDEL.
func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: take %s: %w", key, err)
	}
	return v, nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", key, err)
	}
	return nil
}

// Keys implements store.Store with SCAN; KEYS would block the server.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	var keys []string
	iter := s.client.Scan(ctx, 0, full+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if s.ns != "" {
			k = strings.TrimPrefix(k, s.ns+":")
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redisstore: scan %s: %w", prefix, err)
	}
	return keys, nil
}

// IncrBy implements store.Store.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, s.key(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: incrby %s: %w", key, err)
	}
	return v, nil
}

// GetInt implements store.Store.
func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, s.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redisstore: get int %s: %w", key, err)
	}
	return v, nil
}

// SetAdd implements store.Store.
func (s *Store) SetAdd(ctx context.Context, set, member string) error {
	if err := s.client.SAdd(ctx, s.key(set), member).Err(); err != nil {
		return fmt.Errorf("redisstore: sadd %s: %w", set, err)
	}
	return nil
}

// SetRemove implements store.Store.
func (s *Store) SetRemove(ctx context.Context, set, member string) error {
	if err := s.client.SRem(ctx, s.key(set), member).Err(); err != nil {
		return fmt.Errorf("redisstore: srem %s: %w", set, err)
	}
	return nil
}

// SetContains implements store.Store.
func (s *Store) SetContains(ctx context.Context, set, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(set), member).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: sismember %s: %w", set, err)
	}
	return ok, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.Store = (*Store)(nil)

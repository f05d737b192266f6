package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/logger"
)

const (
	redisIndexKey  = "qdcore:slots"
	redisKeyPrefix = "qdcore:slot:"
)

// RedisStore keeps slots as Redis strings with an optional TTL. A sorted
// set indexes the slot numbers.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{"addr": opt.Addr, "ttl": ttl}).Info("redis save store connected")
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func dataKey(slot int) string { return redisKeyPrefix + strconv.Itoa(slot) }
func metaKey(slot int) string { return redisKeyPrefix + strconv.Itoa(slot) + ":meta" }

func (s *RedisStore) Put(ctx context.Context, slot int, data []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	meta, err := json.Marshal(newSlot(slot, len(data)))
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, dataKey(slot), data, s.ttl)
		p.Set(ctx, metaKey(slot), meta, s.ttl)
		p.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(slot), Member: slot})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put slot %d failed: %w", slot, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, slot int) ([]byte, error) {
	data, err := s.rdb.Get(ctx, dataKey(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get slot %d failed: %w", slot, err)
	}
	return data, nil
}

// List drops index entries whose keys have expired.
func (s *RedisStore) List(ctx context.Context) ([]Slot, error) {
	members, err := s.rdb.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list slots failed: %w", err)
	}
	var slots []Slot
	for _, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		b, err := s.rdb.Get(ctx, metaKey(n)).Bytes()
		if errors.Is(err, redis.Nil) {
			s.rdb.ZRem(ctx, redisIndexKey, m)
			continue
		}
		if err != nil {
			return nil, err
		}
		var sl Slot
		if err := json.Unmarshal(b, &sl); err != nil {
			return nil, fmt.Errorf("slot %d metadata: %w", n, err)
		}
		slots = append(slots, sl)
	}
	sortSlots(slots)
	return slots, nil
}

func (s *RedisStore) Delete(ctx context.Context, slot int) error {
	n, err := s.rdb.Del(ctx, dataKey(slot), metaKey(slot)).Result()
	if err != nil {
		return fmt.Errorf("redis delete slot %d failed: %w", slot, err)
	}
	s.rdb.ZRem(ctx, redisIndexKey, strconv.Itoa(slot))
	if n == 0 {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotNotFound)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	pherr "github.com/sweetpotato0/pharmacy-assistant/errors"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
)

const (
	medicationKeyPrefix = "pharmacy:medication:"
	medicationListKey   = "pharmacy:medications"

	// DefaultCacheTTL bounds staleness of cached catalogue reads. The
	// catalogue changes rarely; stock and prescriptions are never cached.
	DefaultCacheTTL = 5 * time.Minute
)

// CachedStore wraps a Store with a Redis read-through cache for medication
// catalogue lookups. All other reads and every write pass straight through.
// Cache failures degrade to the underlying store and are only logged.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps next with a Redis medication cache. A zero ttl uses
// DefaultCacheTTL.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{Store: next, client: client, ttl: ttl}
}

func (c *CachedStore) MedicationByName(ctx context.Context, name string) (*Medication, error) {
	key := medicationKeyPrefix + strings.ToLower(NormalizeText(name))
	logger := logging.WithComponent("cache")

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var m Medication
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			return &m, nil
		}
		logger.Warn("dropping undecodable cache entry", "key", key)
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("medication cache read failed", "key", key, "error", err)
	}

	m, err := c.Store.MedicationByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(m); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.Warn("medication cache write failed", "key", key, "error", err)
		}
	}
	return m, nil
}

func (c *CachedStore) Medications(ctx context.Context) ([]*Medication, error) {
	logger := logging.WithComponent("cache")

	raw, err := c.client.Get(ctx, medicationListKey).Result()
	if err == nil {
		var meds []*Medication
		if err := json.Unmarshal([]byte(raw), &meds); err == nil {
			return meds, nil
		}
		c.client.Del(ctx, medicationListKey)
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("medication list cache read failed", "error", err)
	}

	meds, err := c.Store.Medications(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(meds); err == nil {
		if err := c.client.Set(ctx, medicationListKey, raw, c.ttl).Err(); err != nil {
			logger.Warn("medication list cache write failed", "error", err)
		}
	}
	return meds, nil
}

// Invalidate drops all cached medication entries. Exposed for reseeding.
func (c *CachedStore) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, medicationKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	keys = append(keys, medicationListKey)
	return c.client.Del(ctx, keys...).Err()
}

// Seeder passthrough so reseeding can run through the cached store. Reset
// also drops the cached catalogue; otherwise reads could serve rows from
// before the reset until the TTL expires. Invalidation failures degrade
// like any other cache failure.

var _ Seeder = (*CachedStore)(nil)

func (c *CachedStore) seeder() (Seeder, error) {
	s, ok := c.Store.(Seeder)
	if !ok {
		return nil, fmt.Errorf("store %T is not seedable", c.Store)
	}
	return s, nil
}

func (c *CachedStore) Seeded(ctx context.Context) (bool, error) {
	s, err := c.seeder()
	if err != nil {
		return false, err
	}
	return s.Seeded(ctx)
}

func (c *CachedStore) Reset(ctx context.Context) error {
	s, err := c.seeder()
	if err != nil {
		return err
	}
	if err := c.Invalidate(ctx); err != nil {
		logging.WithComponent("cache").Warn("catalogue invalidation failed", "error", err)
	}
	return s.Reset(ctx)
}

func (c *CachedStore) InsertUser(ctx context.Context, u *User) (int64, error) {
	s, err := c.seeder()
	if err != nil {
		return 0, err
	}
	return s.InsertUser(ctx, u)
}

func (c *CachedStore) InsertMedication(ctx context.Context, m *Medication) (int64, error) {
	s, err := c.seeder()
	if err != nil {
		return 0, err
	}
	return s.InsertMedication(ctx, m)
}

func (c *CachedStore) InsertStock(ctx context.Context, st *StockLevel) error {
	s, err := c.seeder()
	if err != nil {
		return err
	}
	return s.InsertStock(ctx, st)
}

func (c *CachedStore) InsertPrescription(ctx context.Context, p *Prescription) error {
	s, err := c.seeder()
	if err != nil {
		return err
	}
	return s.InsertPrescription(ctx, p)
}

// Ping verifies the Redis connection is usable.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.Join(pherr.ErrInternal, err)
	}
	return nil
}

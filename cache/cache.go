// Package cache puts a Redis read-through cache in front of the store for
// profiles and follow counts.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agora/db"
	"agora/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agora_cache_lookups_total",
	Help: "Cache lookups by result (hit, miss, error)",
}, []string{"result"})

// CachedStore wraps a store. Methods it does not override go straight to
// the database.
type CachedStore struct {
	db.Store
	client *redis.Client
	ttl    time.Duration
}

func New(store db.Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:  store,
		client: client,
		ttl:    ttl,
	}
}

// NewClient creates a Redis client for addr
func NewClient(addr, password string, database int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
}

func userKey(id string) string {
	return "user:" + id
}

func followCountsKey(id string) string {
	return "follow-counts:" + id
}

// load reports whether key was found and decoded into dest
func (s *CachedStore) load(ctx context.Context, key string, dest interface{}) bool {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{
			"key":   key,
			"error": err,
		}).Warn("Cache read failed, using database")
		return false
	}
	if err := json.Unmarshal(value, dest); err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		return false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (s *CachedStore) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"error": err,
		}).Warn("Cache write failed")
	}
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.WithFields(log.Fields{
			"keys":  keys,
			"error": err,
		}).Warn("Cache invalidation failed")
	}
}

// GetUserByID serves profiles from the cache. Cached users never carry a
// password hash, so logins go through GetUserByLogin instead.
func (s *CachedStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if s.load(ctx, userKey(id), &user) {
		return user, nil
	}

	user, err := s.Store.GetUserByID(ctx, id)
	if err != nil {
		return user, err
	}
	// An UpdateUser that invalidates between the read above and this write
	// leaves the old profile cached. Staleness is bounded by the TTL.
	s.store(ctx, userKey(id), user)
	return user, nil
}

func (s *CachedStore) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error) {
	user, err := s.Store.UpdateUser(ctx, id, update)
	if err != nil {
		return user, err
	}
	s.invalidate(ctx, userKey(id))
	return user, nil
}

func (s *CachedStore) GetFollowCounts(ctx context.Context, userID string) (models.FollowCounts, error) {
	var counts models.FollowCounts
	if s.load(ctx, followCountsKey(userID), &counts) {
		return counts, nil
	}

	counts, err := s.Store.GetFollowCounts(ctx, userID)
	if err != nil {
		return counts, err
	}
	// Same race as GetUserByID, bounded by the TTL
	s.store(ctx, followCountsKey(userID), counts)
	return counts, nil
}

func (s *CachedStore) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	created, err := s.Store.Follow(ctx, followerID, followingID)
	if err != nil {
		return created, err
	}
	s.invalidate(ctx, followCountsKey(followerID), followCountsKey(followingID))
	return created, nil
}

func (s *CachedStore) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := s.Store.Unfollow(ctx, followerID, followingID); err != nil {
		return err
	}
	s.invalidate(ctx, followCountsKey(followerID), followCountsKey(followingID))
	return nil
}

var _ db.Store = (*CachedStore)(nil)

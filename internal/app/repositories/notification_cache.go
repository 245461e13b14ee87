package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/yigit/eventhub/internal/app/models"
)

const (
	unreadCachePrefix  = "nu"
	defaultUnreadTTL   = 10 * time.Minute
	defaultFeedChannel = "notifications.created"
)

// CachedNotificationStore keeps per-user unread counters in Redis and publishes
// every committed notification on a feed channel. Redis failures never fail
// the underlying operation; they are logged and the store stays authoritative.
type CachedNotificationStore struct {
	store   NotificationStore
	redis   *redis.Client
	ttl     time.Duration
	channel string
	logger  zerolog.Logger
}

// NewCachedNotificationStore wraps store with a Redis read-through cache
func NewCachedNotificationStore(store NotificationStore, client *redis.Client, ttl time.Duration, channel string, logger zerolog.Logger) *CachedNotificationStore {
	if ttl <= 0 {
		ttl = defaultUnreadTTL
	}
	if channel == "" {
		channel = defaultFeedChannel
	}
	return &CachedNotificationStore{
		store:   store,
		redis:   client,
		ttl:     ttl,
		channel: channel,
		logger:  logger,
	}
}

func cacheKey(userID, prefix string) string {
	return userID + ":" + prefix
}

// InsertBatch writes through to the store, then evicts the recipients' counters and publishes the feed
func (c *CachedNotificationStore) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	if err := c.store.InsertBatch(ctx, notifications); err != nil {
		return err
	}
	if len(notifications) == 0 {
		return nil
	}

	_, err := c.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		seen := make(map[string]struct{}, len(notifications))
		for _, n := range notifications {
			if _, ok := seen[n.UserID]; !ok {
				seen[n.UserID] = struct{}{}
				pipe.Del(ctx, cacheKey(n.UserID, unreadCachePrefix))
			}
			payload, err := json.Marshal(n)
			if err != nil {
				return err
			}
			pipe.Publish(ctx, c.channel, payload)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Int("count", len(notifications)).Msg("Failed to refresh notification cache after insert")
	}
	return nil
}

// FindByID reads from the store
func (c *CachedNotificationStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	return c.store.FindByID(ctx, id)
}

// ListByUser reads from the store
func (c *CachedNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset uint64) ([]models.Notification, int64, error) {
	return c.store.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// CountUnread serves the counter from Redis when present and fills it on a miss
func (c *CachedNotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	key := cacheKey(userID, unreadCachePrefix)

	raw, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if count, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			return count, nil
		}
		c.logger.Warn().Str("user", userID).Str("value", raw).Msg("Discarding malformed unread counter")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("user", userID).Msg("Failed to read unread counter")
	}

	count, err := c.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := c.redis.Set(ctx, key, count, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user", userID).Msg("Failed to store unread counter")
	}
	return count, nil
}

// MarkRead writes through and evicts the user's counter
func (c *CachedNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	if err := c.store.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

// MarkAllRead writes through and evicts the user's counter
func (c *CachedNotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := c.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	c.evict(ctx, userID)
	return updated, nil
}

// Delete writes through and evicts the user's counter
func (c *CachedNotificationStore) Delete(ctx context.Context, id, userID string) error {
	if err := c.store.Delete(ctx, id, userID); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

// DeleteOlderThan purges through the store and evicts the counters of every affected user
func (c *CachedNotificationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, int64, error) {
	users, removed, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return nil, 0, err
	}
	c.evict(ctx, users...)
	return users, removed, nil
}

func (c *CachedNotificationStore) evict(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheKey(id, unreadCachePrefix))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Int("users", len(userIDs)).Msg("Failed to evict unread counters")
	}
}

// Package cache provides a Redis read-through cache over a Directory for the
// membership lookups on the authorization path. Administrative mutations go
// through the cache so stale entries are invalidated on write.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"certgate/internal/directory"
)

const memberKeyPrefix = "dir:member:"

// DefaultTTL bounds staleness when an invalidation is missed (e.g. a write
// through another instance without cache wiring).
const DefaultTTL = 5 * time.Minute

// Membership caches IsMemberOf answers; everything else delegates straight to
// the underlying directory. Cache failures degrade to direct lookups.
type Membership struct {
	directory.Directory

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Membership)

func WithTTL(ttl time.Duration) Option {
	return func(c *Membership) {
		c.ttl = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Membership) {
		c.logger = logger
	}
}

func NewMembership(inner directory.Directory, client *redis.Client, opts ...Option) *Membership {
	c := &Membership{
		Directory: inner,
		client:    client,
		ttl:       DefaultTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func memberKey(uid, group string) string {
	return memberKeyPrefix + group + ":" + uid
}

func (c *Membership) IsMemberOf(ctx context.Context, uid, group string) (bool, error) {
	key := memberKey(uid, group)
	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return val == "1", nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "membership cache read failed, falling through",
			"group", group,
			"error", err,
		)
	}

	member, err := c.Directory.IsMemberOf(ctx, uid, group)
	if err != nil {
		return false, err
	}

	marker := "0"
	if member {
		marker = "1"
	}
	if err := c.client.Set(ctx, key, marker, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "membership cache write failed",
			"group", group,
			"error", err,
		)
	}
	return member, nil
}

func (c *Membership) AddUserToGroup(ctx context.Context, group, uid string) error {
	if err := c.Directory.AddUserToGroup(ctx, group, uid); err != nil {
		return err
	}
	c.invalidate(ctx, uid, group)
	return nil
}

func (c *Membership) RemoveUserFromGroup(ctx context.Context, group, uid string) error {
	if err := c.Directory.RemoveUserFromGroup(ctx, group, uid); err != nil {
		return err
	}
	c.invalidate(ctx, uid, group)
	return nil
}

func (c *Membership) invalidate(ctx context.Context, uid, group string) {
	if err := c.client.Del(ctx, memberKey(uid, group)).Err(); err != nil {
		c.logger.WarnContext(ctx, "membership cache invalidation failed",
			"group", group,
			"error", err,
		)
	}
}

var _ directory.Directory = (*Membership)(nil)

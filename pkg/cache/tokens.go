// Package cache tracks token revocation state in Redis. Tokens are
// self-contained, so the only shared state the gate needs is "which tokens
// died before their expiry".
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// Config holds Redis connection settings.
type Config struct {
	URL      string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

const (
	tokenKeyPrefix = "revoked:token:"
	userKeyPrefix  = "revoked:user:"
)

// TokenCache marks tokens and users as revoked. Keys carry a TTL matching
// the longest outstanding token lifetime; after that the token is expired
// anyway and the marker is garbage.
type TokenCache struct {
	client  *redis.Client
	log     *logrus.Logger
	metrics *observability.Metrics
}

// NewTokenCache creates a token cache; log and metrics may be nil.
func NewTokenCache(client *redis.Client, log *logrus.Logger, metrics *observability.Metrics) (*TokenCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &TokenCache{client: client, log: log, metrics: metrics}, nil
}

// RevokeToken marks one token id as dead for ttl.
func (c *TokenCache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, tokenKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		c.count("set", "error")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	c.count("set", "ok")
	if c.metrics != nil {
		c.metrics.TokensRevokedTotal.Inc()
	}
	return nil
}

// IsTokenRevoked reports whether the token id was revoked.
func (c *TokenCache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, tokenKeyPrefix+tokenID).Result()
	if err != nil {
		c.count("exists", "error")
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	c.count("exists", "ok")
	return n > 0, nil
}

// RevokeUser invalidates every token the user holds at this moment: tokens
// issued at or before now are rejected, tokens issued later (after claims
// were regenerated) pass.
func (c *TokenCache) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	cutoff := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := c.client.Set(ctx, userKeyPrefix+userID, cutoff, ttl).Err(); err != nil {
		c.count("set", "error")
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	c.count("set", "ok")
	if c.metrics != nil {
		c.metrics.TokensRevokedTotal.Inc()
	}
	return nil
}

// IsUserRevoked reports whether a token issued at issuedAt was invalidated
// by a later user-level revocation.
func (c *TokenCache) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	val, err := c.client.Get(ctx, userKeyPrefix+userID).Result()
	if err == redis.Nil {
		c.count("get", "ok")
		return false, nil
	} else if err != nil {
		c.count("get", "error")
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}
	c.count("get", "ok")

	cutoff, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt marker; drop it rather than rejecting everyone forever.
		c.client.Del(ctx, userKeyPrefix+userID)
		return false, nil
	}
	return issuedAt.UnixNano() <= cutoff, nil
}

// Sweep deletes revocation markers that lost their TTL (for example through
// a manual PERSIST or a restore from an RDB snapshot). Without a TTL such a
// marker would block a user forever.
func (c *TokenCache) Sweep(ctx context.Context) error {
	var swept int
	for _, prefix := range []string{tokenKeyPrefix, userKeyPrefix} {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.count("ttl", "error")
				return fmt.Errorf("failed to inspect revocation marker: %w", err)
			}
			if ttl == -1 {
				if err := c.client.Del(ctx, key).Err(); err != nil {
					c.count("del", "error")
					return fmt.Errorf("failed to delete stale revocation marker: %w", err)
				}
				swept++
			}
		}
		if err := iter.Err(); err != nil {
			c.count("scan", "error")
			return fmt.Errorf("failed to scan revocation markers: %w", err)
		}
	}

	if swept > 0 {
		c.log.WithField("swept", swept).Info("removed revocation markers without ttl")
	}
	if c.metrics != nil {
		c.metrics.RevocationSweepRuns.Inc()
	}
	return nil
}

// StartSweeper schedules Sweep on the given cron schedule and returns the
// started scheduler. Callers stop it on shutdown.
func (c *TokenCache) StartSweeper(schedule string) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Sweep(ctx); err != nil {
			c.log.WithError(err).Error("revocation sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule: %w", err)
	}
	scheduler.Start()
	return scheduler, nil
}

func (c *TokenCache) count(command, status string) {
	if c.metrics != nil {
		c.metrics.RedisCommandsTotal.WithLabelValues(command, status).Inc()
	}
}

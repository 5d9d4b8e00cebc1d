package render

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/model"
)

// CachedSource is a read-through Redis cache in front of a
// TemplateSource. Workers resolve the same template on every message, so
// a short TTL takes most of that load off the store. Staleness after a
// template update is bounded by the TTL.
type CachedSource struct {
	Client *redis.Client
	Next   TemplateSource
	TTL    time.Duration
	Logger zerolog.Logger
}

func NewCachedSource(client *redis.Client, next TemplateSource, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	return &CachedSource{Client: client, Next: next, TTL: ttl, Logger: logger}
}

func cacheKey(name string, channel model.ChannelType) string {
	return "tpl:" + string(channel) + ":" + name
}

func (c *CachedSource) ActiveTemplate(ctx context.Context, name string, channel model.ChannelType) (model.Template, error) {
	key := cacheKey(name, channel)

	cached, err := c.Client.Get(ctx, key).Bytes()
	if err == nil {
		var tpl model.Template
		if err := json.Unmarshal(cached, &tpl); err == nil {
			return tpl, nil
		}
		// corrupt entry, drop it
		_ = c.Client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("template cache read failed")
	}

	tpl, err := c.Next.ActiveTemplate(ctx, name, channel)
	if err != nil {
		return model.Template{}, err
	}

	if encoded, err := json.Marshal(tpl); err == nil {
		if err := c.Client.Set(ctx, key, encoded, c.TTL).Err(); err != nil {
			c.Logger.Warn().Err(err).Str("key", key).Msg("template cache write failed")
		}
	}
	return tpl, nil
}

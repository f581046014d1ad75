package visibility

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "certverify/internal/platform/redis"
	id "certverify/pkg/domain"
)

const (
	shareKeyPrefix     = "visibility:share:"
	portfolioKeyPrefix = "visibility:portfolio:"
)

// RedisCache caches rendered share and portfolio projections. Cache errors
// degrade to a miss; the store remains the source of truth.
type RedisCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) GetShare(ctx context.Context, certID id.CertificateID) (*PublicCertificate, bool) {
	raw, err := c.client.Get(ctx, shareKeyPrefix+certID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var view PublicCertificate
	if err := json.Unmarshal(raw, &view); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed cached share view",
			"certificate_id", certID.String(), "error", err.Error())
		return nil, false
	}
	return &view, true
}

func (c *RedisCache) SetShare(ctx context.Context, certID id.CertificateID, view *PublicCertificate) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, shareKeyPrefix+certID.String(), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "share view cache write failed",
			"certificate_id", certID.String(), "error", err.Error())
	}
}

func (c *RedisCache) GetPortfolio(ctx context.Context, ownerID id.OwnerID) (*Portfolio, bool) {
	raw, err := c.client.Get(ctx, portfolioKeyPrefix+ownerID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var portfolio Portfolio
	if err := json.Unmarshal(raw, &portfolio); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed cached portfolio",
			"owner_id", ownerID.String(), "error", err.Error())
		return nil, false
	}
	return &portfolio, true
}

func (c *RedisCache) SetPortfolio(ctx context.Context, ownerID id.OwnerID, portfolio *Portfolio) {
	raw, err := json.Marshal(portfolio)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, portfolioKeyPrefix+ownerID.String(), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "portfolio cache write failed",
			"owner_id", ownerID.String(), "error", err.Error())
	}
}

package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// URLSigner выпускает подписанные ссылки на объект хранилища
type URLSigner interface {
	SignURL(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

// URLCache переиспользует подписанные ссылки. Запись живёт cacheTTL,
// а ссылка подписывается на signTTL > cacheTTL, поэтому выданная из кэша
// ссылка действует ещё как минимум signTTL - cacheTTL.
type URLCache struct {
	signer  URLSigner
	signTTL time.Duration
	cache   *expirable.LRU[string, string]
}

// NewURLCache создаёт кэш. При cacheTTL <= 0 или cacheTTL >= signTTL
// кэш отключён и каждая выдача подписывает новую ссылку.
func NewURLCache(signer URLSigner, size int, signTTL, cacheTTL time.Duration) *URLCache {
	c := &URLCache{signer: signer, signTTL: signTTL}
	if size > 0 && cacheTTL > 0 && cacheTTL < signTTL {
		c.cache = expirable.NewLRU[string, string](size, nil, cacheTTL)
	}
	return c
}

func (c *URLCache) URL(ctx context.Context, locator string) (string, error) {
	if c.cache != nil {
		if url, ok := c.cache.Get(locator); ok {
			urlCacheHitsTotal.Inc()
			return url, nil
		}
		urlCacheMissesTotal.Inc()
	}

	url, err := c.signer.SignURL(ctx, locator, c.signTTL)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		c.cache.Add(locator, url)
	}
	return url, nil
}

package classifier

import (
	"context"
	"crypto/sha1"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/quantpulse/jumpsent/internal/models"
)

const (
	cacheKeyPrefix  = "sentiment:score:"
	cacheTTLSeconds = 86400
)

// scoreCache is the minimal surface Cached needs from a cache backend.
type scoreCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cached wraps a classifier with a score cache so repeated headlines skip
// inference. Cache failures degrade to a direct classification and never
// fail the item.
type Cached struct {
	cache scoreCache
	next  Classifier
	close func()
}

func NewCached(next Classifier, addr, password string, useTLS bool) (*Cached, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{addr},
		Password:         password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[CachedClassifier] failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[CachedClassifier] failed to ping Valkey: %w", err)
	}

	slog.Info("[CachedClassifier] Connected to Valkey",
		slog.String("address", addr))
	return &Cached{
		cache: valkeyCache{client: client},
		next:  next,
		close: client.Close,
	}, nil
}

func (c *Cached) Classify(ctx context.Context, text string) (models.Probabilities, error) {
	key := cacheKey(text)

	if raw, err := c.cache.Get(ctx, key); err == nil {
		var probs models.Probabilities
		if json.Unmarshal(raw, &probs) == nil && probs.Valid() {
			return probs, nil
		}
	}

	probs, err := c.next.Classify(ctx, text)
	if err != nil {
		return probs, err
	}

	if encoded, err := json.Marshal(probs); err == nil {
		if err := c.cache.Set(ctx, key, encoded); err != nil {
			slog.Warn("[CachedClassifier] Failed to store cached score",
				slog.String("error", err.Error()))
		}
	}
	return probs, nil
}

func (c *Cached) Close() {
	if c.close != nil {
		c.close()
	}
}

func cacheKey(text string) string {
	digest := sha1.Sum([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(digest[:])
}

// valkeyCache adapts a Valkey client to the scoreCache surface.
type valkeyCache struct {
	client valkey.Client
}

func (v valkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	return v.client.Do(ctx, v.client.B().Get().Key(key).Build()).AsBytes()
}

func (v valkeyCache) Set(ctx context.Context, key string, value []byte) error {
	commands := []valkey.Completed{
		v.client.B().Set().Key(key).Value(string(value)).Build(),
		v.client.B().Expire().Key(key).Seconds(cacheTTLSeconds).Build(),
	}
	for _, res := range v.client.DoMulti(ctx, commands...) {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

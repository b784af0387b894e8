package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultJWKSCacheTTL     = 5 * time.Minute
	defaultJWKSMaxStale     = 15 * time.Minute
	defaultJWKSFetchTimeout = 5 * time.Second
	jwksRetryAttempts       = 3
	jwksRetryBase           = 200 * time.Millisecond
	jwksRetryMax            = 2 * time.Second
)

// keySet is one immutable JWKS snapshot. The cache swaps whole snapshots
// under the lock; readers never see a half-updated key map.
type keySet struct {
	byKID     map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func (s keySet) fresh(now time.Time, ttl time.Duration) bool {
	return !s.fetchedAt.IsZero() && now.Before(s.fetchedAt.Add(ttl))
}

func (s keySet) usable(now time.Time, ttl, maxStale time.Duration) bool {
	return !s.fetchedAt.IsZero() && now.Before(s.fetchedAt.Add(ttl).Add(maxStale))
}

type jwksCacheConfig struct {
	TTL          time.Duration
	MaxStale     time.Duration
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// jwksCache serves RSA public keys by kid. A fresh snapshot is served from
// memory; an expired one keeps serving while a background refresh runs,
// up to the stale bound; an unknown kid forces a synchronous refresh so
// issuer key rotation is picked up on first sight.
type jwksCache struct {
	url          string
	httpClient   *http.Client
	log          *zap.Logger
	ttl          time.Duration
	maxStale     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	current keySet

	flightMu  sync.Mutex
	flightCh  chan struct{}
	flightErr error
}

type jwksDocument struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newJWKSCache(url string, httpClient *http.Client, cfg jwksCacheConfig) *jwksCache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultJWKSCacheTTL
	}
	if cfg.MaxStale <= 0 {
		cfg.MaxStale = defaultJWKSMaxStale
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultJWKSFetchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &jwksCache{
		url:          url,
		httpClient:   httpClient,
		log:          cfg.Logger,
		ttl:          cfg.TTL,
		maxStale:     cfg.MaxStale,
		fetchTimeout: cfg.FetchTimeout,
		now:          time.Now,
	}
}

func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, errors.New("kid is required")
	}
	now := c.now()
	snapshot := c.snapshot()
	if key, ok := snapshot.byKID[kid]; ok {
		if snapshot.fresh(now, c.ttl) {
			return key, nil
		}
		if snapshot.usable(now, c.ttl, c.maxStale) {
			c.refreshInBackground(snapshot)
			return key, nil
		}
	}
	if err := c.refresh(ctx, snapshot); err != nil {
		return nil, err
	}
	if key, ok := c.snapshot().byKID[kid]; ok {
		return key, nil
	}
	return nil, errors.New("jwks key not found")
}

func (c *jwksCache) snapshot() keySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *jwksCache) refreshInBackground(seen keySet) {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	go func() {
		defer cancel()
		if err := c.refresh(ctx, seen); err != nil {
			// The caller already got a stale key; the failure would
			// otherwise be invisible.
			c.log.Warn("jwks background refresh failed",
				zap.String("jwks_url", c.url),
				zap.Error(err))
		}
	}()
}

// refresh is single-flight: one goroutine fetches, everyone else waits on
// its outcome. seen is the snapshot the caller decided from; if a newer one
// already landed there is nothing left to do.
func (c *jwksCache) refresh(ctx context.Context, seen keySet) error {
	c.flightMu.Lock()
	if ch := c.flightCh; ch != nil {
		c.flightMu.Unlock()
		select {
		case <-ch:
			c.flightMu.Lock()
			defer c.flightMu.Unlock()
			return c.flightErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if cur := c.snapshot(); cur.fetchedAt.After(seen.fetchedAt) {
		c.flightMu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	c.flightCh = ch
	c.flightMu.Unlock()

	err := c.fetchAndSwap(ctx)

	c.flightMu.Lock()
	c.flightErr = err
	c.flightCh = nil
	close(ch)
	c.flightMu.Unlock()
	return err
}

func (c *jwksCache) fetchAndSwap(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	byKID, err := c.fetchWithRetry(ctx)
	if err != nil {
		return err
	}
	next := keySet{byKID: byKID, fetchedAt: c.now()}
	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
	return nil
}

func (c *jwksCache) fetchWithRetry(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	delay := jwksRetryBase
	var lastErr error
	for attempt := 0; attempt < jwksRetryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
			if delay > jwksRetryMax {
				delay = jwksRetryMax
			}
		}
		byKID, err := c.fetchOnce(ctx)
		if err == nil {
			return byKID, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *jwksCache) fetchOnce(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("jwks fetch failed")
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	byKID := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, key := range doc.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		pub, err := jwkToRSAPublicKey(key)
		if err != nil {
			c.log.Debug("skipping unusable jwk",
				zap.String("kid", key.Kid),
				zap.Error(err))
			continue
		}
		byKID[key.Kid] = pub
	}
	if len(byKID) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}
	return byKID, nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jwkToRSAPublicKey(key jwkKey) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes).Int64()
	if e <= 0 || e > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{
		N: n,
		E: int(e),
	}, nil
}

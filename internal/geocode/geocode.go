// Package geocode resolves coordinates to human readable place names.
//
// Lookups never fail from the caller's point of view: any resolver error
// yields the UnknownPlace placeholder.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/metrics"
)

// UnknownPlace is returned when a place cannot be resolved.
const UnknownPlace = "Unknown place"

// ErrThrottled is returned by a resolver that gave up waiting for its
// request rate allowance.
var ErrThrottled = errors.New("geocode: request rate exceeded")

// Resolver performs reverse geocoding of a single point.
type Resolver interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Cache stores resolved place names by coordinate key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Service resolves place names through a cache chain in front of a resolver.
// Positions that failed to resolve are remembered in a separate in-process
// cache and answer UnknownPlace until it expires.
type Service struct {
	resolver Resolver
	caches   []Cache
	failed   *LRU
	timeout  time.Duration
}

// NewService builds a service. A nil resolver always yields UnknownPlace.
func NewService(resolver Resolver, timeout time.Duration, caches ...Cache) *Service {
	return &Service{resolver: resolver, caches: caches, timeout: timeout}
}

// WithFailureCache remembers up to size failed positions for ttl.
func (s *Service) WithFailureCache(size int, ttl time.Duration) *Service {
	s.failed = NewLRU(size, ttl)
	return s
}

// New builds the service described by the geocoder configuration: a
// rate limited Nominatim resolver behind an in-process LRU and, when
// configured, redis.
func New(cfg config.Geocoder) *Service {
	if cfg.Disabled {
		log.Info().Msg("Reverse geocoding disabled")
		return NewService(nil, 0)
	}

	caches := []Cache{NewLRU(cfg.CacheSize, cfg.CacheTTL)}
	if cfg.Redis != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis})
		caches = append(caches, NewRedisCache(client, cfg.CacheTTL))
		log.Debug().Str("addr", cfg.Redis).Msg("Redis geocode cache enabled")
	}

	return NewService(NewNominatim(cfg), cfg.Timeout, caches...).
		WithFailureCache(cfg.CacheSize, cfg.FailureTTL)
}

// Key quantizes a coordinate to about one metre.
func Key(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

// Place returns the place name for the point or UnknownPlace.
func (s *Service) Place(ctx context.Context, lat, lon float64) string {
	if s == nil || s.resolver == nil {
		return UnknownPlace
	}

	key := Key(lat, lon)
	for i, c := range s.caches {
		if v, ok := c.Get(ctx, key); ok {
			// backfill faster caches
			for _, prev := range s.caches[:i] {
				prev.Set(ctx, key, v)
			}
			metrics.GeocodeLookupsTotal.WithLabelValues("hit").Inc()
			return v
		}
	}
	if s.failed != nil {
		if _, ok := s.failed.Get(ctx, key); ok {
			metrics.GeocodeLookupsTotal.WithLabelValues("negative").Inc()
			return UnknownPlace
		}
	}

	lookupCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	place, err := s.resolver.Reverse(lookupCtx, lat, lon)
	if err != nil || place == "" {
		metrics.GeocodeLookupsTotal.WithLabelValues("fail").Inc()
		// throttled lookups did not reach the resolver
		if s.failed != nil && !errors.Is(err, ErrThrottled) {
			s.failed.Set(ctx, key, UnknownPlace)
		}
		log.Warn().
			Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("Reverse geocoding failed")
		return UnknownPlace
	}

	metrics.GeocodeLookupsTotal.WithLabelValues("miss").Inc()
	for _, c := range s.caches {
		c.Set(ctx, key, place)
	}

	return place
}

// Package ratelimit throttles calls to an embedding service.
//
// Hosted embedding APIs enforce per-minute quotas. The limiter wraps any
// driven.EmbeddingService with a token bucket and, after a rate-limit
// response, holds every caller until the backoff window has passed.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBackoff is how long callers are held after a rate-limit error.
const DefaultBackoff = 10 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size (default: 1).
	BurstSize int
	// Backoff is the pause applied after a rate-limit error (default: 10s).
	Backoff time.Duration
}

// EmbeddingService decorates another service with rate limiting.
type EmbeddingService struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// New wraps next with a limiter built from cfg.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &EmbeddingService{
		next:    next,
		limiter: rate.NewLimiter(limit, cfg.BurstSize),
		backoff: cfg.Backoff,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by a previous rate-limit error.
func (s *EmbeddingService) Wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.limiter.Wait(ctx)
}

// record extends the backoff window when err is a rate-limit error.
func (s *EmbeddingService) record(err error) {
	if err == nil || !errors.Is(err, domain.ErrRateLimited) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = time.Now().Add(s.backoff)
}

// Embed waits for a token then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, domain.NewEmbeddingError(text, err)
	}
	vec, err := s.next.Embed(ctx, text)
	s.record(err)
	return vec, err
}

// EmbedBatch waits for a token then delegates.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.Wait(ctx); err != nil {
		first := ""
		if len(texts) > 0 {
			first = texts[0]
		}
		return nil, domain.NewEmbeddingError(first, err)
	}
	vecs, err := s.next.EmbedBatch(ctx, texts)
	s.record(err)
	return vecs, err
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string { return s.next.ModelName() }

// Ping is not rate limited.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error { return s.next.Close() }

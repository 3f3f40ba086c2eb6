// Package chat coordinates chat calls against a Dify-style backend. A
// Coordinator owns the client-side rate limiter, the response cache, the
// in-flight deduplication registry and the performance tracker, and exposes
// streaming and blocking entry points.
package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pario-ai/parley/pkg/apierr"
	"github.com/pario-ai/parley/pkg/cache"
	"github.com/pario-ai/parley/pkg/clock"
	"github.com/pario-ai/parley/pkg/config"
	"github.com/pario-ai/parley/pkg/dedup"
	"github.com/pario-ai/parley/pkg/identity"
	"github.com/pario-ai/parley/pkg/models"
	"github.com/pario-ai/parley/pkg/ratelimit"
	"github.com/pario-ai/parley/pkg/tracker"
)

// Coordinator issues chat calls. It is safe for concurrent use.
type Coordinator struct {
	cfg      *config.Config
	client   *http.Client
	limiter  *ratelimit.Limiter
	cache    *cache.Cache
	tracker  *tracker.Tracker
	flight   *dedup.Group[models.ChatResult]
	identity identity.Provider
	clock    clock.Clock
	log      *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Coordinator) { c.client = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithClock sets the clock used for latency measurement, stream batching and
// dedup keys. The limiter and cache built by New use it too.
func WithClock(cl clock.Clock) Option {
	return func(c *Coordinator) { c.clock = cl }
}

// WithIdentity sets the provider consulted when a request has no user.
func WithIdentity(p identity.Provider) Option {
	return func(c *Coordinator) { c.identity = p }
}

// WithLimiter replaces the limiter built from the rate_limit config.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Coordinator) { c.limiter = l }
}

// WithCache replaces the cache built from the cache config.
func WithCache(rc *cache.Cache) Option {
	return func(c *Coordinator) { c.cache = rc }
}

// WithTracker shares a performance tracker, typically one that is also
// exported through a metrics collector.
func WithTracker(t *tracker.Tracker) Option {
	return func(c *Coordinator) { c.tracker = t }
}

// New returns a Coordinator for cfg. The config is validated on every call
// rather than here, so an incomplete config yields CONFIG_ERROR results
// instead of a construction failure.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		client: &http.Client{},
		flight: dedup.New[models.ChatResult](),
		clock:  clock.Real(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, c.clock)
	}
	if c.cache == nil {
		c.cache = cache.New(cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.MaxSize, c.clock)
	}
	if c.tracker == nil {
		c.tracker = tracker.New()
	}
	if c.identity == nil {
		c.identity = &identity.Memory{}
	}
	return c
}

// Snapshot returns the current metrics together with the remaining rate
// budget and the number of cached entries.
func (c *Coordinator) Snapshot() models.Snapshot {
	return models.Snapshot{
		Metrics:           c.tracker.Metrics(),
		RemainingRequests: c.limiter.RemainingRequests(),
		CacheSize:         c.cache.Len(),
	}
}

// Reset clears the cache, the metrics and the in-flight registry. The rate
// limiter window is left intact.
func (c *Coordinator) Reset() {
	c.cache.Clear()
	c.tracker.Reset()
	c.flight.Reset()
	c.log.Info("performance state reset")
}

// admit runs the checks shared by both modes: config validation, the rate
// limit pre-check and request normalization.
func (c *Coordinator) admit(ctx context.Context, req models.ChatRequest, mode models.ResponseMode) (models.ChatPayload, error) {
	if err := c.cfg.Validate(); err != nil {
		return models.ChatPayload{}, err
	}
	if !c.limiter.CanMakeRequest() {
		c.tracker.RecordRateLimitHit()
		c.log.Warn("request rejected by rate limiter", "mode", mode)
		return models.ChatPayload{}, apierr.RateLimited()
	}
	return c.normalize(ctx, req, mode)
}

func (c *Coordinator) normalize(ctx context.Context, req models.ChatRequest, mode models.ResponseMode) (models.ChatPayload, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return models.ChatPayload{}, apierr.New(apierr.KindValidation, "Please enter a message.", nil)
	}

	user := req.User
	if user == "" {
		id, err := c.identity.UserID(ctx)
		if err != nil {
			return models.ChatPayload{}, apierr.New(apierr.KindConfig, "Could not resolve the user identity.", err)
		}
		user = id
	}

	inputs := req.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	return models.ChatPayload{
		Query:          query,
		ResponseMode:   mode,
		User:           user,
		Inputs:         inputs,
		ConversationID: req.ConversationID,
	}, nil
}

// reserve consumes a rate-limit slot for the caller that actually performs
// the network call.
func (c *Coordinator) reserve() error {
	if !c.limiter.TryRecord() {
		c.tracker.RecordRateLimitHit()
		return apierr.RateLimited()
	}
	return nil
}

func newResult(message, conversationID, messageID string, latencyMs int64) models.ChatResult {
	return models.ChatResult{
		FullMessage:    message,
		ConversationID: conversationID,
		MessageID:      messageID,
		LatencyMs:      latencyMs,
		TokenEstimate:  estimateTokens(message),
	}
}

// estimateTokens approximates the token count as one token per four
// characters, rounded up.
func estimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

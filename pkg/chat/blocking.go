package chat

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/pario-ai/parley/pkg/apierr"
	"github.com/pario-ai/parley/pkg/cache"
	"github.com/pario-ai/parley/pkg/models"
)

// SendBlocking issues a blocking chat call and returns the whole answer.
// Identical queries within a conversation are answered from the cache while
// fresh, and concurrent identical calls share one network request.
//
// Failures are returned as *apierr.Error, except caller cancellation, which
// returns an error wrapping ErrCanceled and context.Canceled. The configured
// timeout always applies in addition to any deadline on ctx.
func (c *Coordinator) SendBlocking(ctx context.Context, req models.ChatRequest) (models.ChatResult, error) {
	payload, err := c.admit(ctx, req, models.ModeBlocking)
	if err != nil {
		return models.ChatResult{}, err
	}

	cacheKey := cache.Key(payload.Query, payload.ConversationID)
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.tracker.RecordRequest(true, 0, true)
		c.log.Debug("cache hit", "mode", payload.ResponseMode)
		return cached, nil
	}

	key := "blocking:" + cacheKey

	result, err, shared := c.flight.Do(key, func() (models.ChatResult, error) {
		if err := c.reserve(); err != nil {
			return models.ChatResult{}, err
		}
		return c.block(ctx, payload, cacheKey)
	})
	if shared {
		c.log.Debug("blocking call deduplicated", "key", key)
	}
	return result, err
}

func (c *Coordinator) block(ctx context.Context, payload models.ChatPayload, cacheKey string) (models.ChatResult, error) {
	start := c.clock.Now()
	requestID := uuid.NewString()
	log := c.log.With("request_id", requestID, "mode", payload.ResponseMode)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.API.Timeout)
	defer cancel()

	log.Debug("sending chat request", "conversation_id", payload.ConversationID)
	resp, err := c.doUpstream(callCtx, payload, requestID, "application/json")
	if err != nil {
		return c.fail(log, start, classify(callCtx, err, apierr.KindNetwork, networkMessage))
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return c.fail(log, start, statusError(log, resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.fail(log, start, classify(callCtx, err, apierr.KindNetwork, networkMessage))
	}

	var out models.BlockingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return c.fail(log, start, apierr.New(apierr.KindParse, parseMessage, err))
	}

	latency := c.clock.Now().Sub(start).Milliseconds()
	result := newResult(out.Answer, string(out.ConversationID), out.ResolvedMessageID(), latency)
	c.cache.Set(cacheKey, result)
	c.tracker.RecordRequest(true, latency, false)
	log.Info("chat completed", "latency_ms", latency)
	return result, nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pario-ai/parley/pkg/apierr"
	"github.com/pario-ai/parley/pkg/cache"
	"github.com/pario-ai/parley/pkg/models"
	"github.com/pario-ai/parley/pkg/stream"
)

// Callbacks receive the progress of a streaming call. Any of them may be
// nil. They are invoked on the goroutine that called SendStreaming.
type Callbacks struct {
	OnStart    func()
	OnMessage  func(text string)
	OnProgress func(percent int)
	OnComplete func(result models.ChatResult)
	OnError    func(err *apierr.Error)
}

func (cb Callbacks) start() {
	if cb.OnStart != nil {
		cb.OnStart()
	}
}

func (cb Callbacks) message(text string) {
	if cb.OnMessage != nil {
		cb.OnMessage(text)
	}
}

func (cb Callbacks) progress(p int) {
	if cb.OnProgress != nil {
		cb.OnProgress(p)
	}
}

func (cb Callbacks) complete(r models.ChatResult) {
	if cb.OnComplete != nil {
		cb.OnComplete(r)
	}
}

func (cb Callbacks) fail(err error) {
	if cb.OnError == nil {
		return
	}
	if e, ok := apierr.As(err); ok {
		cb.OnError(e)
		return
	}
	cb.OnError(apierr.New(apierr.KindNetwork, networkMessage, err))
}

// SendStreaming issues a streaming chat call. Every outcome is reported
// through cb: exactly one of OnComplete or OnError fires unless the caller
// cancels ctx, in which case the call ends silently.
//
// A ctx without a cancellation signal gets the configured timeout. Otherwise
// ctx alone governs the call.
func (c *Coordinator) SendStreaming(ctx context.Context, req models.ChatRequest, cb Callbacks) {
	payload, err := c.admit(ctx, req, models.ModeStreaming)
	if err != nil {
		cb.fail(err)
		return
	}

	key := fmt.Sprintf("streaming:%s:%d", cache.Key(payload.Query, payload.ConversationID), c.clock.Now().UnixMilli())
	executed := false
	result, err, _ := c.flight.Do(key, func() (models.ChatResult, error) {
		executed = true
		if err := c.reserve(); err != nil {
			return models.ChatResult{}, err
		}
		cb.start()
		return c.stream(ctx, payload, cb)
	})

	if !executed {
		// Joined another caller's stream: replay its outcome.
		if err == nil {
			cb.start()
			cb.message(result.FullMessage)
			cb.progress(100)
		} else if errors.Is(err, ErrCanceled) && ctx.Err() == nil {
			err = apierr.New(apierr.KindNetwork, networkMessage, err)
		}
	}

	switch {
	case err == nil:
		cb.complete(result)
	case errors.Is(err, ErrCanceled):
	default:
		cb.fail(err)
	}
}

func (c *Coordinator) stream(ctx context.Context, payload models.ChatPayload, cb Callbacks) (models.ChatResult, error) {
	start := c.clock.Now()
	requestID := uuid.NewString()
	log := c.log.With("request_id", requestID, "mode", payload.ResponseMode)

	callCtx := ctx
	if ctx.Done() == nil {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.API.Timeout)
		defer cancel()
	}

	log.Debug("sending chat request", "conversation_id", payload.ConversationID)
	resp, err := c.doUpstream(callCtx, payload, requestID, "text/event-stream")
	if err != nil {
		return c.fail(log, start, classify(callCtx, err, apierr.KindNetwork, networkMessage))
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return c.fail(log, start, statusError(log, resp))
	}

	batcher := stream.NewBatcher(c.cfg.Stream.BatchInterval, c.clock)
	flush := func() {
		if text := batcher.Flush(); text != "" {
			cb.message(text)
		}
	}

	var (
		full           strings.Builder
		conversationID string
		messageID      string
		messageEvents  int
	)
	for ev, err := range stream.Events(resp.Body, log) {
		if err != nil {
			return c.fail(log, start, classify(callCtx, err, apierr.KindParse, parseMessage))
		}
		if ev.ConversationID != "" {
			conversationID = ev.ConversationID
		}
		if ev.MessageID != "" {
			messageID = ev.MessageID
		}

		switch ev.Kind {
		case stream.KindMessage:
			messageEvents++
			if ev.Text != "" {
				full.WriteString(ev.Text)
				batcher.Add(ev.Text)
			}
			if batcher.ShouldFlush() {
				flush()
			}
			cb.progress(min(100, messageEvents*10))
		case stream.KindError:
			flush()
			return c.fail(log, start, streamError(ev))
		case stream.KindTerminal:
			log.Debug("stream terminal event", "message_id", messageID)
		}
	}

	// The body may end without any event, or after a context error that the
	// reader reported as a clean EOF.
	if err := callCtx.Err(); err != nil {
		return c.fail(log, start, classify(callCtx, err, apierr.KindNetwork, networkMessage))
	}

	flush()
	latency := c.clock.Now().Sub(start).Milliseconds()
	c.tracker.RecordRequest(true, latency, false)
	log.Info("chat completed", "latency_ms", latency, "message_events", messageEvents)
	return newResult(full.String(), conversationID, messageID, latency), nil
}

// streamError converts an in-band `error` event to an API_ERROR.
func streamError(ev stream.Event) error {
	msg := ev.Message
	if msg == "" {
		msg = streamMessage
	}
	return &apierr.Error{Kind: apierr.KindAPI, Message: msg, Status: ev.Status}
}

// Stream issues a streaming chat call and delivers its progress as Updates
// on the returned channel, which is closed when the call ends. Cancelling
// ctx closes the channel without an error update. The caller must drain the
// channel when ctx has no cancellation signal.
func (c *Coordinator) Stream(ctx context.Context, req models.ChatRequest) <-chan models.Update {
	ch := make(chan models.Update, 16)
	go func() {
		defer close(ch)
		send := func(u models.Update) {
			select {
			case ch <- u:
			case <-ctx.Done():
			}
		}
		c.SendStreaming(ctx, req, Callbacks{
			OnStart: func() {
				send(models.Update{Kind: models.UpdateStart})
			},
			OnMessage: func(text string) {
				send(models.Update{Kind: models.UpdateMessage, Text: text})
			},
			OnProgress: func(p int) {
				send(models.Update{Kind: models.UpdateProgress, Progress: p})
			},
			OnComplete: func(r models.ChatResult) {
				send(models.Update{Kind: models.UpdateComplete, Result: &r})
			},
			OnError: func(err *apierr.Error) {
				send(models.Update{Kind: models.UpdateError, Err: err})
			},
		})
	}()
	return ch
}

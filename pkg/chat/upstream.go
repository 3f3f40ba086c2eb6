package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pario-ai/parley/pkg/apierr"
	"github.com/pario-ai/parley/pkg/models"
)

const (
	maxResponseBytes = 10 << 20
	maxErrorBodyLog  = 512

	networkMessage = "Could not reach the assistant. Please check your connection and try again."
	timeoutMessage = "The assistant took too long to respond. Please try again."
	parseMessage   = "The assistant sent a response that could not be read."
	streamMessage  = "The assistant reported an error while answering."
)

// ErrCanceled marks a call that stopped because its caller cancelled the
// context. It wraps context.Canceled.
var ErrCanceled = errors.New("chat cancelled")

// doUpstream posts payload to the chat endpoint. The caller owns resp.Body
// and must close it.
func (c *Coordinator) doUpstream(ctx context.Context, payload models.ChatPayload, requestID, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ChatURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.API.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", requestID)

	return c.client.Do(req)
}

// classify maps a transport or read failure to the error taxonomy. The call
// context decides between cancellation and timeout, since body reads do not
// always surface the context error itself.
func classify(callCtx context.Context, err error, kind apierr.Kind, message string) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(callCtx.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, context.Canceled)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return apierr.New(apierr.KindTimeout, timeoutMessage, err)
	}
	return apierr.New(kind, message, err)
}

// statusError builds the API_ERROR for a non-success response and logs a
// prefix of the body.
func statusError(log *slog.Logger, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLog))
	log.Warn("backend returned error status", "status", resp.StatusCode, "body", string(snippet))
	return apierr.Status(resp.StatusCode)
}

// fail records a failed request and passes err through. Cancellations are
// neither recorded nor logged as failures.
func (c *Coordinator) fail(log *slog.Logger, start time.Time, err error) (models.ChatResult, error) {
	if errors.Is(err, ErrCanceled) {
		log.Debug("chat cancelled")
		return models.ChatResult{}, err
	}
	latency := c.clock.Now().Sub(start).Milliseconds()
	c.tracker.RecordRequest(false, latency, false)
	log.Warn("chat failed", "kind", apierr.KindOf(err), "latency_ms", latency, "err", err)
	return models.ChatResult{}, err
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

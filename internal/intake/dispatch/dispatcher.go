// Package dispatch submits invocation payloads to the downstream
// processing function and tracks each payload to a terminal state.
//
// Per payload the dispatcher runs an explicit bounded state machine:
//
//	Pending -> {Accepted | Rejected | Failed}
//
// Failed is terminal only once the attempt budget is exhausted;
// otherwise a transient failure loops the payload back to Pending after
// an exponential backoff delay. A per-attempt timeout takes the same
// path as any other transient failure.
package dispatch

import (
	"context"
	"time"

	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/common/metrics"
	"reprocess-intake/internal/models"
)

// Invoker performs one invocation attempt. Implementations classify
// failures through the errors package so the dispatcher can tell
// transient from terminal.
type Invoker interface {
	Invoke(ctx context.Context, payload models.InvocationPayload) error
}

type Dispatcher struct {
	invoker        Invoker
	maxAttempts    int
	initialBackoff time.Duration
	attemptTimeout time.Duration
	logger         logger.Logger

	// sleep is swappable so tests drive the retry loop without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(invoker Invoker, maxAttempts int, initialBackoff, attemptTimeout time.Duration, log logger.Logger) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		invoker:        invoker,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		attemptTimeout: attemptTimeout,
		logger:         log.WithFields(map[string]interface{}{"component": "dispatch"}),
		sleep:          sleepCtx,
	}
}

// Dispatch drives one payload to a terminal state. It always returns a
// result; errors surface inside the result, never as a lost payload.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.InvocationPayload) models.DispatchResult {
	start := time.Now()
	result := models.DispatchResult{Payload: payload}
	backoff := d.initialBackoff

	for {
		result.Attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
		err := d.invoker.Invoke(attemptCtx, payload)
		cancel()

		if err == nil {
			result.Status = models.DispatchAccepted
			break
		}

		if !apperrors.IsRetryable(err) {
			result.Status = models.DispatchRejected
			result.Error = err.Error()
			break
		}

		if result.Attempts >= d.maxAttempts {
			result.Status = models.DispatchFailed
			result.Error = err.Error()
			break
		}

		metrics.DispatchRetries.Inc()
		d.logger.Warn("transient dispatch failure, retrying", map[string]interface{}{
			"sourceKey": payload.SourceKey,
			"attempt":   result.Attempts,
			"backoff":   backoff.String(),
			"error":     err.Error(),
		})

		if sleepErr := d.sleep(ctx, backoff); sleepErr != nil {
			// Caller cancelled while waiting; report the last failure.
			result.Status = models.DispatchFailed
			result.Error = err.Error()
			break
		}
		backoff *= 2
	}

	metrics.PayloadsDispatched.WithLabelValues(string(result.Status)).Inc()
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	fields := map[string]interface{}{
		"sourceKey": payload.SourceKey,
		"status":    string(result.Status),
		"attempts":  result.Attempts,
	}
	if result.Status == models.DispatchAccepted {
		d.logger.Info("payload dispatched", fields)
	} else {
		d.logger.Error("payload not accepted", fields)
	}
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package afs

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/cuemby/nebulastore/pkg/log"
	"github.com/cuemby/nebulastore/pkg/metrics"
	"github.com/cuemby/nebulastore/pkg/nerrs"
)

// withRetry runs op, retrying on failure with exponential backoff up to
// maxAttempts, per spec §4.3: "Retries ... are the connector's
// responsibility where the backend SDK does not provide them; writes
// must be idempotent (put-overwrite) to tolerate retry." ErrKeyNotFound
// is never retried — it is a soft outcome, not a failure.
func withRetry(ctx context.Context, backendName string, maxAttempts int, op func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	bounded := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxAttempts-1)), ctx)

	var lastErr error
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrKeyNotFound) {
			return backoff.Permanent(lastErr)
		}
		if attempt < maxAttempts {
			metrics.ConnectorRetriesTotal.WithLabelValues(backendName).Inc()
			log.WithConnector(backendName).Warn().
				Err(lastErr).Int("attempt", attempt).Msg("backend op failed, retrying")
		}
		return lastErr
	}, bounded)

	if err == nil {
		return nil
	}
	if errors.Is(lastErr, ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	if ctx.Err() != nil {
		return nerrs.Cancelled.Wrap(ctx.Err())
	}
	metrics.ConnectorErrorsTotal.WithLabelValues(backendName).Inc()
	return nerrs.WrapBackendUnavailable(backendName, lastErr)
}

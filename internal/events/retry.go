package events

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// NewReconnectBackOff is the policy the event handler reconnects with. It has
// no elapsed-time limit, so a stream that drops hours after start is still
// reopened.
func NewReconnectBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// RunWithRetry keeps source running until ctx is cancelled. A stream that
// drops with an error is reopened after the next backoff interval; once b
// gives up the last error is returned. A stream that delivered at least one
// event before dropping starts the backoff over.
func RunWithRetry(ctx context.Context, source UploadEventSource, handler func(context.Context, UploadEvent) error, b backoff.BackOff, logger hclog.Logger) error {
	op := func() error {
		delivered := false
		err := source.Run(ctx, func(ctx context.Context, event UploadEvent) error {
			delivered = true
			return handler(ctx, event)
		})
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err != nil && delivered {
			b.Reset()
		}
		return err
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("upload event stream dropped, reconnecting", "error", err, "retry_in", next)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

package reactive

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v3"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// SubscriptionClient is the RPC client injected into a subscription cell. It
// opens a server-push subscription and relays values until the returned
// cancel function is called or the subscription itself ends.
type SubscriptionClient interface {
	Subscribe(ctx context.Context, onValue func(any), onClosed func(error)) (cancel func(), err error)
}

// NewSubscription returns a producer cell that, on initialise, opens a
// subscription via client and relays every pushed value through Changed,
// reconnecting with exponential backoff if the subscription drops, and
// closes the subscription on finalise.
func NewSubscription(client SubscriptionClient, logger *slog.Logger, opts ...cellcore.Option) *cellcore.Cell {
	if logger == nil {
		logger = slog.Default()
	}

	var cell *cellcore.Cell
	ctx, cancelAll := context.WithCancel(context.Background())

	onUse := func() {
		go runSubscription(ctx, client, cell, logger)
	}
	onDrop := func() {
		cancelAll()
		ctx, cancelAll = context.WithCancel(context.Background())
	}

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(onUse, onDrop))
	cell = cellcore.New(allOpts...)
	return cell
}

func runSubscription(ctx context.Context, client SubscriptionClient, cell *cellcore.Cell, logger *slog.Logger) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry indefinitely while in use

	for {
		if ctx.Err() != nil {
			return
		}

		closedCh := make(chan error, 1)

		cancel, err := client.Subscribe(ctx,
			func(v any) { cell.Changed(v) },
			func(closeErr error) {
				select {
				case closedCh <- closeErr:
				default:
				}
			},
		)
		if err != nil {
			logger.Warn("subscription connect failed, retrying", slog.Any("err", err))
			wait := policy.NextBackOff()
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}
		policy.Reset()

		select {
		case <-ctx.Done():
			cancel()
			return
		case closeErr := <-closedCh:
			cancel()
			if closeErr != nil {
				logger.Warn("subscription closed, reconnecting", slog.Any("err", closeErr))
			}
			cell.Reset()
			wait := policy.NextBackOff()
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

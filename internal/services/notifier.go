package services

import (
	"context"

	applog "fintrack/internal/log"
)

// Notifier is told after every successful write to a user's records.
type Notifier interface {
	TransactionsChanged(ctx context.Context, uid string)
}

// LocalNotifier refreshes this process's subscribers directly.
type LocalNotifier interface {
	Notify(ctx context.Context, uid string) error
}

// Publisher fans a change out to every instance, this one included.
type Publisher interface {
	PublishTransactionsChanged(ctx context.Context, uid string) error
}

// FailureRecorder counts notifications that could not be delivered.
type FailureRecorder interface {
	NotifyFailed(transport string)
}

type changeNotifier struct {
	local      LocalNotifier
	publisher  Publisher
	failures   FailureRecorder
	invalidate []func(uid string)
	logger     *applog.Logger
}

// NewNotifier publishes through the broker when publisher is non-nil and
// falls back to the local hub when publishing fails. The invalidate hooks
// run synchronously before either, so this instance never serves a cached
// view older than the write the caller just made.
func NewNotifier(local LocalNotifier, publisher Publisher, failures FailureRecorder, logger *applog.Logger, invalidate ...func(uid string)) Notifier {
	return &changeNotifier{
		local:      local,
		publisher:  publisher,
		failures:   failures,
		invalidate: invalidate,
		logger:     logger.WithComponent(applog.ComponentFeed),
	}
}

func (n *changeNotifier) TransactionsChanged(ctx context.Context, uid string) {
	for _, fn := range n.invalidate {
		fn(uid)
	}
	if n.publisher != nil {
		err := n.publisher.PublishTransactionsChanged(ctx, uid)
		if err == nil {
			return
		}
		n.fail(ctx, "amqp", uid, err)
	}
	if n.local == nil {
		return
	}
	if err := n.local.Notify(ctx, uid); err != nil {
		n.fail(ctx, "local", uid, err)
	}
}

// A lost notification only delays live views, so writes never fail on it.
func (n *changeNotifier) fail(ctx context.Context, transport, uid string, err error) {
	if n.failures != nil {
		n.failures.NotifyFailed(transport)
	}
	n.logger.WarnContext(ctx, "Change notification failed",
		applog.FieldUserID, uid,
		applog.FieldError, err.Error(),
		"transport", transport,
	)
}

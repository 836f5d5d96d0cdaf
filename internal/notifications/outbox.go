package notifications

import (
	"context"
	"log/slog"
	"time"

	"haven/internal/middleware"
	"haven/internal/observability"
	"haven/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const claimBatchSize = 25

// deliveryTimeout bounds a single Mailer.Send call so one hung relay
// cannot stall the whole outbox pass.
const deliveryTimeout = 30 * time.Second

// Dispatcher drains the notification outbox. It claims due rows, hands them
// to the Mailer, and records the result. Delivery is at-least-once; a
// failure requeues the row with backoff until maxAttempts is reached.
type Dispatcher struct {
	repo        repository.OutboxRepository
	mailer      Mailer
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(repo repository.OutboxRepository, mailer Mailer, interval time.Duration, maxAttempts int) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		mailer:      mailer,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      middleware.Logger,
	}
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("outbox dispatcher started",
		slog.Duration("interval", d.interval),
		slog.Int("max_attempts", d.maxAttempts),
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.ProcessOnce(ctx); err != nil {
				d.logger.ErrorContext(ctx, "outbox pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ProcessOnce claims and delivers one batch of due notifications.
func (d *Dispatcher) ProcessOnce(ctx context.Context) error {
	now := time.Now().UTC()

	claimed, err := d.repo.ClaimDue(ctx, claimBatchSize, now)
	if err != nil {
		return err
	}

	for _, n := range claimed {
		span, sctx := observability.NewSpan(ctx, "outbox.deliver")
		span.AddAttributes(
			attribute.String("messaging.system", "smtp"),
			attribute.String("messaging.destination", n.Recipient),
		)

		sendCtx, cancelSend := context.WithTimeout(sctx, deliveryTimeout)
		err := d.mailer.Send(sendCtx, n.Recipient, n.Subject, n.Body)
		cancelSend()
		if err == nil {
			if markErr := d.repo.MarkSent(sctx, n.ID, time.Now().UTC()); markErr != nil {
				d.logger.ErrorContext(sctx, "failed to mark notification sent",
					slog.Any("notification_id", n.ID),
					slog.String("error", markErr.Error()),
				)
			}
			middleware.NotificationsSent.WithLabelValues("sent").Inc()
			span.End()
			continue
		}

		span.SetError(err)
		span.End()

		attempts := n.Attempts + 1
		final := attempts >= d.maxAttempts
		next := now.Add(backoff(attempts))

		if markErr := d.repo.MarkFailed(ctx, n.ID, attempts, err.Error(), next, final); markErr != nil {
			d.logger.ErrorContext(ctx, "failed to mark notification failed",
				slog.Any("notification_id", n.ID),
				slog.String("error", markErr.Error()),
			)
		}

		if final {
			middleware.NotificationsSent.WithLabelValues("abandoned").Inc()
			d.logger.ErrorContext(ctx, "notification abandoned after max attempts",
				slog.Any("notification_id", n.ID),
				slog.String("recipient", n.Recipient),
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()),
			)
		} else {
			middleware.NotificationsSent.WithLabelValues("retried").Inc()
		}
	}

	if count, err := d.repo.PendingCount(ctx); err == nil {
		observability.OutboxQueueDepth.Set(float64(count))
	}

	return nil
}

// backoff doubles per attempt: 1m, 2m, 4m, capped at an hour.
func backoff(attempts int) time.Duration {
	d := time.Minute << (attempts - 1)
	if d > time.Hour || d <= 0 {
		return time.Hour
	}
	return d
}

package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Notifier доставляет уведомления после фиксации транзакции.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
	PublishTournamentEvent(ctx context.Context, tournamentID, eventType string, payload interface{}) error
}

const maxConcurrentNotifications = 8

// notifyAll рассылает уведомления параллельно и ждет завершения.
// Ошибки только логируются: деньги уже зафиксированы.
func notifyAll(ctx context.Context, notifier Notifier, logger *slog.Logger, batch []models.Notification) {
	if notifier == nil || len(batch) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(maxConcurrentNotifications)
	for _, n := range batch {
		g.Go(func() error {
			if err := notifier.Notify(ctx, n); err != nil {
				telemetry.Metrics().NotificationFailures.Add(ctx, 1,
					metric.WithAttributes(attribute.String("notification.kind", string(n.Kind))))
				logger.WarnContext(ctx, "failed to deliver notification",
					slog.String("user_id", n.UserID), slog.String("title", n.Title), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func publishTournamentEvent(ctx context.Context, notifier Notifier, logger *slog.Logger, tournamentID, eventType string, payload interface{}) {
	if notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := notifier.PublishTournamentEvent(ctx, tournamentID, eventType, payload); err != nil {
		telemetry.Metrics().NotificationFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("notification.kind", eventType)))
		logger.WarnContext(ctx, "failed to publish tournament event",
			slog.String("tournament_id", tournamentID), slog.String("event", eventType), slog.Any("error", err))
	}
}

func recordSettlement(ctx context.Context, kind models.TransactionKind, count int) {
	if count <= 0 {
		return
	}
	telemetry.Metrics().SettlementsApplied.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("settlement.kind", string(kind))))
}

// Package notifications сохраняет уведомления пользователей и доставляет их
// подключенным клиентам через realtime.Hub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/realtime"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/google/uuid"
)

type Emitter struct {
	repo   repositories.NotificationRepository
	hub    *realtime.Hub
	logger *slog.Logger
	now    func() time.Time
}

func NewEmitter(repo repositories.NotificationRepository, hub *realtime.Hub, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{repo: repo, hub: hub, logger: logger, now: time.Now}
}

// Notify сохраняет уведомление и отправляет его в личную комнату пользователя.
// Ошибка сохранения возвращается; отсутствие подключенных клиентов ошибкой не считается.
func (e *Emitter) Notify(ctx context.Context, n models.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification without recipient: %q", n.Title)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = e.now().UTC()
	}

	if err := e.repo.Create(ctx, &n); err != nil {
		return fmt.Errorf("failed to persist notification for %s: %w", n.UserID, err)
	}

	if e.hub == nil {
		return nil
	}
	delivered, err := e.hub.BroadcastToRoom(realtime.UserRoom(n.UserID), realtime.Message{
		Type:    realtime.TypeNotification,
		Payload: n,
	})
	if err != nil {
		return err
	}
	e.logger.Debug("notification emitted",
		slog.String("user_id", n.UserID), slog.String("kind", string(n.Kind)), slog.Int("live_clients", delivered))
	return nil
}

// PublishTournamentEvent рассылает событие турнира подписчикам его комнаты.
func (e *Emitter) PublishTournamentEvent(_ context.Context, tournamentID, eventType string, payload interface{}) error {
	if e.hub == nil {
		return nil
	}
	_, err := e.hub.BroadcastToRoom(realtime.TournamentRoom(tournamentID), realtime.Message{
		Type:    eventType,
		Payload: payload,
	})
	return err
}

func (e *Emitter) List(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	return e.repo.ListByUser(ctx, userID, limit, offset)
}

func (e *Emitter) MarkRead(ctx context.Context, userID, id string) error {
	return e.repo.MarkRead(ctx, userID, id)
}

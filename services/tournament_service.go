package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/realtime"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const systemActor = "system"

// TournamentService - управление турнирами администратором и автоматическая смена статусов.
type TournamentService struct {
	store          repositories.LedgerStore
	notifier       Notifier
	logger         *slog.Logger
	defaultFeeRate decimal.Decimal
	now            func() time.Time
}

func NewTournamentService(store repositories.LedgerStore, notifier Notifier, defaultFeeRate decimal.Decimal, logger *slog.Logger) *TournamentService {
	return &TournamentService{
		store:          store,
		notifier:       notifier,
		logger:         logger,
		defaultFeeRate: defaultFeeRate,
		now:            time.Now,
	}
}

// CreateTournamentInput - параметры нового турнира. Пустые PlatformFeeRate и PayoutScheme
// заменяются значениями по умолчанию.
type CreateTournamentInput struct {
	Name            string
	Game            string
	TeamSize        models.TeamSize
	EntryFee        decimal.Decimal
	PrizePool       decimal.Decimal
	PlatformFeeRate *decimal.Decimal
	PayoutScheme    models.PayoutScheme
	MaxParticipants int
	StartTime       time.Time
}

func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput, adminID string) (*models.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if in.TeamSize.PlayerCount() == 0 {
		return nil, ErrTournamentInvalidTeamSize
	}
	if in.MaxParticipants <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if !validMoney(in.EntryFee) || !validMoney(in.PrizePool) {
		return nil, ErrTournamentInvalidFee
	}
	if in.StartTime.IsZero() {
		return nil, ErrTournamentStartRequired
	}

	feeRate := s.defaultFeeRate
	if in.PlatformFeeRate != nil {
		feeRate = *in.PlatformFeeRate
	}
	scheme := in.PayoutScheme
	if scheme == "" {
		scheme = models.DefaultPayoutScheme(in.TeamSize)
	}

	now := s.now().UTC()
	t := &models.Tournament{
		ID:              uuid.NewString(),
		Name:            name,
		Game:            strings.TrimSpace(in.Game),
		TeamSize:        in.TeamSize,
		Status:          models.StatusUpcoming,
		EntryFee:        in.EntryFee,
		PrizePool:       in.PrizePool,
		PlatformFeeRate: feeRate,
		PayoutScheme:    scheme,
		MaxParticipants: in.MaxParticipants,
		StartTime:       in.StartTime.UTC(),
		CreatedBy:       adminID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// Проверяем схему выплат и комиссию до сохранения.
	if _, err := settlement.TournamentSplit(t); err != nil {
		return nil, err
	}

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		return tx.CreateTournament(ctx, t.Clone())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", t.ID), slog.String("name", t.Name),
		slog.String("team_size", string(t.TeamSize)), slog.String("payout_scheme", string(t.PayoutScheme)))
	return t, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

// TournamentDetails - турнир вместе с расчетом призового фонда.
type TournamentDetails struct {
	*models.Tournament
	Split settlement.PrizeSplit `json:"prize_split"`
}

func (s *TournamentService) GetTournamentDetails(ctx context.Context, id string) (*TournamentDetails, error) {
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	split, err := settlement.TournamentSplit(t)
	if err != nil {
		return nil, err
	}
	return &TournamentDetails{Tournament: t, Split: split}, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.store.ListTournaments(ctx, filter)
}

// UpdateStatus меняет статус турнира. При отмене взносы возвращаются лидерам
// в той же транзакции.
func (s *TournamentService) UpdateStatus(ctx context.Context, id string, next models.TournamentStatus, actorID string) (*models.Tournament, error) {
	if !next.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	now := s.now().UTC()
	var (
		updated *models.Tournament
		refunds []settlement.Refund
	)

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		if err := settlement.TransitionStatus(t, next, now); err != nil {
			return err
		}

		var planned []settlement.Refund
		if next == models.StatusCancelled {
			planned = settlement.PlanRefunds(t)
			for _, r := range planned {
				wallet, err := tx.GetWallet(ctx, r.UserID)
				if err != nil {
					return err
				}
				if _, err := settlement.Credit(wallet, settlement.Entry{
					Amount:      r.Amount,
					Kind:        models.KindTournamentRefund,
					ReferenceID: r.ReferenceID,
					Description: "Refund: " + t.Name + " cancelled",
				}, now); err != nil {
					return err
				}
				if err := tx.SaveWallet(ctx, wallet); err != nil {
					return err
				}
			}
		}

		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}
		updated, refunds = t.Clone(), planned
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordSettlement(ctx, models.KindTournamentRefund, len(refunds))
	s.logger.InfoContext(ctx, "tournament status changed",
		slog.String("tournament_id", id), slog.String("status", string(updated.Status)),
		slog.String("actor", actorID), slog.Int("refunds", len(refunds)))

	publishTournamentEvent(ctx, s.notifier, s.logger, id, realtime.TypeTournamentStatus, tournamentStatusEvent{
		TournamentID: id,
		Status:       updated.Status,
	})
	notifyAll(ctx, s.notifier, s.logger, statusNotifications(updated, refunds))
	return updated, nil
}

func statusNotifications(t *models.Tournament, refunds []settlement.Refund) []models.Notification {
	var batch []models.Notification
	switch t.Status {
	case models.StatusActive:
		for _, team := range t.Teams {
			for _, p := range team.Players {
				batch = append(batch, models.Notification{
					UserID:  p.UserID,
					Kind:    models.NotificationTournament,
					Title:   "Tournament started",
					Message: t.Name + " is now live",
				})
			}
		}
	case models.StatusCancelled:
		refunded := make(map[string]decimal.Decimal, len(refunds))
		for _, r := range refunds {
			refunded[r.UserID] = r.Amount
		}
		for _, team := range t.Teams {
			for _, p := range team.Players {
				msg := t.Name + " has been cancelled"
				if amount, ok := refunded[p.UserID]; ok {
					msg += fmt.Sprintf(". Entry fee of %s was refunded to your wallet", formatAmount(amount))
				}
				batch = append(batch, models.Notification{
					UserID:  p.UserID,
					Kind:    models.NotificationTournament,
					Title:   "Tournament cancelled",
					Message: msg,
				})
			}
		}
	}
	return batch
}

// ActivateDue переводит в active все турниры, время начала которых наступило.
// Возвращает число активированных турниров.
func (s *TournamentService) ActivateDue(ctx context.Context) (int, error) {
	ids, err := s.store.ListDueTournaments(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list due tournaments: %w", err)
	}

	activated := 0
	for _, id := range ids {
		if _, err := s.UpdateStatus(ctx, id, models.StatusActive, systemActor); err != nil {
			// Турнир мог быть отменен или запущен вручную между выборкой и обновлением.
			if errors.Is(err, settlement.ErrInvalidStatusTransition) {
				continue
			}
			s.logger.ErrorContext(ctx, "failed to activate tournament", slog.String("tournament_id", id), slog.Any("error", err))
			continue
		}
		activated++
	}
	return activated, nil
}

func validMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Truncate(2))
}

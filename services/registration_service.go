package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/shopspring/decimal"
)

// RegistrationService регистрирует команды. Взнос списывается с кошелька лидера
// в той же транзакции, что и добавление команды.
type RegistrationService struct {
	store    repositories.LedgerStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewRegistrationService(store repositories.LedgerStore, notifier Notifier, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{store: store, notifier: notifier, logger: logger, now: time.Now}
}

func (s *RegistrationService) RegisterTeam(ctx context.Context, tournamentID string, req settlement.RegistrationRequest) (*models.Team, error) {
	now := s.now().UTC()
	var (
		team           *models.Team
		tournamentName string
		entryFee       decimal.Decimal
	)

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		planned, err := settlement.PlanRegistration(t, req, now)
		if err != nil {
			return err
		}

		if t.EntryFee.IsPositive() {
			wallet, err := tx.GetWallet(ctx, req.LeaderID)
			if err != nil {
				return err
			}
			if _, err := settlement.Debit(wallet, settlement.Entry{
				Amount:      t.EntryFee,
				Kind:        models.KindTournamentEntry,
				ReferenceID: settlement.TournamentReference(t.ID, planned.ID),
				Description: "Entry fee: " + t.Name,
			}, now); err != nil {
				return err
			}
			if err := tx.SaveWallet(ctx, wallet); err != nil {
				return err
			}
		}

		settlement.ApplyRegistration(t, planned, now)
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}
		team = planned
		tournamentName = t.Name
		entryFee = t.EntryFee
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entryFee.IsPositive() {
		recordSettlement(ctx, models.KindTournamentEntry, 1)
	}
	s.logger.InfoContext(ctx, "team registered",
		slog.String("tournament_id", tournamentID), slog.String("team_id", team.ID),
		slog.String("leader_id", team.LeaderID), slog.String("entry_fee", entryFee.StringFixed(2)))

	batch := make([]models.Notification, 0, len(team.Players))
	for _, p := range team.Players {
		msg := fmt.Sprintf("%s is registered for %s", team.Name, tournamentName)
		if p.IsLeader && entryFee.IsPositive() {
			msg += fmt.Sprintf(". Entry fee of %s was deducted from your wallet", formatAmount(entryFee))
		}
		batch = append(batch, models.Notification{
			UserID:  p.UserID,
			Kind:    models.NotificationTournament,
			Title:   "Tournament registration",
			Message: msg,
		})
	}
	notifyAll(ctx, s.notifier, s.logger, batch)
	return team, nil
}

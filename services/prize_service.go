package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/realtime"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/Dosada05/tournament-wallet/storage"
	"github.com/shopspring/decimal"
)

// PrizeService присваивает призовые места и выплачивает призы игрокам.
type PrizeService struct {
	store    repositories.LedgerStore
	notifier Notifier
	uploader storage.FileUploader
	logger   *slog.Logger
	now      func() time.Time
}

// NewPrizeService: uploader может быть nil, тогда отчеты о расчетах не архивируются.
func NewPrizeService(store repositories.LedgerStore, notifier Notifier, uploader storage.FileUploader, logger *slog.Logger) *PrizeService {
	return &PrizeService{store: store, notifier: notifier, uploader: uploader, logger: logger, now: time.Now}
}

// WinnerResult - итог присвоения места.
type WinnerResult struct {
	TournamentID string                  `json:"tournament_id"`
	TeamID       string                  `json:"team_id"`
	TeamName     string                  `json:"team_name"`
	Position     models.Position         `json:"position"`
	Prize        decimal.Decimal         `json:"prize"`
	PerPlayer    decimal.Decimal         `json:"per_player"`
	Recipients   []string                `json:"recipients"`
	Status       models.TournamentStatus `json:"status"`
	Completed    bool                    `json:"tournament_completed"`
	Standings    []models.Standing       `json:"standings"`
	ReportURL    string                  `json:"report_url,omitempty"`
}

// DeclareWinner закрепляет место за командой и зачисляет каждому игроку его долю
// одной транзакцией. Для занятого места возвращает settlement.ErrPositionTaken.
func (s *PrizeService) DeclareWinner(ctx context.Context, tournamentID, teamID string, position models.Position, adminID string) (*WinnerResult, error) {
	now := s.now().UTC()
	var (
		plan      *settlement.AwardPlan
		completed bool
		snapshot  *models.Tournament
	)

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		p, err := settlement.PlanAward(t, teamID, position)
		if err != nil {
			return err
		}

		if p.PerPlayer.IsPositive() {
			for _, userID := range p.Recipients {
				wallet, err := tx.GetWallet(ctx, userID)
				if err != nil {
					return err
				}
				if _, err := settlement.Credit(wallet, settlement.Entry{
					Amount:      p.PerPlayer,
					Kind:        models.KindTournamentPrize,
					ReferenceID: p.ReferenceID,
					Description: fmt.Sprintf("Prize for %s place: %s", p.Position, t.Name),
				}, now); err != nil {
					return err
				}
				if err := tx.SaveWallet(ctx, wallet); err != nil {
					return err
				}
			}
		}

		done := settlement.ApplyAward(t, p, adminID, now)
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}
		plan, completed, snapshot = p, done, t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan.PerPlayer.IsPositive() {
		recordSettlement(ctx, models.KindTournamentPrize, len(plan.Recipients))
	}
	s.logger.InfoContext(ctx, "winner declared",
		slog.String("tournament_id", tournamentID), slog.String("team_id", plan.TeamID),
		slog.String("position", string(plan.Position)), slog.String("prize", plan.Prize.StringFixed(2)),
		slog.String("per_player", plan.PerPlayer.StringFixed(2)), slog.Bool("completed", completed))

	result := &WinnerResult{
		TournamentID: tournamentID,
		TeamID:       plan.TeamID,
		TeamName:     plan.TeamName,
		Position:     plan.Position,
		Prize:        plan.Prize,
		PerPlayer:    plan.PerPlayer,
		Recipients:   plan.Recipients,
		Completed:    completed,
		Standings:    snapshot.Standings,
		Status:       snapshot.Status,
	}

	batch := make([]models.Notification, 0, len(plan.Recipients))
	for _, userID := range plan.Recipients {
		batch = append(batch, models.Notification{
			UserID: userID,
			Kind:   models.NotificationPrize,
			Title:  "Congratulations!",
			Message: fmt.Sprintf("%s finished %s in %s. %s has been credited to your wallet",
				plan.TeamName, plan.Position, snapshot.Name, formatAmount(plan.PerPlayer)),
		})
	}
	notifyAll(ctx, s.notifier, s.logger, batch)
	publishTournamentEvent(ctx, s.notifier, s.logger, tournamentID, realtime.TypeStandingsUpdated, snapshot.Standings)

	if completed {
		publishTournamentEvent(ctx, s.notifier, s.logger, tournamentID, realtime.TypeTournamentStatus, tournamentStatusEvent{
			TournamentID: tournamentID,
			Status:       snapshot.Status,
		})
		result.ReportURL = s.archiveReport(ctx, snapshot)
	}
	return result, nil
}

// SettlementReport - итоговый отчет о выплатах завершенного турнира.
type SettlementReport struct {
	TournamentID string                `json:"tournament_id"`
	Name         string                `json:"name"`
	Game         string                `json:"game"`
	Teams        int                   `json:"teams"`
	EntryFee     decimal.Decimal       `json:"entry_fee"`
	Split        settlement.PrizeSplit `json:"split"`
	Paid         decimal.Decimal       `json:"paid"`
	Standings    []models.Standing     `json:"standings"`
	CompletedAt  *time.Time            `json:"completed_at"`
}

func buildSettlementReport(t *models.Tournament) (*SettlementReport, error) {
	split, err := settlement.TournamentSplit(t)
	if err != nil {
		return nil, err
	}
	return &SettlementReport{
		TournamentID: t.ID,
		Name:         t.Name,
		Game:         t.Game,
		Teams:        len(t.Teams),
		EntryFee:     t.EntryFee,
		Split:        split,
		Paid:         t.PaidPrizes(),
		Standings:    t.Standings,
		CompletedAt:  t.CompletedAt,
	}, nil
}

// archiveReport сохраняет отчет в объектное хранилище. Ошибки не влияют на результат выплаты.
func (s *PrizeService) archiveReport(ctx context.Context, t *models.Tournament) string {
	if s.uploader == nil {
		return ""
	}
	ctx = context.WithoutCancel(ctx)

	report, err := buildSettlementReport(t)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build settlement report", slog.String("tournament_id", t.ID), slog.Any("error", err))
		return ""
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode settlement report", slog.String("tournament_id", t.ID), slog.Any("error", err))
		return ""
	}

	key := fmt.Sprintf("settlements/%s.json", t.ID)
	uploaded, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive settlement report", slog.String("tournament_id", t.ID), slog.Any("error", err))
		return ""
	}
	s.logger.InfoContext(ctx, "settlement report archived",
		slog.String("tournament_id", t.ID), slog.String("key", uploaded.Key), slog.String("location", uploaded.Location))
	return uploaded.Location
}

type tournamentStatusEvent struct {
	TournamentID string                  `json:"tournament_id"`
	Status       models.TournamentStatus `json:"status"`
}

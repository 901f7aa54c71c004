package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/telemetry"
	"github.com/shopspring/decimal"
)

// WalletDrift - кошелек, баланс которого расходится с журналом операций или отрицателен.
type WalletDrift struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
}

type ReconciliationReport struct {
	CheckedAt      time.Time     `json:"checked_at"`
	WalletsChecked int           `json:"wallets_checked"`
	Drifts         []WalletDrift `json:"drifts"`
}

// ReconciliationService сверяет балансы кошельков с их журналами. Ничего не исправляет,
// только сообщает о расхождениях.
type ReconciliationService struct {
	store  repositories.LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

func NewReconciliationService(store repositories.LedgerStore, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{store: store, logger: logger, now: time.Now}
}

func (s *ReconciliationService) Run(ctx context.Context) (*ReconciliationReport, error) {
	ids, err := s.store.ListWalletIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	report := &ReconciliationReport{CheckedAt: s.now().UTC(), Drifts: []WalletDrift{}}
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var drift *WalletDrift
		err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
			w, err := tx.GetWallet(ctx, userID)
			if err != nil {
				return err
			}
			sum := w.LedgerSum()
			drift = nil
			if !sum.Equal(w.Balance) || w.Balance.IsNegative() {
				drift = &WalletDrift{UserID: userID, Balance: w.Balance, LedgerSum: sum}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to check wallet %s: %w", userID, err)
		}

		report.WalletsChecked++
		if drift != nil {
			report.Drifts = append(report.Drifts, *drift)
			telemetry.Metrics().LedgerDrift.Add(ctx, 1)
			s.logger.ErrorContext(ctx, "wallet balance does not match ledger",
				slog.String("user_id", drift.UserID), slog.String("balance", drift.Balance.StringFixed(2)),
				slog.String("ledger_sum", drift.LedgerSum.StringFixed(2)))
		}
	}

	s.logger.InfoContext(ctx, "wallet reconciliation finished",
		slog.Int("wallets", report.WalletsChecked), slog.Int("drifts", len(report.Drifts)))
	return report, nil
}

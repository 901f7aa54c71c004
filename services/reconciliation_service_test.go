package services

import (
	"context"
	"testing"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationCleanLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "leader", "500")
	tournament := f.createTournament(t, models.TeamSizeDuo, "100", "1000", 4)
	team := f.registerTeam(t, tournament.ID, "Alpha", "leader", "mate")
	f.activate(t, tournament.ID)
	_, err := f.prizes.DeclareWinner(ctx, tournament.ID, team.ID, models.PositionFirst, "admin")
	require.NoError(t, err)

	report, err := f.reconciliation.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.WalletsChecked)
	assert.Empty(t, report.Drifts)

	// 500 - 100 + 490/2
	assert.Equal(t, "645.00", f.balance(t, "leader"))
	assert.Equal(t, "245.00", f.balance(t, "mate"))
}

func TestReconciliationReportsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "u1", "100")
	f.fund(t, "u2", "40")

	err := f.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		w, err := tx.GetWallet(ctx, "u2")
		if err != nil {
			return err
		}
		w.Balance = d("55")
		return tx.SaveWallet(ctx, w)
	})
	require.NoError(t, err)

	report, err := f.reconciliation.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.WalletsChecked)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, "u2", report.Drifts[0].UserID)
	assert.Equal(t, "55.00", report.Drifts[0].Balance.StringFixed(2))
	assert.Equal(t, "40.00", report.Drifts[0].LedgerSum.StringFixed(2))
}

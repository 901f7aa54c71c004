package settlement

import (
	"testing"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreditAndDebitKeepBalanceEqualToLedger(t *testing.T) {
	w := models.NewWallet("u1")

	_, err := Credit(w, Entry{Amount: d("500"), Kind: models.KindDeposit, ReferenceID: "dep-1"}, testNow)
	require.NoError(t, err)
	_, err = Debit(w, Entry{Amount: d("100"), Kind: models.KindTournamentEntry, ReferenceID: "t1:team1"}, testNow)
	require.NoError(t, err)
	tx, err := Credit(w, Entry{Amount: d("122.5"), Kind: models.KindTournamentPrize, ReferenceID: "t1:team1"}, testNow)
	require.NoError(t, err)

	assert.True(t, w.Balance.Equal(d("522.5")), "balance %s", w.Balance)
	assert.True(t, w.Balance.Equal(w.LedgerSum()))
	assert.True(t, tx.BalanceAfter.Equal(w.Balance))
	assert.Len(t, w.Transactions, 3)
	assert.Equal(t, models.DirectionCredit, tx.Direction)
	assert.NotEmpty(t, tx.ID)
}

func TestDebitInsufficientFundsLeavesWalletUntouched(t *testing.T) {
	w := models.NewWallet("u1")
	_, err := Credit(w, Entry{Amount: d("50"), Kind: models.KindDeposit, ReferenceID: "dep-1"}, testNow)
	require.NoError(t, err)

	_, err = Debit(w, Entry{Amount: d("50.01"), Kind: models.KindWithdrawal, ReferenceID: "wd-1"}, testNow)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, w.Balance.Equal(d("50")))
	assert.Len(t, w.Transactions, 1)
}

func TestDebitWholeBalanceIsAllowed(t *testing.T) {
	w := models.NewWallet("u1")
	_, err := Credit(w, Entry{Amount: d("100"), Kind: models.KindDeposit, ReferenceID: "dep-1"}, testNow)
	require.NoError(t, err)

	_, err = Debit(w, Entry{Amount: d("100"), Kind: models.KindTournamentEntry, ReferenceID: "t1:a"}, testNow)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestDuplicateReferenceIsRejected(t *testing.T) {
	w := models.NewWallet("u1")
	entry := Entry{Amount: d("200"), Kind: models.KindDeposit, ReferenceID: "dep-1"}

	_, err := Credit(w, entry, testNow)
	require.NoError(t, err)
	_, err = Credit(w, entry, testNow)
	require.ErrorIs(t, err, ErrDuplicateSettlement)

	assert.True(t, w.Balance.Equal(d("200")))
	assert.Len(t, w.Transactions, 1)

	// тот же referenceID с другим видом операции - другой ключ
	_, err = Debit(w, Entry{Amount: d("20"), Kind: models.KindWithdrawal, ReferenceID: "dep-1"}, testNow)
	require.NoError(t, err)
}

func TestInvalidAmounts(t *testing.T) {
	w := models.NewWallet("u1")
	for _, amount := range []string{"0", "-5", "10.001"} {
		_, err := Credit(w, Entry{Amount: d(amount), Kind: models.KindDeposit, ReferenceID: "dep-" + amount}, testNow)
		assert.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
	assert.Empty(t, w.Transactions)
}

func TestPendingTransactionsTracksUnsavedEntries(t *testing.T) {
	w := models.NewWallet("u1")
	_, err := Credit(w, Entry{Amount: d("10"), Kind: models.KindDeposit, ReferenceID: "a"}, testNow)
	require.NoError(t, err)
	w.StoredTransactions = len(w.Transactions)

	_, err = Credit(w, Entry{Amount: d("5"), Kind: models.KindDeposit, ReferenceID: "b"}, testNow)
	require.NoError(t, err)

	pending := w.PendingTransactions()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ReferenceID)
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(maxAttempts int) LedgerStore {
	return NewMemoryLedgerStore(RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: time.Microsecond}, testLogger)
}

func credit(ctx context.Context, store LedgerStore, userID, ref string, amount int64) error {
	return store.RunAtomic(ctx, func(ctx context.Context, tx LedgerTx) error {
		w, err := tx.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := settlement.Credit(w, settlement.Entry{
			Amount:      decimal.NewFromInt(amount),
			Kind:        models.KindDeposit,
			ReferenceID: ref,
		}, time.Now()); err != nil {
			return err
		}
		return tx.SaveWallet(ctx, w)
	})
}

func readWallet(t *testing.T, store LedgerStore, userID string) *models.Wallet {
	t.Helper()
	var w *models.Wallet
	err := store.RunAtomic(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		var err error
		w, err = tx.GetWallet(ctx, userID)
		return err
	})
	require.NoError(t, err)
	return w
}

func TestMemoryStoreCommitsAndSealsDocuments(t *testing.T) {
	store := newTestStore(3)
	ctx := context.Background()

	require.NoError(t, credit(ctx, store, "u1", "dep-1", 150))

	w := readWallet(t, store, "u1")
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int64(1), w.Version)
	assert.Equal(t, 1, w.StoredTransactions)
	assert.Empty(t, w.PendingTransactions())

	txs, err := store.ListTransactions(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "dep-1", txs[0].ReferenceID)
}

func TestMemoryStoreMissingWalletIsEmpty(t *testing.T) {
	w := readWallet(t, newTestStore(1), "nobody")
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, w.Transactions)

	ids, err := newTestStore(1).ListWalletIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStoreRetriesOnConflict(t *testing.T) {
	store := newTestStore(3)
	ctx := context.Background()
	require.NoError(t, credit(ctx, store, "u1", "dep-0", 10))

	attempts := 0
	err := store.RunAtomic(ctx, func(ctx context.Context, tx LedgerTx) error {
		attempts++
		w, err := tx.GetWallet(ctx, "u1")
		if err != nil {
			return err
		}
		if attempts == 1 {
			// параллельный писатель меняет кошелек после нашего чтения
			require.NoError(t, credit(ctx, store, "u1", "dep-concurrent", 5))
		}
		if _, err := settlement.Debit(w, settlement.Entry{
			Amount: decimal.NewFromInt(8), Kind: models.KindWithdrawal, ReferenceID: "wd-1",
		}, time.Now()); err != nil {
			return err
		}
		return tx.SaveWallet(ctx, w)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	w := readWallet(t, store, "u1")
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(7)), "balance %s", w.Balance)
	assert.True(t, w.Balance.Equal(w.LedgerSum()))
	assert.Len(t, w.Transactions, 3)
}

func TestMemoryStoreGivesUpAfterMaxAttempts(t *testing.T) {
	store := newTestStore(3)
	ctx := context.Background()

	attempts := 0
	err := store.RunAtomic(ctx, func(ctx context.Context, tx LedgerTx) error {
		attempts++
		w, err := tx.GetWallet(ctx, "u1")
		if err != nil {
			return err
		}
		require.NoError(t, credit(ctx, store, "u1", fmt.Sprintf("interfering-%d", attempts), 1))
		if _, err := settlement.Credit(w, settlement.Entry{
			Amount: decimal.NewFromInt(100), Kind: models.KindDeposit, ReferenceID: "dep-main",
		}, time.Now()); err != nil {
			return err
		}
		return tx.SaveWallet(ctx, w)
	})
	require.ErrorIs(t, err, ErrConflictRetriesExhausted)
	assert.Equal(t, 3, attempts)

	w := readWallet(t, store, "u1")
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(3)))
	assert.False(t, w.HasTransaction(models.KindDeposit, "dep-main"))
}

func TestMemoryStoreFailedOperationWritesNothing(t *testing.T) {
	store := newTestStore(3)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunAtomic(ctx, func(ctx context.Context, tx LedgerTx) error {
		w, _ := tx.GetWallet(ctx, "u1")
		_, _ = settlement.Credit(w, settlement.Entry{
			Amount: decimal.NewFromInt(100), Kind: models.KindDeposit, ReferenceID: "dep-1",
		}, time.Now())
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	w := readWallet(t, store, "u1")
	assert.True(t, w.Balance.IsZero())
}

func TestMemoryStoreReadsOwnWrites(t *testing.T) {
	store := newTestStore(1)
	err := store.RunAtomic(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		w, _ := tx.GetWallet(ctx, "u1")
		_, err := settlement.Credit(w, settlement.Entry{
			Amount: decimal.NewFromInt(40), Kind: models.KindDeposit, ReferenceID: "dep-1",
		}, time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SaveWallet(ctx, w))

		again, err := tx.GetWallet(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, again.Balance.Equal(decimal.NewFromInt(40)))
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreConcurrentCreditsAllLand(t *testing.T) {
	store := newTestStore(200)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- credit(ctx, store, "u1", fmt.Sprintf("dep-%d", i), 10)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	w := readWallet(t, store, "u1")
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(writers*10)))
	assert.True(t, w.Balance.Equal(w.LedgerSum()))
	assert.Len(t, w.Transactions, writers)
}

func TestMemoryStoreCreateTournamentTwiceFails(t *testing.T) {
	store := newTestStore(3)
	ctx := context.Background()
	create := func() error {
		return store.RunAtomic(ctx, func(ctx context.Context, tx LedgerTx) error {
			return tx.CreateTournament(ctx, &models.Tournament{ID: "t1", Status: models.StatusUpcoming})
		})
	}
	require.NoError(t, create())
	assert.ErrorIs(t, create(), ErrTournamentExists)

	err := store.RunAtomic(ctx, func(ctx context.Context, tx LedgerTx) error {
		_, err := tx.GetTournament(ctx, "missing")
		return err
	})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

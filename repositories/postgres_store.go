package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
)

// postgresLedgerStore выполняет каждую попытку RunAtomic в транзакции REPEATABLE READ.
// Строки документов несут столбец version; запись с устаревшей версией, ошибка
// сериализации или гонка по уникальному ключу операции приводят к повтору.
type postgresLedgerStore struct {
	db          *sql.DB
	policy      RetryPolicy
	logger      *slog.Logger
	wallets     postgresWalletRepository
	tournaments postgresTournamentRepository
	requests    postgresRequestRepository
}

func NewPostgresLedgerStore(db *sql.DB, policy RetryPolicy, logger *slog.Logger) LedgerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresLedgerStore{db: db, policy: policy, logger: logger}
}

func (s *postgresLedgerStore) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	return runWithRetry(ctx, s.policy, s.logger, "postgres", func(ctx context.Context) (txErr error) {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
			if txErr != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					s.logger.Error("failed to rollback transaction", slog.Any("error", rbErr))
				}
				return
			}
			if err := tx.Commit(); err != nil {
				txErr = classifyPgError(fmt.Errorf("failed to commit transaction: %w", err))
			}
		}()

		return classifyPgError(fn(ctx, &postgresTx{store: s, exec: tx}))
	})
}

type postgresTx struct {
	store *postgresLedgerStore
	exec  SQLExecutor
}

func (t *postgresTx) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return t.store.wallets.GetByUserID(ctx, t.exec, userID)
}

func (t *postgresTx) SaveWallet(ctx context.Context, w *models.Wallet) error {
	return t.store.wallets.Save(ctx, t.exec, w)
}

func (t *postgresTx) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	return t.store.tournaments.GetByID(ctx, t.exec, id)
}

func (t *postgresTx) CreateTournament(ctx context.Context, tour *models.Tournament) error {
	return t.store.tournaments.Create(ctx, t.exec, tour)
}

func (t *postgresTx) SaveTournament(ctx context.Context, tour *models.Tournament) error {
	return t.store.tournaments.Save(ctx, t.exec, tour)
}

func (t *postgresTx) GetDepositRequest(ctx context.Context, id string) (*models.DepositRequest, error) {
	return t.store.requests.GetDeposit(ctx, t.exec, id)
}

func (t *postgresTx) CreateDepositRequest(ctx context.Context, r *models.DepositRequest) error {
	return t.store.requests.CreateDeposit(ctx, t.exec, r)
}

func (t *postgresTx) SaveDepositRequest(ctx context.Context, r *models.DepositRequest) error {
	return t.store.requests.SaveDeposit(ctx, t.exec, r)
}

func (t *postgresTx) GetWithdrawalRequest(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return t.store.requests.GetWithdrawal(ctx, t.exec, id)
}

func (t *postgresTx) CreateWithdrawalRequest(ctx context.Context, r *models.WithdrawalRequest) error {
	return t.store.requests.CreateWithdrawal(ctx, t.exec, r)
}

func (t *postgresTx) SaveWithdrawalRequest(ctx context.Context, r *models.WithdrawalRequest) error {
	return t.store.requests.SaveWithdrawal(ctx, t.exec, r)
}

// --- Чтение вне транзакций ---

func (s *postgresLedgerStore) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournaments.List(ctx, s.db, filter)
}

func (s *postgresLedgerStore) ListDueTournaments(ctx context.Context, now time.Time) ([]string, error) {
	return s.tournaments.ListDueIDs(ctx, s.db, now)
}

func (s *postgresLedgerStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	return s.wallets.ListTransactions(ctx, s.db, userID, limit, offset)
}

func (s *postgresLedgerStore) ListWalletIDs(ctx context.Context) ([]string, error) {
	return s.wallets.ListUserIDs(ctx, s.db)
}

func (s *postgresLedgerStore) ListDepositRequests(ctx context.Context, filter ListRequestsFilter) ([]models.DepositRequest, error) {
	return s.requests.ListDeposits(ctx, s.db, filter)
}

func (s *postgresLedgerStore) ListWithdrawalRequests(ctx context.Context, filter ListRequestsFilter) ([]models.WithdrawalRequest, error) {
	return s.requests.ListWithdrawals(ctx, s.db, filter)
}

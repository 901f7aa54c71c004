package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrConflict - параллельная транзакция изменила прочитанные документы. Повторяется автоматически.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrConflictRetriesExhausted возвращается, когда попытки исчерпаны. Клиенту стоит повторить позже.
	ErrConflictRetriesExhausted = errors.New("too many concurrent modifications, try again")

	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRequestNotFound      = errors.New("request not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrTournamentExists     = errors.New("tournament already exists")
)

// LedgerTx - документы, доступные внутри одной атомарной операции.
// Чтения видят согласованный снимок, записи применяются только при фиксации.
type LedgerTx interface {
	// GetWallet возвращает кошелек пользователя; отсутствующий кошелек создается пустым.
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	SaveWallet(ctx context.Context, w *models.Wallet) error

	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	CreateTournament(ctx context.Context, t *models.Tournament) error
	SaveTournament(ctx context.Context, t *models.Tournament) error

	GetDepositRequest(ctx context.Context, id string) (*models.DepositRequest, error)
	CreateDepositRequest(ctx context.Context, r *models.DepositRequest) error
	SaveDepositRequest(ctx context.Context, r *models.DepositRequest) error

	GetWithdrawalRequest(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	CreateWithdrawalRequest(ctx context.Context, r *models.WithdrawalRequest) error
	SaveWithdrawalRequest(ctx context.Context, r *models.WithdrawalRequest) error
}

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type ListRequestsFilter struct {
	UserID *string
	Status *models.RequestStatus
	Limit  int
	Offset int
}

// LedgerReader - запросы на чтение вне транзакций (списки, фоновые задачи).
type LedgerReader interface {
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	ListDueTournaments(ctx context.Context, now time.Time) ([]string, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	ListWalletIDs(ctx context.Context) ([]string, error)
	ListDepositRequests(ctx context.Context, filter ListRequestsFilter) ([]models.DepositRequest, error)
	ListWithdrawalRequests(ctx context.Context, filter ListRequestsFilter) ([]models.WithdrawalRequest, error)
}

// LedgerStore - хранилище кошельков, турниров и заявок.
type LedgerStore interface {
	LedgerReader
	// RunAtomic выполняет fn как одну транзакцию: все записи фиксируются вместе или
	// не фиксируются вовсе. При конфликте fn вызывается повторно с новым снимком,
	// поэтому fn не должна иметь побочных эффектов вне tx.
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// RetryPolicy ограничивает число попыток атомарной операции.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 5 * time.Millisecond}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// backoff - экспоненциальная задержка с джиттером.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay == 0 {
		return 0
	}
	delay := p.BaseDelay << min(attempt-1, 8)
	return delay + rand.N(p.BaseDelay)
}

// runWithRetry - общий цикл повторов для всех реализаций LedgerStore.
func runWithRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, store string, attemptFn func(ctx context.Context) error) error {
	policy = policy.normalized()
	metrics := telemetry.Metrics()

	ctx, span := telemetry.Tracer().Start(ctx, "ledger.RunAtomic")
	defer span.End()
	span.SetAttributes(attribute.String("ledger.store", store))

	for attempt := 1; ; attempt++ {
		err := attemptFn(ctx)
		if err == nil {
			span.SetAttributes(attribute.Int("ledger.attempts", attempt))
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			span.SetAttributes(attribute.Int("ledger.attempts", attempt))
			span.RecordError(err)
			span.SetStatus(codes.Error, "atomic operation failed")
			return err
		}

		metrics.StoreConflicts.Add(ctx, 1)
		if attempt >= policy.MaxAttempts {
			metrics.StoreRetriesExceeded.Add(ctx, 1)
			logger.Warn("atomic operation gave up after conflicts",
				slog.String("store", store), slog.Int("attempts", attempt), slog.Any("error", err))
			span.SetStatus(codes.Error, "retries exhausted")
			return fmt.Errorf("%w: %d attempts: %v", ErrConflictRetriesExhausted, attempt, err)
		}

		logger.Debug("atomic operation conflict, retrying",
			slog.String("store", store), slog.Int("attempt", attempt))

		if delay := policy.backoff(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/lib/pq"
)

// SQLExecutor позволяет вызывать методы репозиториев как на *sql.DB, так и внутри *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Коды ошибок PostgreSQL, которые обрабатываются явно.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

const (
	constraintTournamentPK       = "tournaments_pkey"
	constraintBalanceNonNegative = "wallets_balance_check"
	constraintCapacity           = "tournaments_capacity_check"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

// classifyPgError превращает ошибки конкурентного доступа в ErrConflict, чтобы
// RunAtomic повторил транзакцию. Остальные ошибки возвращаются как есть.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case pgUniqueViolation:
		if pqErr.Constraint == constraintTournamentPK {
			return ErrTournamentExists
		}
		// параллельная вставка кошелька, записи журнала или места
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case pgCheckViolation:
		// последний рубеж: движок не должен допускать таких состояний
		switch pqErr.Constraint {
		case constraintBalanceNonNegative:
			return fmt.Errorf("%w: %v", settlement.ErrInsufficientFunds, err)
		case constraintCapacity:
			return fmt.Errorf("%w: %v", settlement.ErrTournamentFull, err)
		}
		return fmt.Errorf("constraint %s violated: %w", pqErr.Constraint, err)
	case pgForeignKeyViolation:
		return fmt.Errorf("reference violated (%s): %w", pqErr.Constraint, err)
	}
	return err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-wallet/models"
)

type postgresWalletRepository struct{}

// GetByUserID загружает кошелек вместе с журналом. Отсутствующий кошелек возвращается пустым с версией 0.
func (r postgresWalletRepository) GetByUserID(ctx context.Context, exec SQLExecutor, userID string) (*models.Wallet, error) {
	query := `
		SELECT user_id, balance, version, created_at, updated_at
		FROM wallets
		WHERE user_id = $1`

	w := &models.Wallet{}
	err := exec.QueryRowContext(ctx, query, userID).Scan(
		&w.UserID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewWallet(userID), nil
		}
		return nil, err
	}

	w.Transactions, err = r.listTransactions(ctx, exec, userID)
	if err != nil {
		return nil, err
	}
	w.StoredTransactions = len(w.Transactions)
	return w, nil
}

func (r postgresWalletRepository) listTransactions(ctx context.Context, exec SQLExecutor, userID string) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, direction, kind, reference_id, description, balance_after, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY seq`

	rows, err := exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Amount, &tx.Direction, &tx.Kind,
			&tx.ReferenceID, &tx.Description, &tx.BalanceAfter, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Save записывает баланс с проверкой версии и добавляет новые записи журнала.
func (r postgresWalletRepository) Save(ctx context.Context, exec SQLExecutor, w *models.Wallet) error {
	if w.Version == 0 {
		query := `
			INSERT INTO wallets (user_id, balance, version, created_at, updated_at)
			VALUES ($1, $2, 1, $3, $4)`
		if _, err := exec.ExecContext(ctx, query, w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt); err != nil {
			return classifyPgError(err)
		}
	} else {
		query := `
			UPDATE wallets
			SET balance = $2, version = version + 1, updated_at = $3
			WHERE user_id = $1 AND version = $4`
		result, err := exec.ExecContext(ctx, query, w.UserID, w.Balance, w.UpdatedAt, w.Version)
		if err != nil {
			return classifyPgError(err)
		}
		if err := checkAffectedRows(result, fmt.Errorf("%w: wallet %s", ErrConflict, w.UserID)); err != nil {
			return err
		}
	}

	insert := `
		INSERT INTO wallet_transactions (
			id, user_id, amount, direction, kind, reference_id, description, balance_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, tx := range w.PendingTransactions() {
		if _, err := exec.ExecContext(ctx, insert,
			tx.ID, w.UserID, tx.Amount, tx.Direction, tx.Kind, tx.ReferenceID, tx.Description, tx.BalanceAfter, tx.CreatedAt,
		); err != nil {
			return classifyPgError(err)
		}
	}

	w.Version++
	w.StoredTransactions = len(w.Transactions)
	return nil
}

func (r postgresWalletRepository) ListTransactions(ctx context.Context, exec SQLExecutor, userID string, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, direction, kind, reference_id, description, balance_after, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY seq DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, offset)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r postgresWalletRepository) ListUserIDs(ctx context.Context, exec SQLExecutor) ([]string, error) {
	rows, err := exec.QueryContext(ctx, `SELECT user_id FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

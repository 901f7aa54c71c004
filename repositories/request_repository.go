package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-wallet/models"
)

type postgresRequestRepository struct{}

const depositColumns = `id, user_id, amount, payment_reference, status, created_at, processed_at, processed_by, rejection_reason, version`

const withdrawalColumns = `id, user_id, amount, bank_details, status, created_at, processed_at, processed_by, rejection_reason, version`

func scanDeposit(row rowScanner, d *models.DepositRequest) error {
	return row.Scan(&d.ID, &d.UserID, &d.Amount, &d.PaymentReference, &d.Status,
		&d.CreatedAt, &d.ProcessedAt, &d.ProcessedBy, &d.RejectionReason, &d.Version)
}

func scanWithdrawal(row rowScanner, w *models.WithdrawalRequest) error {
	var bankDetails []byte
	if err := row.Scan(&w.ID, &w.UserID, &w.Amount, &bankDetails, &w.Status,
		&w.CreatedAt, &w.ProcessedAt, &w.ProcessedBy, &w.RejectionReason, &w.Version); err != nil {
		return err
	}
	if err := json.Unmarshal(bankDetails, &w.BankDetails); err != nil {
		return fmt.Errorf("invalid bank details for withdrawal %s: %w", w.ID, err)
	}
	return nil
}

func (r postgresRequestRepository) GetDeposit(ctx context.Context, exec SQLExecutor, id string) (*models.DepositRequest, error) {
	d := &models.DepositRequest{}
	err := scanDeposit(exec.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id), d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r postgresRequestRepository) CreateDeposit(ctx context.Context, exec SQLExecutor, d *models.DepositRequest) error {
	query := `
		INSERT INTO deposit_requests (id, user_id, amount, payment_reference, status, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)`
	if _, err := exec.ExecContext(ctx, query, d.ID, d.UserID, d.Amount, d.PaymentReference, d.Status, d.CreatedAt); err != nil {
		return classifyPgError(err)
	}
	d.Version = 1
	return nil
}

func (r postgresRequestRepository) SaveDeposit(ctx context.Context, exec SQLExecutor, d *models.DepositRequest) error {
	query := `
		UPDATE deposit_requests
		SET status = $2, processed_at = $3, processed_by = $4, rejection_reason = $5, version = version + 1
		WHERE id = $1 AND version = $6`
	result, err := exec.ExecContext(ctx, query, d.ID, d.Status, d.ProcessedAt, d.ProcessedBy, d.RejectionReason, d.Version)
	if err != nil {
		return classifyPgError(err)
	}
	if err := checkAffectedRows(result, fmt.Errorf("%w: deposit request %s", ErrConflict, d.ID)); err != nil {
		return err
	}
	d.Version++
	return nil
}

func (r postgresRequestRepository) GetWithdrawal(ctx context.Context, exec SQLExecutor, id string) (*models.WithdrawalRequest, error) {
	w := &models.WithdrawalRequest{}
	err := scanWithdrawal(exec.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id), w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r postgresRequestRepository) CreateWithdrawal(ctx context.Context, exec SQLExecutor, w *models.WithdrawalRequest) error {
	bankDetails, err := json.Marshal(w.BankDetails)
	if err != nil {
		return fmt.Errorf("failed to encode bank details: %w", err)
	}
	query := `
		INSERT INTO withdrawal_requests (id, user_id, amount, bank_details, status, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)`
	if _, err := exec.ExecContext(ctx, query, w.ID, w.UserID, w.Amount, string(bankDetails), w.Status, w.CreatedAt); err != nil {
		return classifyPgError(err)
	}
	w.Version = 1
	return nil
}

func (r postgresRequestRepository) SaveWithdrawal(ctx context.Context, exec SQLExecutor, w *models.WithdrawalRequest) error {
	query := `
		UPDATE withdrawal_requests
		SET status = $2, processed_at = $3, processed_by = $4, rejection_reason = $5, version = version + 1
		WHERE id = $1 AND version = $6`
	result, err := exec.ExecContext(ctx, query, w.ID, w.Status, w.ProcessedAt, w.ProcessedBy, w.RejectionReason, w.Version)
	if err != nil {
		return classifyPgError(err)
	}
	if err := checkAffectedRows(result, fmt.Errorf("%w: withdrawal request %s", ErrConflict, w.ID)); err != nil {
		return err
	}
	w.Version++
	return nil
}

func requestFilterClause(filter ListRequestsFilter) (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}
	argID := 1

	if filter.UserID != nil {
		clause += fmt.Sprintf(" AND user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.Status != nil {
		clause += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	clause += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}
	return clause, args
}

func (r postgresRequestRepository) ListDeposits(ctx context.Context, exec SQLExecutor, filter ListRequestsFilter) ([]models.DepositRequest, error) {
	clause, args := requestFilterClause(filter)
	rows, err := exec.QueryContext(ctx, `SELECT `+depositColumns+` FROM deposit_requests`+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.DepositRequest, 0)
	for rows.Next() {
		var d models.DepositRequest
		if err := scanDeposit(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r postgresRequestRepository) ListWithdrawals(ctx context.Context, exec SQLExecutor, filter ListRequestsFilter) ([]models.WithdrawalRequest, error) {
	clause, args := requestFilterClause(filter)
	rows, err := exec.QueryContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests`+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.WithdrawalRequest, 0)
	for rows.Next() {
		var w models.WithdrawalRequest
		if err := scanWithdrawal(rows, &w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

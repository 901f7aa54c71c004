package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/settlement"
)

// ApprovalService - подтверждение и отклонение заявок администратором.
// Повторное решение по обработанной заявке возвращает settlement.ErrAlreadyProcessed
// и ничего не меняет.
type ApprovalService struct {
	store    repositories.LedgerStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewApprovalService(store repositories.LedgerStore, notifier Notifier, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// ApproveDeposit одобряет заявку и зачисляет сумму. Ключ операции - ID заявки.
func (s *ApprovalService) ApproveDeposit(ctx context.Context, requestID, adminID string) (*models.DepositRequest, error) {
	now := s.now().UTC()
	var approved *models.DepositRequest

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		req, err := tx.GetDepositRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return fmt.Errorf("%w: deposit %s is %s", settlement.ErrAlreadyProcessed, req.ID, req.Status)
		}

		wallet, err := tx.GetWallet(ctx, req.UserID)
		if err != nil {
			return err
		}
		if _, err := settlement.Credit(wallet, settlement.Entry{
			Amount:      req.Amount,
			Kind:        models.KindDeposit,
			ReferenceID: req.ID,
			Description: "Deposit " + req.PaymentReference,
		}, now); err != nil {
			return err
		}

		markProcessed(&req.Status, &req.ProcessedAt, &req.ProcessedBy, models.RequestApproved, adminID, now)
		if err := tx.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		if err := tx.SaveDepositRequest(ctx, req); err != nil {
			return err
		}
		approved = req.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordSettlement(ctx, models.KindDeposit, 1)
	s.logger.InfoContext(ctx, "deposit approved",
		slog.String("request_id", approved.ID), slog.String("user_id", approved.UserID),
		slog.String("amount", approved.Amount.StringFixed(2)), slog.String("admin_id", adminID))

	notifyAll(ctx, s.notifier, s.logger, []models.Notification{{
		UserID:  approved.UserID,
		Kind:    models.NotificationDeposit,
		Title:   "Deposit approved",
		Message: fmt.Sprintf("%s has been added to your wallet", formatAmount(approved.Amount)),
	}})
	return approved, nil
}

// ApproveWithdrawal одобряет вывод и списывает сумму. При нехватке средств
// заявка остается в статусе pending.
func (s *ApprovalService) ApproveWithdrawal(ctx context.Context, requestID, adminID string) (*models.WithdrawalRequest, error) {
	now := s.now().UTC()
	var approved *models.WithdrawalRequest

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		req, err := tx.GetWithdrawalRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return fmt.Errorf("%w: withdrawal %s is %s", settlement.ErrAlreadyProcessed, req.ID, req.Status)
		}

		wallet, err := tx.GetWallet(ctx, req.UserID)
		if err != nil {
			return err
		}
		if _, err := settlement.Debit(wallet, settlement.Entry{
			Amount:      req.Amount,
			Kind:        models.KindWithdrawal,
			ReferenceID: req.ID,
			Description: "Withdrawal to " + req.BankDetails.AccountHolder,
		}, now); err != nil {
			return err
		}

		markProcessed(&req.Status, &req.ProcessedAt, &req.ProcessedBy, models.RequestApproved, adminID, now)
		if err := tx.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		if err := tx.SaveWithdrawalRequest(ctx, req); err != nil {
			return err
		}
		approved = req.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordSettlement(ctx, models.KindWithdrawal, 1)
	s.logger.InfoContext(ctx, "withdrawal approved",
		slog.String("request_id", approved.ID), slog.String("user_id", approved.UserID),
		slog.String("amount", approved.Amount.StringFixed(2)), slog.String("admin_id", adminID))

	notifyAll(ctx, s.notifier, s.logger, []models.Notification{{
		UserID:  approved.UserID,
		Kind:    models.NotificationWithdrawal,
		Title:   "Withdrawal approved",
		Message: fmt.Sprintf("%s is on its way to your account", formatAmount(approved.Amount)),
	}})
	return approved, nil
}

func (s *ApprovalService) RejectDeposit(ctx context.Context, requestID, adminID, reason string) (*models.DepositRequest, error) {
	now := s.now().UTC()
	var rejected *models.DepositRequest

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		req, err := tx.GetDepositRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return fmt.Errorf("%w: deposit %s is %s", settlement.ErrAlreadyProcessed, req.ID, req.Status)
		}
		markProcessed(&req.Status, &req.ProcessedAt, &req.ProcessedBy, models.RequestRejected, adminID, now)
		req.RejectionReason = rejectionReason(reason)
		if err := tx.SaveDepositRequest(ctx, req); err != nil {
			return err
		}
		rejected = req.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "deposit rejected",
		slog.String("request_id", rejected.ID), slog.String("admin_id", adminID))
	notifyAll(ctx, s.notifier, s.logger, []models.Notification{{
		UserID:  rejected.UserID,
		Kind:    models.NotificationDeposit,
		Title:   "Deposit rejected",
		Message: rejectionMessage("Your deposit of "+formatAmount(rejected.Amount)+" was rejected", rejected.RejectionReason),
	}})
	return rejected, nil
}

func (s *ApprovalService) RejectWithdrawal(ctx context.Context, requestID, adminID, reason string) (*models.WithdrawalRequest, error) {
	now := s.now().UTC()
	var rejected *models.WithdrawalRequest

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		req, err := tx.GetWithdrawalRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return fmt.Errorf("%w: withdrawal %s is %s", settlement.ErrAlreadyProcessed, req.ID, req.Status)
		}
		markProcessed(&req.Status, &req.ProcessedAt, &req.ProcessedBy, models.RequestRejected, adminID, now)
		req.RejectionReason = rejectionReason(reason)
		if err := tx.SaveWithdrawalRequest(ctx, req); err != nil {
			return err
		}
		rejected = req.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "withdrawal rejected",
		slog.String("request_id", rejected.ID), slog.String("admin_id", adminID))
	notifyAll(ctx, s.notifier, s.logger, []models.Notification{{
		UserID:  rejected.UserID,
		Kind:    models.NotificationWithdrawal,
		Title:   "Withdrawal rejected",
		Message: rejectionMessage("Your withdrawal of "+formatAmount(rejected.Amount)+" was rejected", rejected.RejectionReason),
	}})
	return rejected, nil
}

func (s *ApprovalService) ListDeposits(ctx context.Context, filter repositories.ListRequestsFilter) ([]models.DepositRequest, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.store.ListDepositRequests(ctx, filter)
}

func (s *ApprovalService) ListWithdrawals(ctx context.Context, filter repositories.ListRequestsFilter) ([]models.WithdrawalRequest, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.store.ListWithdrawalRequests(ctx, filter)
}

func markProcessed(status *models.RequestStatus, processedAt **time.Time, processedBy **string, next models.RequestStatus, adminID string, now time.Time) {
	*status = next
	at := now
	by := adminID
	*processedAt = &at
	*processedBy = &by
}

func rejectionReason(reason string) *string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	return &reason
}

func rejectionMessage(base string, reason *string) string {
	if reason == nil {
		return base
	}
	return base + ": " + *reason
}

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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// WalletService - операции пользователя со своим кошельком и заявки на пополнение и вывод.
type WalletService struct {
	store  repositories.LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

func NewWalletService(store repositories.LedgerStore, logger *slog.Logger) *WalletService {
	return &WalletService{store: store, logger: logger, now: time.Now}
}

// GetWallet возвращает кошелек пользователя. Несуществующий кошелек отдается пустым и не сохраняется.
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		w, err := tx.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet %s: %w", userID, err)
	}
	return wallet, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	limit, offset = normalizePage(limit, offset)
	return s.store.ListTransactions(ctx, userID, limit, offset)
}

// SubmitDeposit создает заявку на пополнение. Средства зачисляются только после одобрения.
func (s *WalletService) SubmitDeposit(ctx context.Context, userID string, amount decimal.Decimal, paymentReference string) (*models.DepositRequest, error) {
	if err := settlement.ValidateAmount(amount); err != nil {
		return nil, err
	}
	paymentReference = strings.TrimSpace(paymentReference)
	if paymentReference == "" {
		return nil, ErrPaymentReferenceRequired
	}

	req := &models.DepositRequest{
		ID:               uuid.NewString(),
		UserID:           userID,
		Amount:           amount,
		PaymentReference: paymentReference,
		Status:           models.RequestPending,
		CreatedAt:        s.now().UTC(),
	}
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		return tx.CreateDepositRequest(ctx, req.Clone())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}

	s.logger.InfoContext(ctx, "deposit request submitted",
		slog.String("request_id", req.ID), slog.String("user_id", userID), slog.String("amount", amount.StringFixed(2)))
	return req, nil
}

// SubmitWithdrawal создает заявку на вывод. Баланс проверяется заранее,
// но окончательно списание проверяется при одобрении.
func (s *WalletService) SubmitWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, bank models.BankDetails) (*models.WithdrawalRequest, error) {
	if err := settlement.ValidateAmount(amount); err != nil {
		return nil, err
	}
	bank, err := normalizeBankDetails(bank)
	if err != nil {
		return nil, err
	}

	req := &models.WithdrawalRequest{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		BankDetails: bank,
		Status:      models.RequestPending,
		CreatedAt:   s.now().UTC(),
	}
	err = s.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		wallet, err := tx.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, requested %s",
				settlement.ErrInsufficientFunds, wallet.Balance.StringFixed(2), amount.StringFixed(2))
		}
		return tx.CreateWithdrawalRequest(ctx, req.Clone())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "withdrawal request submitted",
		slog.String("request_id", req.ID), slog.String("user_id", userID), slog.String("amount", amount.StringFixed(2)))
	return req, nil
}

func normalizeBankDetails(b models.BankDetails) (models.BankDetails, error) {
	b.AccountHolder = strings.TrimSpace(b.AccountHolder)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.IFSC = strings.ToUpper(strings.TrimSpace(b.IFSC))
	b.UPIID = strings.TrimSpace(b.UPIID)

	if b.AccountHolder == "" {
		return b, ErrBankDetailsRequired
	}
	hasAccount := b.AccountNumber != "" && b.IFSC != ""
	if !hasAccount && b.UPIID == "" {
		return b, ErrBankDetailsRequired
	}
	return b, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func formatAmount(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

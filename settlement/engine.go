// Package settlement содержит чистые функции движения средств: зачисление, списание,
// расчет призового фонда, проверку составов и планирование выплат. Функции работают
// только с явно переданными документами и ничего не сохраняют сами.
package settlement

import (
	"fmt"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry описывает одну операцию по кошельку.
type Entry struct {
	Amount      decimal.Decimal
	Kind        models.TransactionKind
	ReferenceID string
	Description string
}

// TournamentReference формирует ключ операции для взносов, призов и возвратов.
func TournamentReference(tournamentID, teamID string) string {
	return tournamentID + ":" + teamID
}

// ValidateAmount проверяет, что сумма положительна и не мельче копейки.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// Credit зачисляет средства. Повтор с тем же (kind, referenceID) возвращает
// ErrDuplicateSettlement и не меняет кошелек.
func Credit(w *models.Wallet, e Entry, now time.Time) (models.Transaction, error) {
	if err := validateEntry(w, e); err != nil {
		return models.Transaction{}, err
	}
	return appendTransaction(w, e, models.DirectionCredit, w.Balance.Add(e.Amount), now), nil
}

// Debit списывает средства. Баланс никогда не становится отрицательным:
// при нехватке возвращается ErrInsufficientFunds без изменений.
func Debit(w *models.Wallet, e Entry, now time.Time) (models.Transaction, error) {
	if err := validateEntry(w, e); err != nil {
		return models.Transaction{}, err
	}
	if w.Balance.LessThan(e.Amount) {
		return models.Transaction{}, fmt.Errorf("%w: balance %s, required %s",
			ErrInsufficientFunds, w.Balance.StringFixed(2), e.Amount.StringFixed(2))
	}
	return appendTransaction(w, e, models.DirectionDebit, w.Balance.Sub(e.Amount), now), nil
}

func validateEntry(w *models.Wallet, e Entry) error {
	if w == nil {
		return fmt.Errorf("settlement: nil wallet")
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if !e.Kind.Valid() || e.ReferenceID == "" {
		return fmt.Errorf("settlement: invalid entry kind %q or empty reference", e.Kind)
	}
	if w.HasTransaction(e.Kind, e.ReferenceID) {
		return fmt.Errorf("%w: %s %s", ErrDuplicateSettlement, e.Kind, e.ReferenceID)
	}
	return nil
}

func appendTransaction(w *models.Wallet, e Entry, dir models.TransactionDirection, balanceAfter decimal.Decimal, now time.Time) models.Transaction {
	tx := models.Transaction{
		ID:           uuid.NewString(),
		UserID:       w.UserID,
		Amount:       e.Amount,
		Direction:    dir,
		Kind:         e.Kind,
		ReferenceID:  e.ReferenceID,
		Description:  e.Description,
		BalanceAfter: balanceAfter,
		CreatedAt:    now,
	}
	w.Balance = balanceAfter
	w.Transactions = append(w.Transactions, tx)
	w.UpdatedAt = now
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	return tx
}

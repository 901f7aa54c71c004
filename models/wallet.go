package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDirection определяет знак движения средств.
type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "credit"
	DirectionDebit  TransactionDirection = "debit"
)

// TransactionKind соответствует ENUM transaction_kind в БД.
type TransactionKind string

const (
	KindDeposit          TransactionKind = "deposit"
	KindWithdrawal       TransactionKind = "withdrawal"
	KindTournamentEntry  TransactionKind = "tournament_entry"
	KindTournamentPrize  TransactionKind = "tournament_prize"
	KindTournamentRefund TransactionKind = "tournament_refund"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTournamentEntry, KindTournamentPrize, KindTournamentRefund:
		return true
	}
	return false
}

// Transaction - неизменяемая запись журнала кошелька.
type Transaction struct {
	ID           string               `json:"id" db:"id"`
	UserID       string               `json:"user_id" db:"user_id"`
	Amount       decimal.Decimal      `json:"amount" db:"amount"`
	Direction    TransactionDirection `json:"direction" db:"direction"`
	Kind         TransactionKind      `json:"kind" db:"kind"`
	ReferenceID  string               `json:"reference_id" db:"reference_id"`
	Description  string               `json:"description" db:"description"`
	BalanceAfter decimal.Decimal      `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
}

// SignedAmount возвращает сумму со знаком: кредит положительный, дебет отрицательный.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Wallet хранит баланс пользователя и полную историю операций.
type Wallet struct {
	UserID       string          `json:"user_id" db:"user_id"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	Transactions []Transaction   `json:"transactions,omitempty" db:"-"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Version используется для оптимистичной блокировки.
	Version int64 `json:"-" db:"version"`
	// StoredTransactions - количество записей из Transactions, уже сохраненных в хранилище.
	StoredTransactions int `json:"-" db:"-"`
}

// NewWallet создает пустой кошелек. Кошельки создаются лениво при первой операции.
func NewWallet(userID string) *Wallet {
	return &Wallet{
		UserID:  userID,
		Balance: decimal.Zero,
	}
}

// PendingTransactions возвращает записи, добавленные после загрузки кошелька.
func (w *Wallet) PendingTransactions() []Transaction {
	if w.StoredTransactions >= len(w.Transactions) {
		return nil
	}
	return w.Transactions[w.StoredTransactions:]
}

// HasTransaction проверяет ключ идемпотентности (kind, referenceID).
func (w *Wallet) HasTransaction(kind TransactionKind, referenceID string) bool {
	for _, tx := range w.Transactions {
		if tx.Kind == kind && tx.ReferenceID == referenceID {
			return true
		}
	}
	return false
}

// LedgerSum - сумма всех операций со знаком. Для согласованного кошелька равна Balance.
func (w *Wallet) LedgerSum() decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range w.Transactions {
		sum = sum.Add(tx.SignedAmount())
	}
	return sum
}

func (w *Wallet) Clone() *Wallet {
	c := *w
	c.Transactions = append([]Transaction(nil), w.Transactions...)
	return &c
}

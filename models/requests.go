package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus - статус заявки на пополнение или вывод.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// DepositRequest - заявка на пополнение, подтверждаемая администратором.
type DepositRequest struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"user_id" db:"user_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	PaymentReference string          `json:"payment_reference" db:"payment_reference"`
	Status           RequestStatus   `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy      *string         `json:"processed_by,omitempty" db:"processed_by"`
	RejectionReason  *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Version          int64           `json:"-" db:"version"`
}

func (d *DepositRequest) Clone() *DepositRequest {
	c := *d
	c.ProcessedAt = cloneTime(d.ProcessedAt)
	c.ProcessedBy = cloneString(d.ProcessedBy)
	c.RejectionReason = cloneString(d.RejectionReason)
	return &c
}

// BankDetails - реквизиты для вывода средств (банковский счет или UPI).
type BankDetails struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
}

// WithdrawalRequest - заявка на вывод. Списание происходит только при одобрении.
type WithdrawalRequest struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	BankDetails     BankDetails     `json:"bank_details" db:"bank_details"`
	Status          RequestStatus   `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy     *string         `json:"processed_by,omitempty" db:"processed_by"`
	RejectionReason *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Version         int64           `json:"-" db:"version"`
}

func (w *WithdrawalRequest) Clone() *WithdrawalRequest {
	c := *w
	c.ProcessedAt = cloneTime(w.ProcessedAt)
	c.ProcessedBy = cloneString(w.ProcessedBy)
	c.RejectionReason = cloneString(w.RejectionReason)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

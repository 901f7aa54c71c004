package models

import "time"

type NotificationKind string

const (
	NotificationDeposit    NotificationKind = "deposit"
	NotificationWithdrawal NotificationKind = "withdrawal"
	NotificationTournament NotificationKind = "tournament"
	NotificationPrize      NotificationKind = "prize"
)

// Notification - сообщение пользователю о движении средств или событии турнира.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

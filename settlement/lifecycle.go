package settlement

import (
	"fmt"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/shopspring/decimal"
)

var allowedTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusUpcoming:  {models.StatusActive, models.StatusCancelled},
	models.StatusActive:    {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionStatus переводит турнир в новый статус. Статусы меняются только вперед;
// отмена невозможна после присвоения призовых мест.
func TransitionStatus(t *models.Tournament, next models.TournamentStatus, now time.Time) error {
	if !next.Valid() || !isValidStatusTransition(t.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, next)
	}
	if next == models.StatusCancelled && len(t.Standings) > 0 {
		return fmt.Errorf("%w: prizes already awarded", ErrInvalidStatusTransition)
	}
	t.Status = next
	t.UpdatedAt = now
	if next == models.StatusCompleted {
		completedAt := now
		t.CompletedAt = &completedAt
	}
	return nil
}

// Refund - возврат взноса лидеру команды при отмене турнира.
type Refund struct {
	TeamID      string
	UserID      string
	Amount      decimal.Decimal
	ReferenceID string
}

// PlanRefunds возвращает взносы всех зарегистрированных команд. Пусто для бесплатных турниров.
func PlanRefunds(t *models.Tournament) []Refund {
	if !t.EntryFee.IsPositive() {
		return nil
	}
	refunds := make([]Refund, 0, len(t.Teams))
	for _, team := range t.Teams {
		refunds = append(refunds, Refund{
			TeamID:      team.ID,
			UserID:      team.LeaderID,
			Amount:      t.EntryFee,
			ReferenceID: TournamentReference(t.ID, team.ID),
		})
	}
	return refunds
}

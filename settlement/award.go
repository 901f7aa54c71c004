package settlement

import (
	"fmt"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/shopspring/decimal"
)

// AwardPlan - проверенное решение о выплате приза команде.
type AwardPlan struct {
	TournamentID string
	TeamID       string
	TeamName     string
	Position     models.Position
	Prize        decimal.Decimal
	PerPlayer    decimal.Decimal
	Recipients   []string
	ReferenceID  string
}

// PlanAward проверяет, что команде можно присвоить место, и считает выплату.
// Повторное присвоение того же места той же команде дает ErrDuplicateSettlement.
func PlanAward(t *models.Tournament, teamID string, position models.Position) (*AwardPlan, error) {
	if t.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrTournamentNotActive, t.Status)
	}
	team, ok := t.FindTeam(teamID)
	if !ok {
		return nil, ErrTeamNotFound
	}

	split, err := TournamentSplit(t)
	if err != nil {
		return nil, err
	}
	prize, ok := split.PrizeFor(position)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPosition, position)
	}

	if holder, taken := t.StandingByPosition(position); taken {
		if holder.TeamID == teamID {
			return nil, fmt.Errorf("%w: team %s already holds %s", ErrDuplicateSettlement, teamID, position)
		}
		return nil, ErrPositionTaken
	}
	if placed, ok := t.StandingByTeam(teamID); ok {
		return nil, fmt.Errorf("%w: team %s holds %s", ErrTeamAlreadyPlaced, teamID, placed.Position)
	}
	if t.PaidPrizes().Add(prize).GreaterThan(split.NetPool) {
		return nil, ErrPrizePoolExceeded
	}

	perPlayer, err := PerPlayerShare(prize, len(team.Players))
	if err != nil {
		return nil, err
	}

	return &AwardPlan{
		TournamentID: t.ID,
		TeamID:       team.ID,
		TeamName:     team.Name,
		Position:     position,
		Prize:        prize,
		PerPlayer:    perPlayer,
		Recipients:   team.PlayerIDs(),
		ReferenceID:  TournamentReference(t.ID, team.ID),
	}, nil
}

// ApplyAward закрепляет место за командой и завершает турнир, когда все
// призовые места схемы заняты. Возвращает true, если турнир завершен.
func ApplyAward(t *models.Tournament, plan *AwardPlan, awardedBy string, now time.Time) bool {
	t.Standings = append(t.Standings, models.Standing{
		TeamID:    plan.TeamID,
		Position:  plan.Position,
		Prize:     plan.Prize,
		PerPlayer: plan.PerPlayer,
		AwardedBy: awardedBy,
		AwardedAt: now,
	})
	t.UpdatedAt = now

	if len(t.Standings) >= PayableCount(t.PayoutScheme) {
		t.Status = models.StatusCompleted
		completedAt := now
		t.CompletedAt = &completedAt
		return true
	}
	return false
}

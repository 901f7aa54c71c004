package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
)

// RegistrationRequest - заявка лидера на участие команды в турнире.
type RegistrationRequest struct {
	LeaderID string
	TeamName string
	Players  []models.Player
}

// ValidateRoster проверяет состав: размер по формату, заполненные игровые ID,
// уникальные игроки и присутствие лидера. Флаг IsLeader выставляется по leaderID.
func ValidateRoster(size models.TeamSize, leaderID string, players []models.Player) ([]models.Player, error) {
	required := size.PlayerCount()
	if required == 0 {
		return nil, fmt.Errorf("%w: unknown team size %q", ErrInvalidRoster, size)
	}
	if len(players) != required {
		return nil, fmt.Errorf("%w: %s requires %d players, got %d", ErrInvalidRoster, size, required, len(players))
	}

	roster := make([]models.Player, 0, len(players))
	seen := make(map[string]struct{}, len(players))
	leaderFound := false
	for i, p := range players {
		p.UserID = strings.TrimSpace(p.UserID)
		p.InGameID = strings.TrimSpace(p.InGameID)
		p.InGameName = strings.TrimSpace(p.InGameName)
		if p.UserID == "" {
			return nil, fmt.Errorf("%w: player %d has no user id", ErrInvalidRoster, i+1)
		}
		if p.InGameID == "" {
			return nil, fmt.Errorf("%w: player %d has no in-game id", ErrInvalidRoster, i+1)
		}
		if _, dup := seen[p.UserID]; dup {
			return nil, fmt.Errorf("%w: player %s listed twice", ErrInvalidRoster, p.UserID)
		}
		seen[p.UserID] = struct{}{}

		p.IsLeader = p.UserID == leaderID
		if p.IsLeader {
			leaderFound = true
		}
		roster = append(roster, p)
	}
	if !leaderFound {
		return nil, fmt.Errorf("%w: leader must be part of the roster", ErrInvalidRoster)
	}
	return roster, nil
}

// TeamID составляет идентификатор команды из турнира, лидера и времени регистрации.
func TeamID(tournamentID, leaderID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", tournamentID, leaderID, now.UnixMilli())
}

// PlanRegistration проверяет заявку и строит команду. Турнир не изменяется.
func PlanRegistration(t *models.Tournament, req RegistrationRequest, now time.Time) (*models.Team, error) {
	if t.Status != models.StatusUpcoming {
		return nil, fmt.Errorf("%w: status is %s", ErrRegistrationClosed, t.Status)
	}
	name := strings.TrimSpace(req.TeamName)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrInvalidRoster)
	}
	roster, err := ValidateRoster(t.TeamSize, req.LeaderID, req.Players)
	if err != nil {
		return nil, err
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return nil, ErrTournamentFull
	}
	for _, existing := range t.Teams {
		for _, p := range roster {
			if existing.HasPlayer(p.UserID) {
				return nil, fmt.Errorf("%w: %s plays for %s", ErrAlreadyRegistered, p.UserID, existing.Name)
			}
		}
	}

	team := &models.Team{
		ID:           TeamID(t.ID, req.LeaderID, now),
		TournamentID: t.ID,
		Name:         name,
		LeaderID:     req.LeaderID,
		Players:      roster,
		CreatedAt:    now,
	}
	if _, exists := t.FindTeam(team.ID); exists {
		return nil, ErrAlreadyRegistered
	}
	return team, nil
}

// ApplyRegistration добавляет команду и увеличивает счетчик участников.
func ApplyRegistration(t *models.Tournament, team *models.Team, now time.Time) {
	t.Teams = append(t.Teams, *team)
	t.CurrentParticipants++
	t.UpdatedAt = now
}

package models

import "time"

// Player - участник состава команды.
type Player struct {
	UserID     string `json:"user_id" db:"user_id"`
	InGameName string `json:"in_game_name" db:"in_game_name"`
	InGameID   string `json:"in_game_id" db:"in_game_id"`
	IsLeader   bool   `json:"is_leader" db:"is_leader"`
}

// Team - зарегистрированная на турнир команда. После создания не изменяется.
type Team struct {
	ID           string    `json:"team_id" db:"team_id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"team_name" db:"team_name"`
	LeaderID     string    `json:"leader_id" db:"leader_id"`
	Players      []Player  `json:"players" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (t Team) PlayerIDs() []string {
	ids := make([]string, 0, len(t.Players))
	for _, p := range t.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (t Team) HasPlayer(userID string) bool {
	for _, p := range t.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

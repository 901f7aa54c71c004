package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TeamSize - формат турнира по размеру команды.
type TeamSize string

const (
	TeamSizeSolo  TeamSize = "solo"
	TeamSizeDuo   TeamSize = "duo"
	TeamSizeSquad TeamSize = "squad"
)

// PlayerCount возвращает требуемое число игроков в составе (0 для неизвестного формата).
func (s TeamSize) PlayerCount() int {
	switch s {
	case TeamSizeSolo:
		return 1
	case TeamSizeDuo:
		return 2
	case TeamSizeSquad:
		return 4
	}
	return 0
}

// PayoutScheme задает набор призовых мест.
type PayoutScheme string

const (
	PayoutTop2 PayoutScheme = "top2"
	PayoutTop3 PayoutScheme = "top3"
	PayoutTop5 PayoutScheme = "top5"
)

// DefaultPayoutScheme: solo/duo платят двум лучшим, squad - трем.
func DefaultPayoutScheme(size TeamSize) PayoutScheme {
	if size == TeamSizeSquad {
		return PayoutTop3
	}
	return PayoutTop2
}

type Position string

const (
	PositionFirst  Position = "first"
	PositionSecond Position = "second"
	PositionThird  Position = "third"
	PositionFourth Position = "fourth"
	PositionFifth  Position = "fifth"
)

// Standing - призовое место, закрепленное за командой.
type Standing struct {
	TeamID    string          `json:"team_id" db:"team_id"`
	Position  Position        `json:"position" db:"position"`
	Prize     decimal.Decimal `json:"prize" db:"prize"`
	PerPlayer decimal.Decimal `json:"per_player" db:"per_player"`
	AwardedBy string          `json:"awarded_by" db:"awarded_by"`
	AwardedAt time.Time       `json:"awarded_at" db:"awarded_at"`
}

// Tournament представляет турнир вместе с командами и призовыми местами.
type Tournament struct {
	ID                  string           `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Game                string           `json:"game" db:"game"`
	TeamSize            TeamSize         `json:"team_size" db:"team_size"`
	Status              TournamentStatus `json:"status" db:"status"`
	EntryFee            decimal.Decimal  `json:"entry_fee" db:"entry_fee"`
	PrizePool           decimal.Decimal  `json:"prize_pool" db:"prize_pool"`
	PlatformFeeRate     decimal.Decimal  `json:"platform_fee_rate" db:"platform_fee_rate"`
	PayoutScheme        PayoutScheme     `json:"payout_scheme" db:"payout_scheme"`
	MaxParticipants     int              `json:"max_participants" db:"max_participants"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	StartTime           time.Time        `json:"start_time" db:"start_time"`
	CreatedBy           string           `json:"created_by" db:"created_by"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty" db:"completed_at"`

	Teams     []Team     `json:"teams,omitempty" db:"-"`
	Standings []Standing `json:"standings,omitempty" db:"-"`

	Version         int64 `json:"-" db:"version"`
	StoredTeams     int   `json:"-" db:"-"`
	StoredStandings int   `json:"-" db:"-"`
}

func (t *Tournament) FindTeam(teamID string) (*Team, bool) {
	for i := range t.Teams {
		if t.Teams[i].ID == teamID {
			return &t.Teams[i], true
		}
	}
	return nil, false
}

func (t *Tournament) StandingByPosition(p Position) (*Standing, bool) {
	for i := range t.Standings {
		if t.Standings[i].Position == p {
			return &t.Standings[i], true
		}
	}
	return nil, false
}

func (t *Tournament) StandingByTeam(teamID string) (*Standing, bool) {
	for i := range t.Standings {
		if t.Standings[i].TeamID == teamID {
			return &t.Standings[i], true
		}
	}
	return nil, false
}

// PaidPrizes - сумма уже выплаченных призов.
func (t *Tournament) PaidPrizes() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range t.Standings {
		sum = sum.Add(s.Prize)
	}
	return sum
}

func (t *Tournament) PendingTeams() []Team {
	if t.StoredTeams >= len(t.Teams) {
		return nil
	}
	return t.Teams[t.StoredTeams:]
}

func (t *Tournament) PendingStandings() []Standing {
	if t.StoredStandings >= len(t.Standings) {
		return nil
	}
	return t.Standings[t.StoredStandings:]
}

func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Teams = make([]Team, len(t.Teams))
	for i, team := range t.Teams {
		team.Players = append([]Player(nil), team.Players...)
		c.Teams[i] = team
	}
	c.Standings = append([]Standing(nil), t.Standings...)
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		c.CompletedAt = &completedAt
	}
	return &c
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
)

type postgresTournamentRepository struct{}

const tournamentColumns = `
	id, name, game, team_size, status, entry_fee, prize_pool, platform_fee_rate, payout_scheme,
	max_participants, current_participants, start_time, created_by, created_at, updated_at,
	completed_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Game, &t.TeamSize, &t.Status, &t.EntryFee, &t.PrizePool, &t.PlatformFeeRate,
		&t.PayoutScheme, &t.MaxParticipants, &t.CurrentParticipants, &t.StartTime, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.Version,
	)
}

func (r postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			id, name, game, team_size, status, entry_fee, prize_pool, platform_fee_rate, payout_scheme,
			max_participants, current_participants, start_time, created_by, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)`

	_, err := exec.ExecContext(ctx, query,
		t.ID, t.Name, t.Game, t.TeamSize, t.Status, t.EntryFee, t.PrizePool, t.PlatformFeeRate, t.PayoutScheme,
		t.MaxParticipants, t.CurrentParticipants, t.StartTime, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return classifyPgError(err)
	}
	t.Version = 1
	return nil
}

// GetByID загружает турнир целиком: команды с составами и занятые места.
func (r postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	if err := scanTournament(exec.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	var err error
	if t.Teams, err = r.listTeams(ctx, exec, id); err != nil {
		return nil, err
	}
	if t.Standings, err = r.listStandings(ctx, exec, id); err != nil {
		return nil, err
	}
	t.StoredTeams = len(t.Teams)
	t.StoredStandings = len(t.Standings)
	return t, nil
}

func (r postgresTournamentRepository) listTeams(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.Team, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT team_id, tournament_id, team_name, leader_id, created_at
		FROM teams
		WHERE tournament_id = $1
		ORDER BY seq`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	index := make(map[string]int)
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.TournamentID, &team.Name, &team.LeaderID, &team.CreatedAt); err != nil {
			return nil, err
		}
		index[team.ID] = len(teams)
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	playerRows, err := exec.QueryContext(ctx, `
		SELECT tp.team_id, tp.user_id, tp.in_game_name, tp.in_game_id, tp.is_leader
		FROM team_players tp
		JOIN teams t ON t.team_id = tp.team_id
		WHERE t.tournament_id = $1
		ORDER BY tp.team_id, tp.slot`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer playerRows.Close()

	for playerRows.Next() {
		var teamID string
		var p models.Player
		if err := playerRows.Scan(&teamID, &p.UserID, &p.InGameName, &p.InGameID, &p.IsLeader); err != nil {
			return nil, err
		}
		i, ok := index[teamID]
		if !ok {
			return nil, fmt.Errorf("player row references unknown team %s", teamID)
		}
		teams[i].Players = append(teams[i].Players, p)
	}
	return teams, playerRows.Err()
}

func (r postgresTournamentRepository) listStandings(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.Standing, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT team_id, position, prize, per_player, awarded_by, awarded_at
		FROM tournament_standings
		WHERE tournament_id = $1
		ORDER BY awarded_at, position`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.TeamID, &s.Position, &s.Prize, &s.PerPlayer, &s.AwardedBy, &s.AwardedAt); err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// Save обновляет изменяемые поля с проверкой версии и добавляет новые команды и места.
func (r postgresTournamentRepository) Save(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $2, game = $3, status = $4, current_participants = $5, start_time = $6,
			updated_at = $7, completed_at = $8, version = version + 1
		WHERE id = $1 AND version = $9`

	result, err := exec.ExecContext(ctx, query,
		t.ID, t.Name, t.Game, t.Status, t.CurrentParticipants, t.StartTime, t.UpdatedAt, t.CompletedAt, t.Version,
	)
	if err != nil {
		return classifyPgError(err)
	}
	if err := checkAffectedRows(result, fmt.Errorf("%w: tournament %s", ErrConflict, t.ID)); err != nil {
		return err
	}

	for _, team := range t.PendingTeams() {
		if err := r.insertTeam(ctx, exec, team); err != nil {
			return err
		}
	}

	insertStanding := `
		INSERT INTO tournament_standings (tournament_id, team_id, position, prize, per_player, awarded_by, awarded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, s := range t.PendingStandings() {
		if _, err := exec.ExecContext(ctx, insertStanding,
			t.ID, s.TeamID, s.Position, s.Prize, s.PerPlayer, s.AwardedBy, s.AwardedAt,
		); err != nil {
			return classifyPgError(err)
		}
	}

	t.Version++
	t.StoredTeams = len(t.Teams)
	t.StoredStandings = len(t.Standings)
	return nil
}

func (r postgresTournamentRepository) insertTeam(ctx context.Context, exec SQLExecutor, team models.Team) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO teams (team_id, tournament_id, team_name, leader_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		team.ID, team.TournamentID, team.Name, team.LeaderID, team.CreatedAt,
	)
	if err != nil {
		return classifyPgError(err)
	}

	insertPlayer := `
		INSERT INTO team_players (team_id, slot, user_id, in_game_name, in_game_id, is_leader)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for slot, p := range team.Players {
		if _, err := exec.ExecContext(ctx, insertPlayer,
			team.ID, slot, p.UserID, p.InGameName, p.InGameID, p.IsLeader,
		); err != nil {
			return classifyPgError(err)
		}
	}
	return nil
}

// List возвращает турниры без команд и мест.
func (r postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY start_time DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

// ListDueIDs - предстоящие турниры, время начала которых уже наступило.
func (r postgresTournamentRepository) ListDueIDs(ctx context.Context, exec SQLExecutor, now time.Time) ([]string, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id FROM tournaments
		WHERE status = $1 AND start_time <= $2
		ORDER BY id`, models.StatusUpcoming, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournamentDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	solo := f.createTournament(t, models.TeamSizeSolo, "50", "1000", 64)
	assert.Equal(t, models.StatusUpcoming, solo.Status)
	assert.Equal(t, models.PayoutTop2, solo.PayoutScheme)
	assert.Equal(t, "0.02", solo.PlatformFeeRate.String())

	squad := f.createTournament(t, models.TeamSizeSquad, "50", "1000", 16)
	assert.Equal(t, models.PayoutTop3, squad.PayoutScheme)

	rate := d("0.05")
	custom, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Pro League", TeamSize: models.TeamSizeSquad, EntryFee: d("0"), PrizePool: d("5000"),
		PlatformFeeRate: &rate, PayoutScheme: models.PayoutTop5, MaxParticipants: 20, StartTime: testNow,
	}, "admin")
	require.NoError(t, err)
	details, err := f.tournaments.GetTournamentDetails(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, "250.00", details.Split.PlatformFee.StringFixed(2))
	assert.Len(t, details.Split.Prizes, 5)

	list, err := f.tournaments.ListTournaments(ctx, repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCreateTournamentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := CreateTournamentInput{
		Name: "Cup", TeamSize: models.TeamSizeDuo, EntryFee: d("10"), PrizePool: d("100"),
		MaxParticipants: 8, StartTime: testNow,
	}
	badRate := d("1")

	cases := map[string]struct {
		mutate func(in *CreateTournamentInput)
		want   error
	}{
		"empty name":     {func(in *CreateTournamentInput) { in.Name = " " }, ErrTournamentNameRequired},
		"unknown size":   {func(in *CreateTournamentInput) { in.TeamSize = "trio" }, ErrTournamentInvalidTeamSize},
		"zero capacity":  {func(in *CreateTournamentInput) { in.MaxParticipants = 0 }, ErrTournamentInvalidCapacity},
		"negative fee":   {func(in *CreateTournamentInput) { in.EntryFee = d("-1") }, ErrTournamentInvalidFee},
		"sub-paisa pool": {func(in *CreateTournamentInput) { in.PrizePool = d("100.001") }, ErrTournamentInvalidFee},
		"no start":       {func(in *CreateTournamentInput) { in.StartTime = time.Time{} }, ErrTournamentStartRequired},
		"fee rate of 1":  {func(in *CreateTournamentInput) { in.PlatformFeeRate = &badRate }, settlement.ErrInvalidPrizeSplit},
		"bad scheme":     {func(in *CreateTournamentInput) { in.PayoutScheme = "top9" }, settlement.ErrInvalidPrizeSplit},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := f.tournaments.CreateTournament(ctx, in, "admin")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCancelTournamentRefundsEntryFees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "a", "500")
	f.fund(t, "b", "150")
	tournament := f.createTournament(t, models.TeamSizeDuo, "100", "1000", 10)
	teamA := f.registerTeam(t, tournament.ID, "Alpha", "a", "a2")
	f.registerTeam(t, tournament.ID, "Bravo", "b", "b2")
	require.Equal(t, "400.00", f.balance(t, "a"))
	f.notifier.reset()

	cancelled, err := f.tournaments.UpdateStatus(ctx, tournament.ID, models.StatusCancelled, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	assert.Equal(t, "500.00", f.balance(t, "a"))
	assert.Equal(t, "150.00", f.balance(t, "b"))
	assert.Equal(t, "0.00", f.balance(t, "a2"))
	assert.Equal(t, 1, countKind(t, f, "a", models.KindTournamentRefund))

	txs, err := f.wallets.ListTransactions(ctx, "a", 1, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, settlement.TournamentReference(tournament.ID, teamA.ID), txs[0].ReferenceID)

	assert.Len(t, f.notifier.forUser("a2"), 1)
	assert.Contains(t, f.notifier.events, "TOURNAMENT_STATUS:"+tournament.ID)

	_, err = f.tournaments.UpdateStatus(ctx, tournament.ID, models.StatusCancelled, "admin")
	assert.ErrorIs(t, err, settlement.ErrInvalidStatusTransition)
	assert.Equal(t, "500.00", f.balance(t, "a"))
}

func TestCancelAfterPrizesIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.createTournament(t, models.TeamSizeSolo, "0", "1000", 10)
	team := f.registerTeam(t, tournament.ID, "One", "u1")
	f.activate(t, tournament.ID)
	_, err := f.prizes.DeclareWinner(ctx, tournament.ID, team.ID, models.PositionFirst, "admin")
	require.NoError(t, err)

	_, err = f.tournaments.UpdateStatus(ctx, tournament.ID, models.StatusCancelled, "admin")
	assert.ErrorIs(t, err, settlement.ErrInvalidStatusTransition)

	_, err = f.tournaments.UpdateStatus(ctx, tournament.ID, models.StatusUpcoming, "admin")
	assert.ErrorIs(t, err, settlement.ErrInvalidStatusTransition)
}

func TestActivateDueTournaments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := f.createTournament(t, models.TeamSizeSolo, "0", "100", 10)
	f.registerTeam(t, soon.ID, "One", "u1")

	later, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Later", TeamSize: models.TeamSizeSolo, EntryFee: d("0"), PrizePool: d("100"),
		MaxParticipants: 10, StartTime: testNow.Add(48 * time.Hour),
	}, "admin")
	require.NoError(t, err)

	f.setNow(func() time.Time { return testNow.Add(2 * time.Hour) })
	f.notifier.reset()

	activated, err := f.tournaments.ActivateDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, activated)

	got, err := f.tournaments.GetTournament(ctx, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	got, err = f.tournaments.GetTournament(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, got.Status)
	assert.Len(t, f.notifier.forUser("u1"), 1)

	activated, err = f.tournaments.ActivateDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, activated)
}

func TestListTournamentsRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	bogus := models.TournamentStatus("paused")
	_, err := f.tournaments.ListTournaments(context.Background(), repositories.ListTournamentsFilter{Status: &bogus})
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus)
}

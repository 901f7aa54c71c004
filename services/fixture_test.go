package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/Dosada05/tournament-wallet/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []models.Notification
	events        []string
	err           error
}

func (n *recordingNotifier) Notify(_ context.Context, note models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notifications = append(n.notifications, note)
	return nil
}

func (n *recordingNotifier) PublishTournamentEvent(_ context.Context, tournamentID, eventType string, _ interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, eventType+":"+tournamentID)
	return nil
}

func (n *recordingNotifier) forUser(userID string) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, note := range n.notifications {
		if note.UserID == userID {
			out = append(out, note)
		}
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = nil
	n.events = nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fixture struct {
	store          repositories.LedgerStore
	notifier       *recordingNotifier
	uploader       *fakeUploader
	wallets        *WalletService
	approvals      *ApprovalService
	registrations  *RegistrationService
	prizes         *PrizeService
	tournaments    *TournamentService
	reconciliation *ReconciliationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := discardLogger()
	store := repositories.NewMemoryLedgerStore(repositories.RetryPolicy{MaxAttempts: 20, BaseDelay: time.Millisecond}, logger)
	notifier := &recordingNotifier{}
	uploader := &fakeUploader{}

	f := &fixture{
		store:          store,
		notifier:       notifier,
		uploader:       uploader,
		wallets:        NewWalletService(store, logger),
		approvals:      NewApprovalService(store, notifier, logger),
		registrations:  NewRegistrationService(store, notifier, logger),
		prizes:         NewPrizeService(store, notifier, uploader, logger),
		tournaments:    NewTournamentService(store, notifier, settlement.DefaultPlatformFeeRate, logger),
		reconciliation: NewReconciliationService(store, logger),
	}
	f.setNow(func() time.Time { return testNow })
	return f
}

func (f *fixture) setNow(now func() time.Time) {
	f.wallets.now = now
	f.approvals.now = now
	f.registrations.now = now
	f.prizes.now = now
	f.tournaments.now = now
	f.reconciliation.now = now
}

// fund пополняет кошелек через заявку и ее одобрение.
func (f *fixture) fund(t *testing.T, userID, amount string) {
	t.Helper()
	ctx := context.Background()
	req, err := f.wallets.SubmitDeposit(ctx, userID, d(amount), "UTR-"+userID+"-"+amount)
	require.NoError(t, err)
	_, err = f.approvals.ApproveDeposit(ctx, req.ID, "admin")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID string) string {
	t.Helper()
	w, err := f.wallets.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance.StringFixed(2)
}

func (f *fixture) createTournament(t *testing.T, size models.TeamSize, entryFee, prizePool string, maxTeams int) *models.Tournament {
	t.Helper()
	tournament, err := f.tournaments.CreateTournament(context.Background(), CreateTournamentInput{
		Name:            "Weekend Cup",
		Game:            "BGMI",
		TeamSize:        size,
		EntryFee:        d(entryFee),
		PrizePool:       d(prizePool),
		MaxParticipants: maxTeams,
		StartTime:       testNow.Add(time.Hour),
	}, "admin")
	require.NoError(t, err)
	return tournament
}

func roster(leaderID string, members ...string) []models.Player {
	ids := append([]string{leaderID}, members...)
	players := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		players = append(players, models.Player{UserID: id, InGameName: "ign-" + id, InGameID: "51" + id})
	}
	return players
}

func (f *fixture) registerTeam(t *testing.T, tournamentID, name, leaderID string, members ...string) *models.Team {
	t.Helper()
	team, err := f.registrations.RegisterTeam(context.Background(), tournamentID, settlement.RegistrationRequest{
		LeaderID: leaderID,
		TeamName: name,
		Players:  roster(leaderID, members...),
	})
	require.NoError(t, err)
	return team
}

func (f *fixture) activate(t *testing.T, tournamentID string) {
	t.Helper()
	_, err := f.tournaments.UpdateStatus(context.Background(), tournamentID, models.StatusActive, "admin")
	require.NoError(t, err)
}

var errNotifierDown = errors.New("notifier unavailable")

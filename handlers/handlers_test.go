package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/tournament-wallet/middleware"
	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/notifications"
	"github.com/Dosada05/tournament-wallet/realtime"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin  = &models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	player = &models.Principal{UserID: "player-1", Role: models.RolePlayer}
)

type testEnv struct {
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryLedgerStore(repositories.RetryPolicy{MaxAttempts: 10, BaseDelay: time.Millisecond}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	emitter := notifications.NewEmitter(repositories.NewMemoryNotificationRepository(), hub, logger)

	tournaments := services.NewTournamentService(store, emitter, decimal.RequireFromString("0.02"), logger)
	registrations := services.NewRegistrationService(store, emitter, logger)
	wallet := NewWalletHandler(services.NewWalletService(store, logger))
	tournament := NewTournamentHandler(tournaments, registrations)
	adm := NewAdminHandler(
		tournaments,
		services.NewPrizeService(store, emitter, nil, logger),
		services.NewApprovalService(store, emitter, logger),
		services.NewReconciliationService(store, logger),
	)
	notes := NewNotificationHandler(emitter)

	r := chi.NewRouter()
	r.Get("/wallet", wallet.GetWallet)
	r.Get("/wallet/transactions", wallet.ListTransactions)
	r.Post("/wallet/deposits", wallet.SubmitDeposit)
	r.Post("/wallet/withdrawals", wallet.SubmitWithdrawal)
	r.Get("/tournaments/{tournamentID}", tournament.GetTournament)
	r.Post("/tournaments/{tournamentID}/teams", tournament.RegisterTeam)
	r.Post("/admin/tournaments", adm.CreateTournament)
	r.Patch("/admin/tournaments/{tournamentID}/status", adm.UpdateTournamentStatus)
	r.Post("/admin/tournaments/{tournamentID}/winners", adm.DeclareWinner)
	r.Get("/admin/deposits", adm.ListDeposits)
	r.Post("/admin/deposits/{requestID}/approve", adm.ApproveDeposit)
	r.Post("/admin/withdrawals/{requestID}/approve", adm.ApproveWithdrawal)
	r.Post("/admin/withdrawals/{requestID}/reject", adm.RejectWithdrawal)
	r.Post("/admin/reconciliation", adm.RunReconciliation)
	r.Get("/notifications", notes.ListNotifications)
	r.Patch("/notifications/{notificationID}/read", notes.MarkRead)

	return &testEnv{router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, p *models.Principal, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func field[T any](t *testing.T, rec *httptest.ResponseRecorder, key string) T {
	t.Helper()
	var v T
	raw, ok := decode(t, rec)[key]
	require.True(t, ok, "missing %q in %s", key, rec.Body.String())
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *testEnv) fund(t *testing.T, p *models.Principal, amount string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/wallet/deposits", p, map[string]string{
		"amount":            amount,
		"payment_reference": "UTR-" + p.UserID + "-" + amount,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	deposit := field[models.DepositRequest](t, rec, "deposit")

	rec = e.do(t, http.MethodPost, "/admin/deposits/"+deposit.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) balance(t *testing.T, p *models.Principal) decimal.Decimal {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/wallet", p, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return field[walletView](t, rec, "wallet").Balance
}

func TestWalletEndpointsRequirePrincipal(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/wallet", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDepositApprovalIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/wallet/deposits", player, map[string]string{
		"amount":            "250.00",
		"payment_reference": "UTR-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	deposit := field[models.DepositRequest](t, rec, "deposit")
	assert.Equal(t, models.RequestPending, deposit.Status)

	rec = env.do(t, http.MethodPost, "/admin/deposits/"+deposit.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/admin/deposits/"+deposit.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already_processed", field[string](t, rec, "status"))

	assert.True(t, env.balance(t, player).Equal(decimal.RequireFromString("250")))

	rec = env.do(t, http.MethodGet, "/wallet/transactions", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, field[[]json.RawMessage](t, rec, "transactions"), 1)
}

func TestSubmitDepositValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"negative amount", map[string]string{"amount": "-5", "payment_reference": "UTR"}},
		{"missing reference", map[string]string{"amount": "10"}},
		{"unknown field", map[string]string{"amount": "10", "payment_reference": "UTR", "extra": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/wallet/deposits", player, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestWithdrawalFlow(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, player, "300")

	bank := models.BankDetails{AccountHolder: "Player One", UPIID: "player@upi"}

	rec := env.do(t, http.MethodPost, "/wallet/withdrawals", player, map[string]interface{}{
		"amount": "500", "bank_details": bank,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/wallet/withdrawals", player, map[string]interface{}{
		"amount": "120.50", "bank_details": bank,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withdrawal := field[models.WithdrawalRequest](t, rec, "withdrawal")

	rec = env.do(t, http.MethodPost, "/admin/withdrawals/"+withdrawal.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Отклонение уже одобренной заявки ничего не меняет.
	rec = env.do(t, http.MethodPost, "/admin/withdrawals/"+withdrawal.ID+"/reject", admin, map[string]string{"reason": "late"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already_processed", field[string](t, rec, "status"))

	assert.True(t, env.balance(t, player).Equal(decimal.RequireFromString("179.50")))

	rec = env.do(t, http.MethodPost, "/admin/withdrawals/missing/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDepositsFilter(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, player, "50")
	rec := env.do(t, http.MethodPost, "/wallet/deposits", player, map[string]string{
		"amount": "75", "payment_reference": "UTR-pending",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/deposits?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deposits := field[[]models.DepositRequest](t, rec, "deposits")
	require.Len(t, deposits, 1)
	assert.Equal(t, "UTR-pending", deposits[0].PaymentReference)

	rec = env.do(t, http.MethodGet, "/admin/deposits?status=unknown", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTournamentLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	rival := &models.Principal{UserID: "player-2", Role: models.RolePlayer}
	env.fund(t, player, "500")
	env.fund(t, rival, "500")

	rec := env.do(t, http.MethodPost, "/admin/tournaments", admin, map[string]interface{}{
		"name":             "Solo Showdown",
		"game":             "Free Fire",
		"team_size":        "solo",
		"entry_fee":        "100",
		"prize_pool":       "1000",
		"max_participants": 10,
		"start_time":       time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tournament := field[models.Tournament](t, rec, "tournament")
	assert.Equal(t, models.PayoutTop2, tournament.PayoutScheme)

	register := func(p *models.Principal) models.Team {
		rec := env.do(t, http.MethodPost, "/tournaments/"+tournament.ID+"/teams", p, map[string]interface{}{
			"team_name": "team-" + p.UserID,
			"players":   []models.Player{{UserID: p.UserID, InGameName: "ign", InGameID: "id-" + p.UserID}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return field[models.Team](t, rec, "team")
	}
	first := register(player)
	second := register(rival)
	assert.True(t, env.balance(t, player).Equal(decimal.RequireFromString("400")))

	winners := "/admin/tournaments/" + tournament.ID + "/winners"

	rec = env.do(t, http.MethodPost, winners, admin, map[string]string{"team_id": first.ID, "position": "first"})
	assert.Equal(t, http.StatusConflict, rec.Code, "inactive tournament must reject awards")

	rec = env.do(t, http.MethodPatch, "/admin/tournaments/"+tournament.ID+"/status", admin, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, winners, admin, map[string]string{"team_id": first.ID, "position": "first"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := field[services.WinnerResult](t, rec, "result")
	assert.True(t, result.Prize.Equal(decimal.RequireFromString("490")))
	assert.False(t, result.Completed)

	rec = env.do(t, http.MethodPost, winners, admin, map[string]string{"team_id": second.ID, "position": "first"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, winners, admin, map[string]string{"team_id": "ghost", "position": "second"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, winners, admin, map[string]string{"team_id": second.ID, "position": "second"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result = field[services.WinnerResult](t, rec, "result")
	assert.True(t, result.Completed)
	assert.Equal(t, models.StatusCompleted, result.Status)

	assert.True(t, env.balance(t, player).Equal(decimal.RequireFromString("890")))
	assert.True(t, env.balance(t, rival).Equal(decimal.RequireFromString("694")))

	rec = env.do(t, http.MethodGet, "/tournaments/"+tournament.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/reconciliation", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := field[services.ReconciliationReport](t, rec, "report")
	assert.Empty(t, report.Drifts)
}

func TestNotificationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, player, "100")

	rec := env.do(t, http.MethodGet, "/notifications", player, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := field[[]models.Notification](t, rec, "notifications")
	require.NotEmpty(t, list)

	rec = env.do(t, http.MethodPatch, "/notifications/"+list[0].ID+"/read", player, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	other := &models.Principal{UserID: "player-9", Role: models.RolePlayer}
	rec = env.do(t, http.MethodPatch, "/notifications/"+list[0].ID+"/read", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/tournament-wallet/middleware"
	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/services"
	"github.com/shopspring/decimal"
)

// AdminHandler - операции администратора: турниры, призы, заявки и сверка.
type AdminHandler struct {
	tournaments    *services.TournamentService
	prizes         *services.PrizeService
	approvals      *services.ApprovalService
	reconciliation *services.ReconciliationService
}

func NewAdminHandler(
	tournaments *services.TournamentService,
	prizes *services.PrizeService,
	approvals *services.ApprovalService,
	reconciliation *services.ReconciliationService,
) *AdminHandler {
	return &AdminHandler{
		tournaments:    tournaments,
		prizes:         prizes,
		approvals:      approvals,
		reconciliation: reconciliation,
	}
}

// CreateTournament godoc
// @Summary Создать турнир
// @Tags admin
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{} "Турнир создан"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Нет прав"
// @Security BearerAuth
// @Router /admin/tournaments [post]
func (h *AdminHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Name            string              `json:"name"`
		Game            string              `json:"game"`
		TeamSize        models.TeamSize     `json:"team_size"`
		EntryFee        decimal.Decimal     `json:"entry_fee"`
		PrizePool       decimal.Decimal     `json:"prize_pool"`
		PlatformFeeRate *decimal.Decimal    `json:"platform_fee_rate"`
		PayoutScheme    models.PayoutScheme `json:"payout_scheme"`
		MaxParticipants int                 `json:"max_participants"`
		StartTime       time.Time           `json:"start_time"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournaments.CreateTournament(r.Context(), services.CreateTournamentInput{
		Name:            input.Name,
		Game:            input.Game,
		TeamSize:        input.TeamSize,
		EntryFee:        input.EntryFee,
		PrizePool:       input.PrizePool,
		PlatformFeeRate: input.PlatformFeeRate,
		PayoutScheme:    input.PayoutScheme,
		MaxParticipants: input.MaxParticipants,
		StartTime:       input.StartTime,
	}, adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) UpdateTournamentStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Status models.TournamentStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournaments.UpdateStatus(r.Context(), tournamentID, input.Status, adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeclareWinner godoc
// @Summary Присвоить команде призовое место
// @Tags admin
// @Description Выплачивает приз игрокам команды. Турнир завершается, когда заняты все призовые места.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} services.WinnerResult
// @Failure 400 {object} map[string]string "Место не оплачивается"
// @Failure 404 {object} map[string]string "Турнир или команда не найдены"
// @Failure 409 {object} map[string]string "Место занято / турнир не активен"
// @Failure 503 {object} map[string]string "Повторите позже"
// @Security BearerAuth
// @Router /admin/tournaments/{tournamentID}/winners [post]
func (h *AdminHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		TeamID   string          `json:"team_id"`
		Position models.Position `json:"position"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.prizes.DeclareWinner(r.Context(), tournamentID, input.TeamID, input.Position, adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	filter, err := readRequestsFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	deposits, err := h.approvals.ListDeposits(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"deposits": deposits}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	filter, err := readRequestsFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	withdrawals, err := h.approvals.ListWithdrawals(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawals": withdrawals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	requestID, adminID, ok := h.requestAndAdmin(w, r)
	if !ok {
		return
	}
	deposit, err := h.approvals.ApproveDeposit(r.Context(), requestID, adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"deposit": deposit}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	requestID, adminID, ok := h.requestAndAdmin(w, r)
	if !ok {
		return
	}
	reason, ok := readRejectionReason(w, r)
	if !ok {
		return
	}
	deposit, err := h.approvals.RejectDeposit(r.Context(), requestID, adminID, reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"deposit": deposit}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveWithdrawal godoc
// @Summary Одобрить вывод средств
// @Tags admin
// @Description Повторное одобрение возвращает {"status":"already_processed"} без повторного списания.
// @Produce json
// @Param requestID path string true "Withdrawal request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Failure 422 {object} map[string]string "Недостаточно средств"
// @Security BearerAuth
// @Router /admin/withdrawals/{requestID}/approve [post]
func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, adminID, ok := h.requestAndAdmin(w, r)
	if !ok {
		return
	}
	withdrawal, err := h.approvals.ApproveWithdrawal(r.Context(), requestID, adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawal": withdrawal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, adminID, ok := h.requestAndAdmin(w, r)
	if !ok {
		return
	}
	reason, ok := readRejectionReason(w, r)
	if !ok {
		return
	}
	withdrawal, err := h.approvals.RejectWithdrawal(r.Context(), requestID, adminID, reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawal": withdrawal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliation.Run(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) requestAndAdmin(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	requestID, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", "", false
	}
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return "", "", false
	}
	return requestID, adminID, true
}

// readRejectionReason: тело запроса необязательно.
func readRejectionReason(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.ContentLength == 0 {
		return "", true
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return "", false
	}
	return input.Reason, true
}

func readRequestsFilter(r *http.Request) (repositories.ListRequestsFilter, error) {
	limit, offset, err := readPage(r)
	if err != nil {
		return repositories.ListRequestsFilter{}, err
	}
	filter := repositories.ListRequestsFilter{Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := models.RequestStatus(v)
		if !status.Valid() {
			return filter, services.ErrValidationFailed
		}
		filter.Status = &status
	}
	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	return filter, nil
}

package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-wallet/middleware"
	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/repositories"
	"github.com/Dosada05/tournament-wallet/services"
	"github.com/Dosada05/tournament-wallet/settlement"
)

type TournamentHandler struct {
	tournaments   *services.TournamentService
	registrations *services.RegistrationService
}

func NewTournamentHandler(tournaments *services.TournamentService, registrations *services.RegistrationService) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments, registrations: registrations}
}

func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := readPage(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter := repositories.ListTournamentsFilter{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.TournamentStatus(v)
		filter.Status = &status
	}

	tournaments, err := h.tournaments.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTournament возвращает турнир с командами, призовыми местами и расчетом фонда.
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	details, err := h.tournaments.GetTournamentDetails(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": details}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterTeam godoc
// @Summary Регистрация команды на турнир
// @Tags tournaments
// @Description Лидер регистрирует состав; взнос списывается с его кошелька.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 201 {object} map[string]interface{} "Команда зарегистрирована"
// @Failure 400 {object} map[string]string "Неверный состав"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Турнир заполнен / регистрация закрыта / игрок уже зарегистрирован"
// @Failure 422 {object} map[string]string "Недостаточно средств"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/teams [post]
func (h *TournamentHandler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		TeamName string          `json:"team_name"`
		Players  []models.Player `json:"players"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Лидером всегда считается пользователь, отправивший заявку.
	team, err := h.registrations.RegisterTeam(r.Context(), tournamentID, settlement.RegistrationRequest{
		LeaderID: currentUserID,
		TeamName: input.TeamName,
		Players:  input.Players,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

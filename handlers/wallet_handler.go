package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/tournament-wallet/middleware"
	"github.com/Dosada05/tournament-wallet/models"
	"github.com/Dosada05/tournament-wallet/services"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	wallets *services.WalletService
}

func NewWalletHandler(wallets *services.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletView struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GetWallet godoc
// @Summary Баланс текущего пользователя
// @Tags wallet
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	view := walletView{UserID: wallet.UserID, Balance: wallet.Balance.Round(2), UpdatedAt: wallet.UpdatedAt}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"wallet": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	limit, offset, err := readPage(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	txs, err := h.wallets.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": txs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitDeposit godoc
// @Summary Заявка на пополнение кошелька
// @Tags wallet
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 400 {object} map[string]string "Неверная сумма или нет номера платежа"
// @Security BearerAuth
// @Router /wallet/deposits [post]
func (h *WalletHandler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Amount           decimal.Decimal `json:"amount"`
		PaymentReference string          `json:"payment_reference"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.wallets.SubmitDeposit(r.Context(), userID, input.Amount, input.PaymentReference)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"deposit": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitWithdrawal godoc
// @Summary Заявка на вывод средств
// @Tags wallet
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 400 {object} map[string]string "Неверная сумма или реквизиты"
// @Failure 422 {object} map[string]string "Недостаточно средств"
// @Security BearerAuth
// @Router /wallet/withdrawals [post]
func (h *WalletHandler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Amount      decimal.Decimal    `json:"amount"`
		BankDetails models.BankDetails `json:"bank_details"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.wallets.SubmitWithdrawal(r.Context(), userID, input.Amount, input.BankDetails)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"withdrawal": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

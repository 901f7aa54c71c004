package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/tournament-wallet/handlers"
	"github.com/Dosada05/tournament-wallet/middleware"
	"github.com/Dosada05/tournament-wallet/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Wallet         *handlers.WalletHandler
	Tournament     *handlers.TournamentHandler
	Admin          *handlers.AdminHandler
	Notification   *handlers.NotificationHandler
	WebSocket      *handlers.WebSocketHandler
	JWTSecretKey   string
	AllowedOrigins []string
}

func SetupRoutes(router chi.Router, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authenticate := middleware.Authenticate(h.JWTSecretKey)

	// WebSocket соединения живут дольше обычного запроса, таймаут к ним не применяется.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/ws/notifications", h.WebSocket.ServeNotifications)
		r.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
	})

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListTournaments)
			r.Get("/{tournamentID}", h.Tournament.GetTournament)

			r.With(authenticate).Post("/{tournamentID}/teams", h.Tournament.RegisterTeam)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.Wallet.GetWallet)
				r.Get("/transactions", h.Wallet.ListTransactions)
				r.Post("/deposits", h.Wallet.SubmitDeposit)
				r.Post("/withdrawals", h.Wallet.SubmitWithdrawal)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.ListNotifications)
				r.Patch("/{notificationID}/read", h.Notification.MarkRead)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/tournaments", h.Admin.CreateTournament)
			r.Patch("/tournaments/{tournamentID}/status", h.Admin.UpdateTournamentStatus)
			r.Post("/tournaments/{tournamentID}/winners", h.Admin.DeclareWinner)

			r.Get("/deposits", h.Admin.ListDeposits)
			r.Post("/deposits/{requestID}/approve", h.Admin.ApproveDeposit)
			r.Post("/deposits/{requestID}/reject", h.Admin.RejectDeposit)

			r.Get("/withdrawals", h.Admin.ListWithdrawals)
			r.Post("/withdrawals/{requestID}/approve", h.Admin.ApproveWithdrawal)
			r.Post("/withdrawals/{requestID}/reject", h.Admin.RejectWithdrawal)

			r.Post("/reconciliation", h.Admin.RunReconciliation)
		})
	})
}

package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lab-borrowing/internal/auth"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/notification"
	"github.com/frahmantamala/lab-borrowing/internal/schedule"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
	"github.com/frahmantamala/lab-borrowing/internal/transport/middleware"
	"github.com/frahmantamala/lab-borrowing/internal/transport/swagger"
	"github.com/frahmantamala/lab-borrowing/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything the router mounts. A nil handler leaves its routes out.
type Handlers struct {
	Auth         *auth.Handler
	Identity     middleware.IdentityResolver
	User         *user.Handler
	Equipment    *equipment.Handler
	Borrowing    *borrowing.Handler
	Notification *notification.Handler
	Schedule     *schedule.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	OpenAPIPath    string
	SubmitLimiter  *middleware.ClientRateLimiter
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts RouterOptions, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)
	healthHandler := NewHealthHandler(db)
	rbac := auth.NewRBACAuthorization(base, logger)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recovery(logger, base))

	openAPIPath := opts.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
			})
		}

		if h.Identity == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(h.Identity, base))

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Patch("/users/{id}/ban", h.User.BanUser)
					ar.Delete("/users/{id}/ban", h.User.UnbanUser)
					ar.Patch("/users/{id}/role", h.User.ChangeRole)
				})
			}

			if h.Equipment != nil {
				pr.Get("/equipment", h.Equipment.ListEquipment)
				pr.Get("/equipment/{id}", h.Equipment.GetEquipment)
			}

			if h.Borrowing != nil {
				pr.Route("/borrowings", func(br chi.Router) {
					br.Get("/", h.Borrowing.ListBorrowRequests)
					br.Get("/{id}", h.Borrowing.GetBorrowRequest)

					br.Group(func(sr chi.Router) {
						if opts.SubmitLimiter != nil {
							sr.Use(middleware.RateLimit(opts.SubmitLimiter, base))
						}
						sr.Post("/", h.Borrowing.SubmitBorrowRequest)
					})

					br.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireStaff())
						mr.Patch("/{id}/approve", h.Borrowing.ApproveBorrowRequest)
						mr.Patch("/{id}/reject", h.Borrowing.RejectBorrowRequest)
						mr.Patch("/{id}/return", h.Borrowing.ConfirmReturn)
					})
				})
			}

			if h.Notification != nil {
				pr.Get("/notifications", h.Notification.ListNotifications)
				pr.Patch("/notifications/{id}/read", h.Notification.MarkRead)
			}

			if h.Schedule != nil {
				pr.Get("/calendar", h.Schedule.Calendar)
				pr.Route("/reservations", func(sr chi.Router) {
					sr.Post("/", h.Schedule.CreateReservation)
					sr.Get("/{id}", h.Schedule.GetReservation)
					sr.Patch("/{id}/cancel", h.Schedule.CancelReservation)

					sr.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireStaff())
						mr.Patch("/{id}/approve", h.Schedule.ApproveReservation)
						mr.Patch("/{id}/reject", h.Schedule.RejectReservation)
						mr.Patch("/{id}/complete", h.Schedule.CompleteReservation)
					})
				})
			}
		})
	})
}

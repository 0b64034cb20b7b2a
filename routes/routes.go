package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/playnow/reservas-api/handlers"
	"github.com/playnow/reservas-api/middleware"
	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/ratelimit"
)

// Handlers собирает все обработчики, которые монтирует роутер.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Reservations *handlers.ReservationHandler
	Admin        *handlers.AdminHandler
	Reports      *handlers.ReportHandler
	Reviews      *handlers.ReviewHandler
	Events       *handlers.EventsHandler
}

// Setup wires the full route table.
func Setup(h Handlers, jwtSecret string, allowedOrigins []string, actionLimiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Cookie-сессии с SPA на другом origin: credentials обязательны.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	optionalAuth := middleware.OptionalAuthenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/verify", h.Auth.Verify)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/admin", h.Auth.CreateAdmin)
			})
		})
	})

	r.Route("/reservas", func(r chi.Router) {
		// Гостевое бронирование, без сессии.
		r.Post("/invitado", h.Reservations.CreateGuest)

		// Ссылки из писем: публичные, но с лимитом на IP.
		r.Group(func(r chi.Router) {
			r.Use(actionLimiter.Middleware)
			r.Put("/{id}/confirm", h.Reservations.Confirm)
			r.Put("/{id}/cancel", h.Reservations.Cancel)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", h.Reservations.Create)
			r.Get("/mias", h.Reservations.ListMine)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/alladmin", h.Admin.ListAll)
				r.Put("/admin/{id}", h.Admin.Update)
				r.Delete("/admin/{id}", h.Admin.Delete)
				r.Get("/reporte/csv", h.Reports.ExportCSV)
				r.Post("/reporte/archivo", h.Reports.ArchiveCSV)
				r.Get("/eventos", h.Events.Subscribe)
			})
		})
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", h.Reviews.List)
		r.Get("/{id}", h.Reviews.Get)

		// Отзыв может оставить и гость, и вошедший пользователь.
		r.With(optionalAuth).Post("/", h.Reviews.Create)

		r.With(authenticate).Delete("/{id}", h.Reviews.Delete)
	})

	return r
}

package routes

import (
	"github.com/guyajeux/tournament-registry/handlers"
	"github.com/guyajeux/tournament-registry/middleware"
	"github.com/guyajeux/tournament-registry/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes собирает все маршруты приложения на переданном роутере.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	statsHandler *handlers.StatsHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	// Публичные маршруты
	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Get("/stats", statsHandler.SiteStatsHandler)
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/weekly", tournamentHandler.WeeklyHandler)
		r.Get("/monthly", tournamentHandler.MonthlyHandler)
		r.Get("/calendar/{year}/{month}", tournamentHandler.CalendarHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)

		// Регистрация на турнир — любой аутентифицированный пользователь
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{tournamentID}/register", registrationHandler.RegisterHandler)
			r.Delete("/{tournamentID}/register", registrationHandler.UnregisterHandler)
		})

		// Управление турнирами — организаторы и администраторы
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Put("/{tournamentID}", tournamentHandler.UpdateDetailsHandler)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatusHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
			r.Post("/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)
			r.Get("/{tournamentID}/registrations", registrationHandler.ListByTournamentHandler)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/{registrationID}/checkin", registrationHandler.CheckInHandler)
		r.Post("/{registrationID}/confirm", registrationHandler.ConfirmHandler)
		r.Post("/{registrationID}/feedback", registrationHandler.SubmitFeedbackHandler)

		r.Group(func(r chi.Router) {
			r.Use(organizerOnly)

			r.Put("/{registrationID}/result", registrationHandler.SubmitResultHandler)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)

		// Личный кабинет
		r.Get("/me", userHandler.GetMeHandler)
		r.Put("/me", userHandler.UpdateMeHandler)
		r.Put("/me/avatar", userHandler.UploadAvatarHandler)
		r.Get("/me/registrations", userHandler.MyRegistrationsHandler)
		r.Get("/me/stats", userHandler.MyStatsHandler)

		// Администрирование пользователей
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Get("/", userHandler.ListUsersHandler)
			r.Get("/{userID}", userHandler.GetUserByIDHandler)
			r.Put("/{userID}/status", userHandler.SetUserStatusHandler)
			r.Put("/{userID}/role", userHandler.SetUserRoleHandler)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)

		r.Get("/stats", statsHandler.AdminStatsHandler)
	})
}

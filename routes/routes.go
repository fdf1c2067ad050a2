package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arenaleague/arena/handlers"
	"github.com/arenaleague/arena/middleware"
	"github.com/arenaleague/arena/models"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	teamHandler *handlers.TeamHandler,
	inviteHandler *handlers.InviteHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/auth/me", authHandler.Me)

		r.Get("/ws/notifications", webSocketHandler.ServeWs)
		r.Get("/notifications", notificationHandler.List)
		r.Put("/notifications/{id}/read", notificationHandler.MarkRead)
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{id}", teamHandler.Get)
		r.Get("/{id}/players", teamHandler.ListPlayers)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/", teamHandler.Create)
			r.Delete("/{id}", teamHandler.Delete)
			r.Post("/{id}/media", teamHandler.UploadMedia)

			r.Post("/{id}/players", teamHandler.AddPlayer)
			r.Put("/{id}/players/{playerId}", teamHandler.UpdatePlayer)
			r.Delete("/{id}/players/{playerId}", teamHandler.RemovePlayer)

			r.Post("/{id}/invites", inviteHandler.Send)
			r.Get("/{id}/invites", inviteHandler.List)
			r.Get("/{id}/invite-links", inviteHandler.GetLink)
			r.Post("/{id}/invite-links", inviteHandler.GenerateLink)
			r.Put("/{id}/invite-links/{linkId}", inviteHandler.DeactivateLink)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Post("/invites/{id}/respond", inviteHandler.Respond)
		r.Delete("/invites/{id}", inviteHandler.Cancel)
		r.Post("/invite-links/join", inviteHandler.JoinByCode)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{id}", tournamentHandler.Get)
		r.Get("/{id}/matches", matchHandler.ListByTournament)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{id}/register", tournamentHandler.Register)
			r.Get("/{id}/registrations", tournamentHandler.ListRegistrations)
			r.Get("/{id}/waitlist", tournamentHandler.Waitlist)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireRoles(models.RoleTournamentAdmin, models.RoleSuperAdmin))
			r.Post("/", tournamentHandler.Create)
			r.Put("/{id}", tournamentHandler.Update)
			r.Put("/{id}/status", tournamentHandler.UpdateStatus)
			r.Put("/{id}/bracket", tournamentHandler.UpdateBracket)
			r.Put("/{id}/registrations/{registrationId}", tournamentHandler.DecideRegistration)
			r.Post("/{id}/matches", matchHandler.Create)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{id}", matchHandler.Get)
		r.Get("/{id}/dispute", matchHandler.GetDispute)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Put("/{id}", matchHandler.Update)
			r.Post("/{id}/dispute", matchHandler.RaiseDispute)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireRoles(models.RoleTournamentAdmin, models.RoleSuperAdmin))
			r.Put("/{id}/dispute/{disputeId}", matchHandler.ResolveDispute)
		})
	})
}

package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/matchday/docs"
	"github.com/Dosada05/matchday/handlers"
	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options - параметры маршрутизатора, не относящиеся к конкретным обработчикам.
type Options struct {
	JWTSecret      []byte
	CORSOrigins    []string
	RequestTimeout time.Duration
	WriteLimiter   *middleware.RateLimiter
	Logger         *slog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	matchHandler *handlers.MatchHandler,
	requestHandler *handlers.RequestHandler,
	tournamentHandler *handlers.TournamentHandler,
	teamHandler *handlers.TeamHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.Instrument)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Logger)

	// Долгоживущее соединение: без таймаута запроса и без access-лога,
	// токен приходит в query и не должен попасть в журнал
	router.With(authenticate).Get("/ws", webSocketHandler.ServeWs)

	router.Group(func(router chi.Router) {
		router.Use(chiMiddleware.Logger)

		router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		router.Handle("/metrics", metrics.Handler())
		router.Handle("/swagger/doc.json", docs.Handler())
		router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

		router.Route("/api/v1", func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
			r.Use(authenticate)

			// Чтение
			r.Get("/matches/{matchID}", matchHandler.GetMatch)
			r.Get("/matches/{matchID}/verifications", matchHandler.ListVerifications)
			r.Get("/zones/{zoneID}/requests", requestHandler.ListOpenRequests)
			r.Get("/tournaments/{tournamentID}", tournamentHandler.GetTournament)
			r.Get("/tournaments/{tournamentID}/standings", tournamentHandler.GetStandings)
			r.Get("/tournaments/{tournamentID}/fixtures", tournamentHandler.GetFixtures)
			r.Get("/teams/{teamID}", teamHandler.GetTeamByID)
			r.Get("/teams/{teamID}/eligibility", teamHandler.GetEligibility)
			r.Get("/notifications", notificationHandler.ListMyNotifications)

			// Запись, с ограничением частоты на пользователя
			r.Group(func(r chi.Router) {
				if opts.WriteLimiter != nil {
					r.Use(opts.WriteLimiter.Middleware)
				}

				r.Post("/matches", matchHandler.ReportMatch)
				r.Post("/matches/{matchID}/confirm", matchHandler.ConfirmMatch)
				r.Post("/matches/{matchID}/reject", matchHandler.RejectMatch)

				r.Post("/requests", requestHandler.PostRequest)
				r.Post("/requests/{requestID}/accept", requestHandler.AcceptRequest)

				r.Post("/tournaments", tournamentHandler.CreateTournament)
				r.Post("/tournaments/{tournamentID}/entries", tournamentHandler.RegisterTeam)
				r.Post("/tournaments/{tournamentID}/draw", tournamentHandler.StartDraw)
			})
		})
	})
}

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/edvance/edvance-lms/internal/api/http"
	"github.com/edvance/edvance-lms/internal/auth"
	"github.com/edvance/edvance-lms/internal/config"
	"github.com/edvance/edvance-lms/internal/course"
	"github.com/edvance/edvance-lms/internal/db"
	"github.com/edvance/edvance-lms/internal/lockout"
	"github.com/edvance/edvance-lms/internal/logging"
	"github.com/edvance/edvance-lms/internal/quiz"
	"github.com/edvance/edvance-lms/internal/rbac"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}

	// --- Stores & services ---
	courseStore := course.NewSQLStore(dbh)
	lockStore := lockout.NewSQLStore(dbh)
	quizStore := quiz.NewSQLStore(dbh, cfg.DBDriver)
	users := auth.NewUserStore(dbh)

	resolver := course.NewResolver(courseStore, log)
	quizLocks := lockout.NewQuizLockManager(lockStore, log)
	secLocks := lockout.NewSecurityLockManager(lockStore, cfg.Engine.ViolationThreshold, log)
	workflow := lockout.NewWorkflow(lockStore, users, log)
	ledger := quiz.NewLedger(quizStore, resolver, quizLocks, secLocks, log)

	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, users))

	// Protected API (JWT → identity in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Progression
		pr.With(rbac.Require("units:view")).
			Get("/units", api.ListUnitsHandler(resolver))
		pr.With(rbac.Require("progress:video")).
			Post("/progress/video", api.VideoWatchedHandler(resolver))

		// Quiz flow
		pr.With(rbac.Require("quiz:availability")).
			Get("/units/{unitID}/quiz/availability", api.QuizAvailabilityHandler(ledger))
		pr.With(rbac.Require("quiz:attempt")).
			Get("/units/{unitID}/quiz", api.StartQuizHandler(ledger))
		pr.With(rbac.Require("quiz:attempt")).
			Post("/units/{unitID}/quiz/attempt", api.SubmitAttemptHandler(ledger))

		// Pool administration
		pr.With(rbac.Require("pool:contribute")).
			Post("/units/{unitID}/questions", api.AddQuestionHandler(ledger))
		pr.With(rbac.Require("pool:analytics")).
			Get("/pools/{unitID}/analytics", api.PoolAnalyticsHandler(ledger))

		// Course/unit administration
		pr.With(rbac.Require("units:manage")).
			Post("/courses", api.UpsertCourseHandler(courseStore, cfg.Engine))
		pr.With(rbac.Require("units:manage")).
			Post("/units", api.UpsertUnitHandler(courseStore))
		pr.With(rbac.Require("units:manage")).
			Put("/units/{unitID}", api.UpsertUnitHandler(courseStore))

		// Locks & unlock workflow
		pr.With(rbac.Require("locks:view")).
			Get("/locks", api.LockStatusHandler(workflow))
		pr.With(rbac.Require("locks:unlock")).
			Post("/locks/unlock", api.UnlockHandler(workflow))
		pr.With(rbac.Require("violations:report")).
			Post("/violations", api.ReportViolationHandler(secLocks))
		pr.With(rbac.Require("unlock-request:create")).
			Post("/unlock-requests", api.CreateUnlockRequestHandler(workflow))
		pr.With(rbac.RequireAny("unlock-request:review", "unlock-request:create")).
			Get("/unlock-requests", api.ListUnlockRequestsHandler(workflow))
		pr.With(rbac.Require("unlock-request:review")).
			Post("/unlock-requests/{requestID}/review", api.ReviewUnlockRequestHandler(workflow))

		// Users
		pr.With(rbac.Require("users:create")).
			Post("/users", api.CreateUserHandler(users))
		pr.Post("/users/change-password", api.ChangePasswordHandler(users))
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.DBDriver).Msg("gateway listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

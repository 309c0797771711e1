package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/config"
	"github.com/sena-seguimiento/assignment-service/internal/delivery/httpd"
	"github.com/sena-seguimiento/assignment-service/internal/repository"
	"github.com/sena-seguimiento/assignment-service/internal/service"
	"github.com/sena-seguimiento/assignment-service/internal/service/integration"
)

type App struct {
	server *http.Server
	logger zerolog.Logger
	config *config.Config
	db     *sql.DB
	events integration.EventPublisher
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	portalClient := integration.NewPortalClient(
		cfg.Portal.URL,
		cfg.Portal.FormEndpoint,
		cfg.Portal.Timeout,
		cfg.Portal.RetryCount,
		cfg.Portal.RetryDelay,
		log,
	)

	events, err := integration.NewEventPublisher(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		log,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create RabbitMQ publisher")
		// Events are best effort; the workflow runs without them.
	}

	requestRepo := repository.NewRequestRepository(db, log)
	instructorRepo := repository.NewInstructorRepository(db, log)
	messageRepo := repository.NewMessageRepository(db, log)
	areaRepo := repository.NewKnowledgeAreaRepository(db, log)

	assignmentService := service.NewAssignmentService(
		requestRepo,
		instructorRepo,
		messageRepo,
		portalClient,
		events,
		log,
	)
	rejectionService := service.NewRejectionService(requestRepo, messageRepo, events, log)
	instructorService := service.NewInstructorService(instructorRepo, areaRepo, log)
	ledgerService := service.NewLedgerService(messageRepo, requestRepo, log)

	handler := httpd.NewHandler(
		assignmentService,
		rejectionService,
		instructorService,
		ledgerService,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server: server,
		logger: log,
		config: cfg,
		db:     db,
		events: events,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting assignment service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down assignment service...")

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}

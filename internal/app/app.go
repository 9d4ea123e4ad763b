package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/config"
	"github.com/RubachokBoss/mentor-service/internal/database"
	"github.com/RubachokBoss/mentor-service/internal/delivery/httpd"
	"github.com/RubachokBoss/mentor-service/internal/lock"
	"github.com/RubachokBoss/mentor-service/internal/repository"
	"github.com/RubachokBoss/mentor-service/internal/service"
	"github.com/RubachokBoss/mentor-service/internal/service/integration"
	"github.com/RubachokBoss/mentor-service/internal/worker"
	"github.com/RubachokBoss/mentor-service/pkg/idgen"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	server      *http.Server
	logger      zerolog.Logger
	config      *config.Config
	store       *repository.Store
	pool        *worker.WorkerPool
	publisher   integration.EventPublisher
	redisClient *redis.Client
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	locker, redisClient, err := newLocker(ctx, cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	publisher := newPublisher(cfg, log)

	pool := worker.NewWorkerPool(cfg.Assignment.BatchConcurrency, log)
	pool.Start()

	router := NewRouter(cfg, log, store, locker, pool, publisher, idgen.New)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:      server,
		logger:      log,
		config:      cfg,
		store:       store,
		pool:        pool,
		publisher:   publisher,
		redisClient: redisClient,
	}, nil
}

// NewRouter wires services over an already opened store and returns the HTTP handler.
func NewRouter(
	cfg *config.Config,
	log zerolog.Logger,
	store *repository.Store,
	locker lock.Locker,
	pool *worker.WorkerPool,
	publisher integration.EventPublisher,
	newID idgen.Generator,
) http.Handler {
	studentService := service.NewStudentService(store.Students, newID, cfg.IDs.MaxAttempts, log)
	mentorService := service.NewMentorService(store.Mentors, store.Students, newID, cfg.IDs.MaxAttempts, log)
	assignmentService := service.NewAssignmentService(
		store.Students,
		store.Mentors,
		locker,
		pool,
		publisher,
		service.AssignmentOptions{
			CascadeDelete: cfg.Assignment.CascadeDelete,
			RosterRetries: cfg.Assignment.RosterRetries,
			RetryDelay:    cfg.Assignment.RetryDelay,
			CASRetries:    cfg.Assignment.CASRetries,
		},
		log,
	)

	reportService := service.NewReportService(store.Students, store.Mentors, log)

	handler := httpd.NewHandler(studentService, mentorService, assignmentService, reportService, store, log)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpd.RequestLogger(log))
	router.Use(httpd.Recovery(log))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)
	return router
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil

	case config.DriverMongo:
		store, err := repository.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout, log)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		log.Info().Msg("Database connection established")
		return repository.NewPostgresStore(db, log), nil
	}
}

func newLocker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (lock.Locker, *redis.Client, error) {
	switch cfg.Assignment.Locking {
	case config.LockingNone:
		log.Warn().Msg("Per-record locking is disabled, concurrent assignments rely on compare-and-swap only")
		return lock.NewNop(), nil, nil

	case config.LockingRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis lock backend connected")
		return lock.NewRedis(client, cfg.Assignment.LockTTL, cfg.Assignment.LockRetryWait, log), client, nil

	default:
		return lock.NewLocal(), nil, nil
	}
}

func newPublisher(cfg *config.Config, log zerolog.Logger) integration.EventPublisher {
	if !cfg.RabbitMQ.Enabled {
		return integration.NewNopPublisher()
	}

	publisher, err := integration.NewRabbitMQClient(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		log,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create RabbitMQ client, assignment events are disabled")
		return integration.NewNopPublisher()
	}
	return publisher
}

func (a *App) Run() error {
	a.logger.Info().
		Str("address", a.config.Server.Address).
		Str("store", a.store.Driver).
		Msg("Starting mentor service")

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down mentor service...")

	err := a.server.Shutdown(ctx)

	a.pool.Stop()

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close record store")
	}

	return err
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	appControllers "github.com/yigit/eventhub/internal/app/controllers"
	"github.com/yigit/eventhub/internal/app/fanout"
	appMigrations "github.com/yigit/eventhub/internal/app/migrations"
	appRepos "github.com/yigit/eventhub/internal/app/repositories"
	appRoutes "github.com/yigit/eventhub/internal/app/routes"
	appServices "github.com/yigit/eventhub/internal/app/services"
	"github.com/yigit/eventhub/internal/config"
	"github.com/yigit/eventhub/internal/db"
	appMiddleware "github.com/yigit/eventhub/internal/middleware"
	pkgAuth "github.com/yigit/eventhub/internal/pkg/auth"
	"github.com/yigit/eventhub/internal/pkg/logger"
	"github.com/yigit/eventhub/internal/seed"
	"github.com/yigit/eventhub/internal/worker"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config         *config.Config
	Logger         zerolog.Logger
	DBPool         *pgxpool.Pool
	Redis          *redis.Client // nil when no Redis address is configured
	Repos          *appRepos.Repositories
	Notifications  appRepos.NotificationStore
	Services       *appServices.Services
	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Dispatcher     *fanout.Dispatcher
	ReminderSweep  *fanout.ReminderSweep

	shutdownTracing func(context.Context) error
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.ConfigFromStrings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database.Pool, nil
}

// RunMigrations applies every pending embedded migration
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, lgr zerolog.Logger) error {
	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(pool, lgr).Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// SetupRedis connects to Redis, or returns nil when it is not configured
func SetupRedis(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		lgr.Info().Msg("Redis not configured, unread counters are served from the database")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		lgr.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	return client, nil
}

// SetupTracing installs the global tracer provider and returns its shutdown function.
// Without an exporter spans are still created so trace ids reach the logs.
func SetupTracing(cfg *config.Config, lgr zerolog.Logger) (func(context.Context) error, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.Tracing.ServiceName),
		)),
	}

	exporter, err := newSpanExporter(cfg.Tracing.Exporter, os.Stdout)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	lgr.Info().
		Str("service", cfg.Tracing.ServiceName).
		Str("exporter", cfg.Tracing.Exporter).
		Float64("sampleRatio", cfg.Tracing.SampleRatio).
		Msg("Tracing configured")
	return provider.Shutdown, nil
}

// newSpanExporter builds the exporter named by tracing.exporter; "none" yields nil
func newSpanExporter(kind string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch kind {
	case "", config.TracingExporterNone:
		return nil, nil
	case config.TracingExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout span exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", kind)
	}
}

// BuildDependencies initializes repositories, services and the fan-out engine.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, redisClient *redis.Client, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: lgr,
		DBPool: dbPool,
		Redis:  redisClient,
	}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.Notifications = deps.Repos.NotificationRepository
	if redisClient != nil {
		deps.Notifications = appRepos.NewCachedNotificationStore(
			deps.Repos.NotificationRepository,
			redisClient,
			config.Duration(cfg.Redis.UnreadTTL),
			cfg.Redis.FeedChannel,
			logger.Component("notification-cache"),
		)
	}

	deps.Services = appServices.NewServices(deps.Repos, deps.Notifications, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: config.Duration(cfg.JWT.AccessTokenExpiration),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	policy, err := fanout.NewPolicy(cfg.Notifications.SignificantFields)
	if err != nil {
		return nil, fmt.Errorf("failed to build significance policy: %w", err)
	}
	writer := fanout.NewBatchWriter(deps.Notifications, cfg.Notifications.BatchLimit)
	composer := fanout.NewComposer(cfg.Notifications.LinkPrefix)

	deps.Dispatcher = fanout.NewDispatcher(
		fanout.NewAudienceResolver(deps.Repos.UserRepository),
		policy,
		writer,
		composer,
		logger.Component("dispatcher"),
	)
	deps.ReminderSweep = fanout.NewReminderSweep(
		deps.Repos.EventRepository,
		writer,
		composer,
		config.Duration(cfg.Notifications.ReminderWindow),
		logger.Component("reminder-sweep"),
	)

	return deps, nil
}

// Open loads configuration and builds every dependency. Migrations and the
// default admin seed run when migrate is set.
func Open(ctx context.Context, configPath string, migrate bool) (*Dependencies, error) {
	cfg, lgr, err := LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	shutdownTracing, err := SetupTracing(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup tracing: %w", err)
	}

	dbPool, err := SetupDatabase(cfg, lgr)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	if migrate {
		if err := RunMigrations(ctx, dbPool, lgr); err != nil {
			dbPool.Close()
			_ = shutdownTracing(ctx)
			return nil, err
		}
	}

	redisClient, err := SetupRedis(ctx, cfg, lgr)
	if err != nil {
		dbPool.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	deps, err := BuildDependencies(cfg, dbPool, redisClient, lgr)
	if err != nil {
		dbPool.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}
	deps.shutdownTracing = shutdownTracing

	if migrate {
		if err := seed.CreateDefaultAdmin(ctx, deps.Repos.UserRepository, cfg, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default admin, proceeding anyway...")
		}
	}

	return deps, nil
}

// Close releases the database pool, the Redis client and the tracer provider
func (d *Dependencies) Close(ctx context.Context) error {
	var errs error
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if d.DBPool != nil {
		d.Logger.Info().Msg("Closing database connection pool...")
		d.DBPool.Close()
	}
	if d.shutdownTracing != nil {
		if err := d.shutdownTracing(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("shutting down tracing: %w", err))
		}
	}
	return errs
}

// HealthChecks returns the dependency probes reported by the health endpoint
func (d *Dependencies) HealthChecks() map[string]appControllers.HealthCheck {
	checks := map[string]appControllers.HealthCheck{
		"postgres": d.DBPool.Ping,
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// NewConsumer builds the change consumer feeding the dispatcher
func (d *Dependencies) NewConsumer() *worker.Consumer {
	return worker.NewConsumer(
		d.Repos.ChangeRepository,
		d.Dispatcher,
		worker.ConsumerConfig{
			PollInterval: config.Duration(d.Config.Worker.PollInterval),
			ClaimBatch:   d.Config.Worker.ClaimBatch,
			LeaseTimeout: config.Duration(d.Config.Worker.LeaseTimeout),
		},
		logger.Component("consumer"),
	)
}

// NewScheduler builds the scheduler running the reminder sweep and the retention purge
func (d *Dependencies) NewScheduler() (*worker.Scheduler, error) {
	scheduler := worker.NewScheduler(logger.Component("scheduler"))

	if err := scheduler.Add("reminder-sweep", d.Config.Notifications.ReminderSchedule,
		worker.ReminderJob(d.ReminderSweep, logger.Component("reminder-sweep"))); err != nil {
		return nil, err
	}

	if err := scheduler.Add("retention", d.Config.Notifications.RetentionSchedule,
		worker.RetentionJob(
			d.Services.NotificationService,
			d.Repos.ChangeRepository,
			config.Duration(d.Config.Notifications.Retention),
			logger.Component("retention"),
		)); err != nil {
		return nil, err
	}

	return scheduler, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.Recovery(lgr), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router, appRoutes.Controllers{
		User:         appControllers.NewUserController(deps.Services.UserService),
		Event:        appControllers.NewEventController(deps.Services.EventService),
		Notification: appControllers.NewNotificationController(deps.Services.NotificationService),
		Health:       appControllers.NewHealthController(deps.HealthChecks()),
	}, deps.AuthMiddleware)

	return router
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/auth"
	"braincraft/internal/config"
	"braincraft/internal/infra/memory"
	"braincraft/internal/infra/postgres"
	rediscache "braincraft/internal/infra/redis"
	"braincraft/internal/logging"
	"braincraft/internal/metrics"
	transport "braincraft/internal/transport/http"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// storage is the set of repositories behind the services, either
// Postgres-backed or in memory.
type storage struct {
	users     app.UserRepository
	quizzes   app.QuizRepository
	attempts  app.AttemptRepository
	loader    app.AnswerKeyLoader
	boards    app.LeaderboardReader
	analytics app.AnalyticsReader
	catalog   app.CatalogReader
	pinger    transport.Pinger
	close     func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var keys app.AnswerKeyRepository
	var registry app.BoardRegistry
	if redisClient != nil {
		keys = rediscache.NewAnswerKeyCache(redisClient, store.loader, quizTTL)
		registry = rediscache.NewBoardRegistry(redisClient, redisTTL)
	} else {
		keys = memory.NewAnswerKeyCache(store.loader, quizTTL)
		registry = memory.NewBoardRegistry()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if cfg.Postgres.URL != "" {
			return errors.New("auth.jwt_secret (JWT_SECRET) is required with postgres")
		}
		secret = uuid.NewString()
		log.Warn("no jwt secret configured; using a random one, sessions end on restart")
	}
	tokens, err := auth.NewTokens(secret, config.TTLDuration(cfg.Auth.TokenTTL, 7*24*time.Hour))
	if err != nil {
		return err
	}

	leaderboards := app.NewLeaderboardService(store.boards, store.quizzes, registry)
	services := transport.Services{
		Users:        app.NewUserService(store.users, store.analytics, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens),
		Quizzes:      app.NewQuizService(store.quizzes, keys, log),
		Attempts:     app.NewAttemptService(store.attempts, keys, leaderboards, log),
		Leaderboards: leaderboards,
		Analytics:    app.NewAnalyticsService(store.analytics, store.quizzes, store.catalog),
		Catalog:      app.NewCatalogService(store.catalog),
	}
	api := transport.NewServer(services, auth.NewSessionProvider(tokens), store.pinger, metrics.New(), log, transport.Options{
		SecureCookie: cfg.Auth.SecureCookie,
		CookieTTL:    tokens.TTL(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.Handler(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStorage connects to Postgres when configured and applies pending
// migrations; otherwise it falls back to the in-memory store.
func openStorage(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (storage, error) {
	if cfg.Postgres.URL == "" {
		log.Warn("postgres not configured; data is kept in memory")
		mem := memory.NewStore()
		return storage{
			users: mem, quizzes: mem, attempts: mem, loader: mem,
			boards: mem, analytics: mem, catalog: mem, pinger: mem,
			close: func() {},
		}, nil
	}

	db, err := openBun(cfg)
	if err != nil {
		return storage{}, err
	}
	if err := applyMigrations(ctx, db, log); err != nil {
		db.Close()
		return storage{}, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return storage{}, err
	}

	writes := postgres.NewStore(db)
	reads := postgres.NewReadModel(pool)
	return storage{
		users: writes, quizzes: writes, attempts: writes, loader: reads,
		boards: reads, analytics: reads, catalog: reads, pinger: reads,
		close: func() {
			pool.Close()
			_ = db.Close()
		},
	}, nil
}

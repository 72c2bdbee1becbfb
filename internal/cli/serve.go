package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/cache"
	"github.com/SAP-F-2025/quizform-service/internal/config"
	"github.com/SAP-F-2025/quizform-service/internal/handlers"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/mongodb"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/SAP-F-2025/quizform-service/internal/validator"
	"github.com/SAP-F-2025/quizform-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	storePostgres = "postgres"
	storeMongo    = "mongo"
	storeMemory   = "memory"

	shutdownTimeout = 10 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")
	return cmd
}

// cleanup runs in reverse order on shutdown.
type cleanup []func()

func (c *cleanup) add(fn func()) {
	*c = append(*c, fn)
}

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func runServer(ctx context.Context, cfg *config.Config, migrate bool) error {
	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var closers cleanup
	defer closers.run()

	if migrate {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	repo, err := openRepository(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	timers, answers, err := openStores(ctx, cfg, slogger, &closers)
	if err != nil {
		return err
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	closers.add(func() {
		if err := publisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	})

	identity, err := identityProvider(cfg)
	if err != nil {
		return err
	}

	v := validator.New()
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:          repo,
		Timers:        timers,
		Answers:       answers,
		Publisher:     publisher,
		Validator:     v,
		Logger:        slogger,
		AutosaveDelay: cfg.AutosaveDelay,
	})
	closers.add(serviceManager.Close)

	router := handlers.NewHandlerManager(serviceManager, v, identity, repo, logger).NewRouter()
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting quizform service",
			"port", cfg.Port,
			"store", cfg.StoreDriver,
			"auth", cfg.AuthProvider,
			"environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRepository(ctx context.Context, cfg *config.Config, closers *cleanup) (repositories.Repository, error) {
	switch cfg.StoreDriver {
	case storePostgres:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		closers.add(func() { _ = pkg.CloseDatabase(db) })
		return postgres.NewRepository(db), nil
	case storeMongo:
		database, err := pkg.NewMongoDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		closers.add(func() { _ = database.Client().Disconnect(context.Background()) })
		return mongodb.NewRepository(database), nil
	case storeMemory:
		return memory.NewRepository(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openStores keeps countdowns and held answers in Redis when REDIS_URL is
// set and in process memory otherwise.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *cleanup) (timer.Store, *cache.AnswerStore, error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, countdowns and held answers live in memory")
		return timer.NewMemoryStore(), cache.NewAnswerStore(cache.NewMemoryCache(), cfg.TimerKeyTTL), nil
	}

	client, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers.add(func() { _ = client.Close() })

	return cache.NewCountdownStore(client, cfg.TimerKeyTTL),
		cache.NewAnswerStore(cache.NewRedisCache(client, logger), cfg.TimerKeyTTL),
		nil
}

func identityProvider(cfg *config.Config) (auth.IdentityProvider, error) {
	switch cfg.AuthProvider {
	case "jwt":
		return auth.NewJWTProvider(cfg.JWTSecret), nil
	case "casdoor":
		return auth.NewCasdoorProvider(cfg.Casdoor), nil
	case "none":
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_PROVIDER=none is not allowed in production")
		}
		return auth.AnonymousProvider{}, nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
}

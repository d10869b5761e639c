package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scorer-backend/internal/cache"
	"scorer-backend/internal/config"
	"scorer-backend/internal/handlers"
	"scorer-backend/internal/repository"
	"scorer-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

// stores bundles the selected backend with its cleanup
type stores struct {
	users   repository.UserStore
	matches repository.MatchStore
	close   func()
}

func Run() {
	configPath := flag.String("config", os.Getenv("SCORER_CONFIG"), "path to the YAML config file")
	flag.Parse()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx := context.Background()

	// Connect to the document store
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open store")
	}
	defer st.close()

	// Leaderboard cache is optional and fails open
	var boards *cache.LeaderboardCache
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, leaderboard cache disabled")
		} else {
			defer client.Close()
			boards = cache.NewLeaderboardCache(client, cfg.Redis.LeaderboardTTL)
			log.Info().Dur("ttl", cfg.Redis.LeaderboardTTL).Msg("Leaderboard cache enabled")
		}
	}

	// Identity provider keys
	verifier := services.NewJWKSVerifier(services.JWKSOptions{
		Domain:   cfg.Auth.Domain,
		Audience: cfg.Auth.Audience,
	})
	scheduler, err := verifier.StartRefresh(cfg.Auth.JWKSRefreshInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule JWKS refresh")
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(st.users, verifier)
	friendService := services.NewFriendService(st.users, wsHub, boards)
	matchService := services.NewMatchService(st.matches, st.users, wsHub, boards)

	router := handlers.NewRouter(handlers.RouterConfig{
		UserService:    userService,
		FriendService:  friendService,
		MatchService:   matchService,
		Hub:            wsHub,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Int("websocket_clients", wsHub.OnlineCount()).Msg("Server exited")
}

// openStores connects the backend named by store.driver
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Database connection established")
		return &stores{
			users:   repository.NewUserRepository(db),
			matches: repository.NewMatchRepository(db),
			close:   db.Close,
		}, nil

	case config.StoreDriverDynamoDB:
		client, err := repository.NewDynamoClient(ctx, repository.DynamoOptions{
			Region:    cfg.DynamoDB.Region,
			Endpoint:  cfg.DynamoDB.Endpoint,
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		users := repository.NewDynamoUserRepository(client, cfg.DynamoDB.UsersTable)
		if err := users.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach dynamodb: %w", err)
		}
		log.Info().
			Str("users_table", cfg.DynamoDB.UsersTable).
			Str("matches_table", cfg.DynamoDB.MatchesTable).
			Msg("DynamoDB client ready")
		return &stores{
			users:   users,
			matches: repository.NewDynamoMatchRepository(client, cfg.DynamoDB.MatchesTable),
			close:   func() {},
		}, nil

	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return &stores{
			users:   repository.NewMemoryUserStore(),
			matches: repository.NewMemoryMatchStore(),
			close:   func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string, pretty bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

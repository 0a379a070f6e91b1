package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suar-net/arango-go/arango"
	"github.com/suar-net/arango-go/internal/config"
	"github.com/suar-net/arango-go/internal/database"
	"github.com/suar-net/arango-go/internal/handler"
	"github.com/suar-net/arango-go/internal/observability"
	"github.com/suar-net/arango-go/internal/repository"
	"github.com/suar-net/arango-go/internal/service"
	"github.com/suar-net/arango-go/protocol"
)

var version = "dev"

func setupLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return log.Logger
}

func newConnection(cfg config.ArangoConfig, logger zerolog.Logger) (*protocol.Connection, error) {
	connLogger := logger.With().Str("component", "arangodb").Str("alias", cfg.Alias).Logger()
	return protocol.NewConnection(protocol.ConnectionOptions{
		Alias:        cfg.Alias,
		Hostname:     cfg.Host,
		Port:         cfg.Port,
		IsSecured:    cfg.Secure,
		DatabaseName: cfg.Database,
		Username:     cfg.User,
		Password:     cfg.Pass,
		JWTSecret:    cfg.JWTSecret,
		UseWebProxy:  cfg.UseWebProxy,
		Transport:    observability.TracingTransport(protocol.NewTransport(cfg.UseWebProxy), cfg.Alias),
		Logger:       &connLogger,
	})
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables from OS")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := setupLogger(cfg.Log)

	shutdownTracing, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}

	conn, err := newConnection(cfg.Arango, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid arangodb connection settings")
	}
	registry := arango.NewRegistry()
	if err := registry.Add(conn); err != nil {
		logger.Fatal().Err(err).Msg("failed to register arangodb connection")
	}

	var (
		db      *sql.DB
		history repository.IRequestRepository
	)
	if cfg.DB.Enabled() {
		db, err = database.ConnectDB(cfg.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = database.Migrate(migrateCtx, db)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		history = repository.NewRepository(db).Request()
		logger.Info().Str("host", cfg.DB.Host).Msg("request history enabled")
	} else {
		logger.Info().Msg("DB_HOST not set, request history disabled")
	}

	router := handler.SetupRouter(handler.Dependencies{
		Auth:           service.NewAuthService(cfg.Auth, cfg.JWT),
		Gateway:        service.NewGatewayService(registry, cfg.Arango.Alias, history, logger),
		Client:         arango.NewClient(conn),
		DB:             db,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Str("arangodb", conn.BaseURI()).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Str("port", cfg.Server.Port).Msg("cannot run server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down the server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error().Err(err).Msg("tracing shutdown failed")
	}
	logger.Info().Msg("server successfully shut down")
}

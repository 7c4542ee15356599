package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	botapi "github.com/spec-kit/ticket-bot/internal/api/discord"
	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	discordplatform "github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("ticketbot: %v", err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("ticketbot", pflag.ContinueOnError)
	var (
		envFile         string
		logLevel        string
		skipCommandSync bool
	)
	flags.StringVar(&envFile, "env-file", "", "load environment variables from this file before .env")
	flags.StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	flags.BoolVar(&skipCommandSync, "skip-command-sync", false, "do not overwrite slash commands on startup")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if skipCommandSync {
		cfg.Discord.SkipCommandSync = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handlers.Check{}
	var sessions persistence.SessionStore = persistence.NewMemorySessionStore(time.Now)
	if cfg.Redis.Enabled() {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		sessions = redis.Sessions(time.Now)
		checks["redis"] = redis.Ping
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	deps := service.Dependencies{
		Platform:   discordplatform.NewClient(session),
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Discord,
	}
	configurator := service.NewConfiguratorService(deps)
	participants := service.NewParticipantService(deps)
	panel := service.NewPanelService(deps, participants)

	metrics := observability.NewMetrics()
	router := botapi.NewRouter(logger, metrics, botapi.DefaultHandlerTimeout)
	botapi.RegisterRoutes(router, botapi.RouteConfig{
		Configurator: configurator,
		Panel:        panel,
		Participants: participants,
	})
	gateway := botapi.NewGateway(router, cfg.Discord, logger)
	gateway.Attach(session)
	checks["gateway"] = gateway.Check

	if err := session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer session.Close() //nolint:errcheck
	defer configurator.Shutdown()

	if cfg.App.HealthEnabled {
		app := httptransport.NewServer(httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
			Metrics: handlers.NewMetricsHandler(metrics),
		}, httptransport.ServerOptions{
			Name:    cfg.App.Name,
			Logger:  logger,
			Metrics: metrics,
			Timeout: 5 * time.Second,
		})
		go func() {
			if err := app.Listen(cfg.App.Addr()); err != nil {
				logger.Error("health server stopped", zap.Error(err))
			}
		}()
		defer app.Shutdown() //nolint:errcheck
	}

	logger.Info("ticket bot running",
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.Bool("staff_role_configured", cfg.Discord.HasStaffRole()),
		zap.Bool("redis_sessions", cfg.Redis.Enabled()))

	waitForShutdown(logger)
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"resitrack/backend/internal/config"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/docstore/fsstore"
	"resitrack/backend/internal/docstore/memstore"
	"resitrack/backend/internal/domain/account"
	"resitrack/backend/internal/domain/facility"
	"resitrack/backend/internal/domain/invitation"
	"resitrack/backend/internal/domain/maintenance"
	"resitrack/backend/internal/firebase"
	apihttp "resitrack/backend/internal/http"
	"resitrack/backend/internal/identity"
	"resitrack/backend/internal/logging"
	"resitrack/backend/internal/notify"
	"resitrack/backend/internal/telemetry"
	"resitrack/backend/internal/txn"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, "resitrack-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracer init failed", zap.Error(err))
	}

	var (
		store    docstore.Store
		provider identity.Provider
		notifier = notify.Fanout{notify.Log{Logger: logger}}
	)
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory store and identity provider; data is lost on exit")
		store = memstore.New()
		provider = identity.NewMemory()

	default:
		clients, err := firebase.NewClients(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("firebase init failed", zap.Error(err))
		}
		defer clients.Close()

		toolkit, err := identity.NewToolkit(ctx, cfg.WebAPIKey)
		if err != nil {
			logger.Fatal("identity toolkit init failed", zap.Error(err))
		}
		if toolkit == nil {
			logger.Warn("FIREBASE_WEB_API_KEY not set, password sign-in disabled")
		}

		store = fsstore.New(clients.Firestore)
		provider = identity.NewFirebase(clients.Auth, toolkit)
		if clients.Messaging != nil {
			notifier = append(notifier, notify.NewPush(store, clients.Messaging))
		}
	}

	runner, err := txn.NewRunner(store, txn.WithPolicy(cfg.TxPolicy()), txn.WithLogger(logger))
	if err != nil {
		logger.Fatal("transaction runner init failed", zap.Error(err))
	}

	inbox := notify.NewInbox(store, runner)
	notifier = append(notifier, inbox)

	if cfg.AMQPURL != "" {
		broker, err := notify.DialBroker(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			logger.Fatal("event broker init failed", zap.Error(err))
		}
		defer func() { _ = broker.Close() }()
		notifier = append(notifier, broker)
		logger.Info("publishing events", zap.String("exchange", cfg.EventsExchange))
	}

	// Repositories
	accountRepo := account.NewRepo(store)
	facilityRepo := facility.NewRepo(store)

	// Services
	facilitySvc := facility.NewService(facilityRepo, runner, notifier, logger)
	maintenanceSvc := maintenance.NewService(maintenance.NewRepo(store), runner, accountRepo, notifier, logger)
	maintenanceSvc.SetLocation(cfg.Location())
	invitationSvc := invitation.NewService(invitation.NewRepo(store), runner, provider, notifier, logger)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:            cfg,
		Logger:         logger,
		Identity:       provider,
		Sessions:       account.NewSessionResolver(provider, accountRepo),
		AccountRepo:    accountRepo,
		FacilityRepo:   facilityRepo,
		FacilitySvc:    facilitySvc,
		MaintenanceSvc: maintenanceSvc,
		InvitationSvc:  invitationSvc,
		Tokens:         notify.NewTokens(store),
		Inbox:          inbox,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	go func() {
		logger.Info("API listening",
			zap.String("port", cfg.Port),
			zap.String("project", cfg.ProjectID),
			zap.String("backend", cfg.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down...")
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	runner.Wait()
	if err := shutdownTracer(ctxShutdown); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

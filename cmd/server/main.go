package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"showroom-gateway/internal/actor"
	"showroom-gateway/internal/api"
	"showroom-gateway/internal/audit"
	"showroom-gateway/internal/automation"
	"showroom-gateway/internal/completion"
	"showroom-gateway/internal/config"
	"showroom-gateway/internal/conversation"
	"showroom-gateway/internal/database"
	"showroom-gateway/internal/dedup"
	"showroom-gateway/internal/dispatch"
	"showroom-gateway/internal/health"
	"showroom-gateway/internal/intent"
	"showroom-gateway/internal/inventory"
	"showroom-gateway/internal/phone"
	"showroom-gateway/internal/report"
	"showroom-gateway/internal/webhook"
	"showroom-gateway/internal/whatsapp"
	"showroom-gateway/internal/workflow"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	database.SyncConfig(db, cfg)

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, admin API will reject every request")
	}

	normalizer := phone.NewNormalizer(phone.Rules{
		CountryCode:           cfg.PhoneCountryCode,
		MaxDigits:             cfg.PhoneMaxDigits,
		OpaquePrefixes:        cfg.PhoneOpaquePrefixes,
		OpaquePrefixMinDigits: cfg.PhoneOpaquePrefixMinDigits,
		OpaqueDomains:         []string{"lid"},
		Overrides:             cfg.PhoneOverrides,
	})
	roster := actor.GormRoster{DB: db}
	recorder := audit.NewRecorder(db)
	conversations := conversation.NewStore(db)
	monitor := health.NewMonitor(db, health.Options{LazyRecover: cfg.AIHealthLazyRecover}, logger)
	dispatcher := dispatch.NewDispatcher(whatsapp.NewClient(cfg), recorder, logger)

	engine := automation.NewEngine(automation.Deps{
		DB:            db,
		Ledger:        dedup.NewLedger(db),
		Normalizer:    normalizer,
		Roster:        roster,
		Actors:        actor.NewClassifier(roster, normalizer, logger),
		Intents:       intent.NewClassifier(),
		Conversations: conversations,
		Workflows:     workflow.NewMachine(cfg.WorkflowInactivity),
		Health:        monitor,
		Inventory:     inventory.New(db),
		Reports:       report.NewBuilder(db),
		Renderer:      report.CSVRenderer{},
		Completion:    completion.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, cfg.LLMRatePerMin),
		Dispatcher:    dispatcher,
		Audit:         recorder,
		Logger:        logger,
		FallbackText:  cfg.AIFallbackMessage,
		HistoryTurns:  cfg.LLMHistoryTurns,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	webhookHandler := webhook.NewHandler(cfg, engine, webhook.GormTenants{DB: db}, logger)
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api.RegisterRoutes(r, cfg.AdminToken, api.Handlers{
		Dashboard:     api.NewDashboardHandler(recorder, dispatcher, conversations, normalizer, cfg.AIName),
		Automation:    api.NewAutomationHandler(monitor),
		Conversations: api.NewConversationHandler(conversations, normalizer),
		Maintenance:   api.NewMaintenanceHandler(db, logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		logger.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// Package main is the entry point for the routing API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/channel"
	"github.com/capitalize-ai/conversation-router/internal/config"
	"github.com/capitalize-ai/conversation-router/internal/handler"
	"github.com/capitalize-ai/conversation-router/internal/health"
	"github.com/capitalize-ai/conversation-router/internal/llm"
	"github.com/capitalize-ai/conversation-router/internal/middleware"
	"github.com/capitalize-ai/conversation-router/internal/model"
	natsclient "github.com/capitalize-ai/conversation-router/internal/nats"
	"github.com/capitalize-ai/conversation-router/internal/router"
	"github.com/capitalize-ai/conversation-router/internal/staff"
	"github.com/capitalize-ai/conversation-router/internal/telemetry"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
	"github.com/capitalize-ai/conversation-router/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting routing API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conversation-router", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS for message persistence. Persistence is a soft
	// dependency: when it is unreachable the router runs with
	// locally-generated IDs only.
	var store router.Persistence
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("NATS unavailable, running without persistence", zap.Error(err))
		} else {
			defer natsClient.Close()
			sessionStore := natsclient.NewSessionStore(natsClient)
			if err := sessionStore.EnsureStream(ctx); err != nil {
				log.Warn("failed to ensure stream, running without persistence", zap.Error(err))
			} else {
				store = sessionStore
			}
		}
	}

	// Initialize LLM client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client", zap.Error(err))
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client", zap.Error(err))
		}
	}

	// Staff roster and reply hub
	directory := staff.NewDirectory(cfg.StaffCapacity, cfg.StaffEstimatedWait, log)
	replyHub := staff.NewReplyHub()

	// Channel registry with the validated fallback chain
	// realtime -> normal -> human.
	channelConfigs := map[model.ChannelType]model.ChannelConfig{
		model.ChannelRealtime: {
			Type:            model.ChannelRealtime,
			IsActive:        true,
			Capabilities:    []string{"voice", "text", "function_calls"},
			FallbackChannel: model.ChannelNormal,
			Priority:        1,
			Timeout:         cfg.RealtimeTimeout,
		},
		model.ChannelNormal: {
			Type:            model.ChannelNormal,
			IsActive:        true,
			Capabilities:    []string{"text", "function_calls"},
			FallbackChannel: model.ChannelHuman,
			Priority:        2,
			Timeout:         cfg.StandardTimeout,
		},
		model.ChannelHuman: {
			Type:         model.ChannelHuman,
			IsActive:     true,
			Capabilities: []string{"text"},
			Priority:     3,
			Timeout:      cfg.HumanWaitTimeout,
		},
	}

	realtimeChannel := channel.NewRealtimeChannel(llmClient, channelConfigs[model.ChannelRealtime], log)
	standardChannel := channel.NewStandardChannel(llmClient, channelConfigs[model.ChannelNormal], cfg.StandardSLAThreshold, log)
	humanChannel := channel.NewHumanChannel(directory, replyHub, channelConfigs[model.ChannelHuman], log)
	channels := []channel.Channel{realtimeChannel, standardChannel, humanChannel}

	// Establish the realtime session up front; a failure leaves the
	// channel offline and traffic on the fallback chain.
	if llmClient != nil {
		if err := realtimeChannel.Connect(ctx); err != nil {
			log.Warn("realtime session unavailable at startup", zap.Error(err))
		}
	}

	// Health monitor and telemetry
	monitor := health.NewMonitor(channels, cfg.ProbeTimeout, log)
	telemetryStore := telemetry.NewStore(cfg.TelemetryBufferCap, telemetry.SatisfactionAdjustments{
		Human:    cfg.SatisfactionHuman,
		Realtime: cfg.SatisfactionRealtime,
	})

	// Channel manager
	manager, err := router.NewManager(channels, channelConfigs, monitor, store, telemetryStore, log)
	if err != nil {
		log.Error("failed to create channel manager", zap.Error(err))
		os.Exit(1)
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(monitor, log)
	usageHandler := handler.NewUsageHandler(telemetryStore, log)
	staffHandler := handler.NewStaffHandler(directory, replyHub, manager, log)
	sessionHandler := handler.NewSessionHandler(manager, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational surfaces (no auth required)
	r.Get("/health", healthHandler.Get)
	r.Post("/health", healthHandler.Post)
	r.Get("/usage", usageHandler.Get)
	r.Post("/usage", usageHandler.Post)
	r.Get("/staff", staffHandler.Get)
	r.Post("/staff", staffHandler.Post)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/messages", sessionHandler.Send)
				r.Post("/switch", sessionHandler.Switch)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

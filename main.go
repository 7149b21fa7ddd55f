package main

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

	"github.com/go-chi/chi/v5"

	"github.com/dumebi/healthchat/internal/api"
	"github.com/dumebi/healthchat/internal/buildinfo"
	"github.com/dumebi/healthchat/internal/chat"
	"github.com/dumebi/healthchat/internal/gemini"
	"github.com/dumebi/healthchat/internal/logging"
	"github.com/dumebi/healthchat/internal/middleware"
	"github.com/dumebi/healthchat/internal/models"
	"github.com/dumebi/healthchat/internal/secret"
	"github.com/dumebi/healthchat/internal/session"
	"github.com/dumebi/healthchat/internal/ui"
)

func main() {
	addr := flag.String("addr", getEnv("ADDR", "8080"), "HTTP listen address")
	level := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	json := flag.Bool("log-json", getEnv("LOG_JSON", "false") == "true", "log as JSON")
	baseURL := flag.String("gemini", getEnv("GEMINI_BASE_URL", gemini.DefaultBaseURL), "Gemini base URL")
	model := flag.String("model", getEnv("GEMINI_MODEL", gemini.DefaultModel), "default Gemini model")
	demo := flag.Bool("demo", getEnv("DEMO_MODE", "false") == "true", "run the echo engine instead of Gemini")

	// retry/stream knobs
	maxRetries := flag.Int("max-retries", getEnvInt("CHAT_MAX_RETRIES", chat.DefaultMaxRetries), "retries for overloaded-model errors")
	retryDelay := flag.Duration("retry-delay", getEnvDuration("CHAT_RETRY_DELAY", chat.DefaultRetryDelay), "initial backoff delay (doubles per retry)")
	pacing := flag.Duration("stream-pacing", getEnvDuration("CHAT_STREAM_PACING", chat.DefaultPacing), "per-fragment emit delay")

	flag.Parse()

	logger := logging.New(*level, *json)
	logger.Info("build", "version", buildinfo.Version, "commit", buildinfo.Commit, "built_at", buildinfo.BuiltAt)
	logger.Info("healthchat listening", "port", *addr, "model", *model, "demo", *demo)

	secrets := secret.NewStore(logger)
	gc := gemini.NewClient(*baseURL, secrets, logger)

	var (
		engine    chat.Engine
		modelsMgr models.Manager
		gate      chat.Secrets
	)
	if *demo {
		logger.Info("demo mode: using echo engine, no key required")
		engine = chat.NewEchoEngine(30 * time.Millisecond)
		modelsMgr = models.NewStaticManager([]string{*model})
		gate = chat.StaticSecrets(true)
	} else {
		if !secrets.Ready() {
			logger.Warn("no api key configured; requests blocked until one is submitted", "env", secret.EnvKey)
		}
		engine = chat.NewRetryEngine(chat.NewGeminiEngine(gc), *maxRetries, *retryDelay, logger)
		modelsMgr = models.NewGeminiManager(gc, []string{*model})
		gate = secrets
	}

	sessionStore := session.NewMemoryStore()
	chatCtrl := chat.NewController(logger, engine, sessionStore, gate, *pacing)

	uih, err := ui.New(logger, chatCtrl, modelsMgr, sessionStore, secrets)
	if err != nil {
		logger.Error("ui init", "err", err)
		os.Exit(1)
	}

	h := api.NewHandlers(logger, chatCtrl, modelsMgr, sessionStore, secrets, *model)
	h.Admin = api.NewAdmin(secrets)
	mux := chi.NewRouter()

	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	ui.RegisterRoutes(mux, uih)
	api.RegisterRoutes(mux, h)

	var handler http.Handler = mux
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.AccessLog(logger)(handler)
	handler = middleware.VersionHeader(logger)(handler)

	server := http.Server{
		Addr:              fmt.Sprintf(":%s", *addr),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute, // streamed turns plus retry backoff can run long
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	go func() { errChan <- server.ListenAndServe() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	} else {
		logger.Info("server stopped")
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

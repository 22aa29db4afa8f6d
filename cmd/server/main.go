package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/ai"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/catalog"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/httpapi"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/cache"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/config"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/database"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/logging"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/progress"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	if cfg.SeedPath != "" {
		if err := a.seed(ctx, cfg.SeedPath); err != nil {
			slog.Error("failed to seed catalog", "path", cfg.SeedPath, "error", err)
			os.Exit(1)
		}
	}

	// Uploads and progress streams outlive a normal request, so only the
	// headers are bounded.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired service and the resources to release on exit.
type app struct {
	svc     *authoring.Service
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp opens the configured drivers and builds the HTTP handler. On
// error everything opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	ready := map[string]httpapi.ReadyCheck{}
	svcCfg := authoring.Config{MaxUploadBytes: cfg.Blob.MaxUploadBytes}

	store, err := a.openStore(ctx, cfg, &svcCfg)
	if err != nil {
		return nil, err
	}
	svcCfg.Store = store
	ready["docstore"] = store.Ping

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svcCfg.Blobs = blobs

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() { c.Close() })
		ready["cache"] = c.HealthCheck

		tracker, err := progress.NewRedisTracker(c.Client)
		if err != nil {
			return nil, fmt.Errorf("create progress tracker: %w", err)
		}
		budget, err := ai.NewRedisBudget(c.Client, cfg.AI.DailyTokens)
		if err != nil {
			return nil, fmt.Errorf("create token budget: %w", err)
		}
		svcCfg.Progress = tracker
		svcCfg.Budget = budget
		slog.Info("cache connected", "progress", "redis", "budget", "redis")
	} else {
		svcCfg.Budget = ai.NewMemoryBudget(cfg.AI.DailyTokens)
		slog.Info("no cache configured, progress and budgets stay in process")
	}

	router, err := newAIRouter(cfg)
	if err != nil {
		return nil, err
	}
	if router.HasProvider() {
		svcCfg.AI = router
		slog.Info("content generation enabled", "providers", router.Names())
	} else {
		slog.Warn("no AI provider configured, content generation disabled")
	}

	svc, err := authoring.NewService(svcCfg)
	if err != nil {
		return nil, err
	}
	a.svc = svc

	var files blob.Opener
	if o, ok := blobs.(blob.Opener); ok {
		files = o
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTL)*time.Minute)
	a.handler, err = httpapi.New(httpapi.Config{
		Service:        svc,
		Issuer:         issuer,
		Files:          files,
		Ready:          ready,
		OriginPatterns: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Blob.MaxUploadBytes,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStore opens the document store. The postgres driver also records
// authoring events in the same database.
func (a *app) openStore(ctx context.Context, cfg *config.Config, svcCfg *authoring.Config) (docstore.Store, error) {
	switch cfg.DocStore.Driver {
	case "memory":
		slog.Warn("using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), nil

	case "bolt":
		store, err := docstore.OpenBolt(cfg.DocStore.BoltPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { store.Close() })
		slog.Info("document store opened", "driver", "bolt", "path", cfg.DocStore.BoltPath)
		return store, nil

	case "postgres":
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		store, err := docstore.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		svcCfg.Events = authoring.NewPostgresEventLogger(db.Pool)
		slog.Info("document store opened", "driver", "postgres")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown document store driver %q", cfg.DocStore.Driver)
	}
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Storage, error) {
	switch cfg.Blob.Driver {
	case "memory":
		return blob.NewMemoryStorage(cfg.Blob.PublicBaseURL), nil
	case "local":
		return blob.NewLocalStorage(cfg.Blob.LocalDir, cfg.Blob.PublicBaseURL)
	case "b2":
		return blob.NewB2Storage(ctx, cfg.Blob.B2.KeyID, cfg.Blob.B2.AppKey, cfg.Blob.B2.Bucket)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}

// newAIRouter registers the configured providers in fallback order.
func newAIRouter(cfg *config.Config) (*ai.Router, error) {
	router := ai.NewRouter()
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register(ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey, ai.WithDefaultModel(cfg.AI.OpenAI.Model)))
	}
	if cfg.AI.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.AI.Anthropic.APIKey, ai.WithAnthropicModel(cfg.AI.Anthropic.Model))
		if err != nil {
			return nil, fmt.Errorf("create anthropic provider: %w", err)
		}
		router.Register(p)
	}
	if cfg.AI.Google.APIKey != "" {
		router.Register(ai.NewGoogleProvider(cfg.AI.Google.APIKey, ai.WithGoogleModel(cfg.AI.Google.Model)))
	}
	if cfg.AI.DeepSeek.APIKey != "" {
		router.Register(ai.NewDeepSeekProvider(cfg.AI.DeepSeek.APIKey))
	}
	if cfg.AI.OpenRouter.APIKey != "" {
		router.Register(ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register(ai.NewOllamaProvider(cfg.AI.Ollama.URL, ai.WithOllamaModel(cfg.AI.Ollama.Model)))
	}
	return router, nil
}

func (a *app) seed(ctx context.Context, dir string) error {
	cat, err := catalog.Load(dir)
	if err != nil {
		return err
	}
	report, err := a.svc.Seed(ctx, cat)
	if err != nil {
		return err
	}
	slog.Info("catalog seeded",
		"courses", report.Courses,
		"quizzes", report.Quizzes,
		"notes", report.Notes,
		"skipped", report.Skipped,
		"invalid", report.Invalid,
	)
	return nil
}

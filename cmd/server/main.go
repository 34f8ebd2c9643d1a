package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"Skythread/internal/api/handlers/comments"
	"Skythread/internal/api/middleware"
	"Skythread/internal/api/routes"
	"Skythread/internal/atproto/identity"
	"Skythread/internal/atproto/jetstream"
	"Skythread/internal/config"
	"Skythread/internal/core/blueskythread"
	"Skythread/internal/core/commentview"
	"Skythread/internal/core/display"
	"Skythread/internal/db/migrations"
	"Skythread/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo := newRepository(cfg)
	defer closeRepo()

	identityConfig := identity.DefaultConfig()
	identityConfig.PLCURL = cfg.PLCURL
	identityResolver := identity.NewResolver(identityConfig)

	// Watched roots are registered on every load; the consumer is created
	// below once the service it invalidates exists.
	var threadConsumer *jetstream.ThreadEventConsumer
	threadService := blueskythread.NewService(repo, identityResolver,
		blueskythread.WithAPIBaseURL(cfg.APIBaseURL),
		blueskythread.WithTimeout(cfg.FetchTimeout),
		blueskythread.WithDepth(cfg.ThreadDepth),
		blueskythread.WithCacheTTL(cfg.CacheTTL),
		blueskythread.WithUpstreamRateLimit(cfg.UpstreamRPS, int(cfg.UpstreamRPS)*2),
		blueskythread.WithLabelFilter(cfg.FilterLabeledComments),
		blueskythread.WithLogger(logger),
		blueskythread.WithLoadHook(func(atURI string) {
			if threadConsumer != nil {
				threadConsumer.Watch(atURI)
			}
		}),
	)

	if cfg.JetstreamURL != "" {
		threadConsumer = jetstream.NewThreadEventConsumer(threadService, cfg.CacheSize*4, 24*time.Hour)
		connector := jetstream.NewConnector(threadConsumer, cfg.JetstreamURL, jetstream.PostCollection)
		go func() {
			if err := connector.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[JETSTREAM] connector stopped: %v", err)
			}
		}()
		log.Printf("Started Jetstream thread invalidation: %s", cfg.JetstreamURL)
	}

	builder := commentview.NewBuilder(
		commentview.WithAppBaseURL(cfg.AppBaseURL),
		commentview.WithLocation(cfg.Location),
		commentview.WithLogger(logger),
	)
	paging := display.Paging{InitialPageSize: cfg.InitialPageSize, PageIncrement: cfg.PageIncrement}
	renderer := comments.NewPageRenderer(threadService, builder, paging)

	templates, err := web.NewTemplates()
	if err != nil {
		log.Fatal("Failed to parse templates:", err)
	}

	var handlers *web.Handlers
	if cfg.SessionSecret != "" {
		store, storeErr := web.NewPreferenceStore(cfg.SessionSecret)
		if storeErr != nil {
			log.Fatal("Invalid SESSION_SECRET:", storeErr)
		}
		handlers = web.NewHandlers(templates, renderer, store, logger)
	} else {
		log.Println("SESSION_SECRET not set, sort preferences will not be remembered")
		handlers = web.NewHandlers(templates, renderer, nil, logger)
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r.Use(rateLimiter.Middleware)

	routes.RegisterCommentRoutes(r, renderer, cfg.CORSOrigins)
	routes.RegisterWebRoutes(r, handlers)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 20*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Skythread starting on %s", cfg.Addr)
	log.Printf("Appview: %s", cfg.APIBaseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newRepository opens the Postgres thread cache when DATABASE_URL is set and
// falls back to an in-process cache otherwise.
func newRepository(cfg config.Config) (blueskythread.Repository, func()) {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, using in-memory thread cache")
		return blueskythread.NewMemoryRepository(cfg.CacheSize, cfg.CacheTTL), func() {}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Connected to thread cache database")

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("Failed to set goose dialect:", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(db, "."); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	log.Println("Migrations completed successfully")

	return blueskythread.NewPostgresRepository(db), func() { _ = db.Close() }
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unionportal/internal/config"
	"github.com/unionportal/internal/fileserver"
	"github.com/unionportal/internal/handler"
	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/middleware"
	"github.com/unionportal/internal/push"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/startup"
	"github.com/unionportal/internal/ws"
	"github.com/unionportal/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	newsRepo := repository.NewNewsRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)

	var notifier *push.Notifier
	if keys, err := push.EnsureVAPIDKeys(""); err != nil {
		logger.Errorf("vapid keys: %v (пуши отключены)", err)
	} else {
		cfg.PushVAPIDPublicKey = keys.PublicKey
		notifier = push.NewNotifier(subRepo, keys, os.Getenv("PUSH_SUBJECT"))
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(cfg.MaxWSConnections)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	files := fileserver.New(cfg.UploadDir, cfg.MaxUploadSize)

	newsH := handler.NewNewsHandler(newsRepo, hub, notifier)
	eventsH := handler.NewEventsHandler(eventRepo, hub, notifier)
	membersH := handler.NewMembersHandler(memberRepo, hub)
	timelineH := handler.NewTimelineHandler(timelineRepo, hub)
	uploadH := handler.NewUploadHandler(files)
	pushH := handler.NewPushHandler(subRepo)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)
	configH := handler.NewConfigHandler(cfg)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })

	// Публичные страницы портала: новости, мероприятия, команда, история.
	r.Get("/api/news", newsH.List)
	r.Get("/api/news/{id}", newsH.Get)
	r.Get("/api/events", eventsH.List)
	r.Get("/api/events/{id}", eventsH.Get)
	r.Get("/api/members", membersH.List)
	r.Get("/api/timeline", timelineH.List)
	r.Get("/api/uploads/{filename}", uploadH.Serve)
	r.Get("/api/config/push", configH.GetPushConfig)
	r.Post("/api/push/subscribe", pushH.Subscribe)
	r.Delete("/api/push/subscribe", pushH.Unsubscribe)
	r.Get("/ws", wsH.ServeWS)

	// Админка: запись контента под любой живой сессией (admin или dean).
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthServiceVerify(cfg.AuthServiceURL, nil))
		r.Post("/api/news", newsH.Create)
		r.Put("/api/news/{id}", newsH.Update)
		r.Delete("/api/news/{id}", newsH.Delete)
		r.Post("/api/events", eventsH.Create)
		r.Put("/api/events/{id}", eventsH.Update)
		r.Delete("/api/events/{id}", eventsH.Delete)
		r.Post("/api/members", membersH.Create)
		r.Put("/api/members/{id}", membersH.Update)
		r.Delete("/api/members/{id}", membersH.Delete)
		r.Post("/api/timeline", timelineH.Create)
		r.Put("/api/timeline/{id}", timelineH.Update)
		r.Delete("/api/timeline/{id}", timelineH.Delete)
		r.Post("/api/uploads", uploadH.Upload)
	})

	webDist := "./web/dist"
	if info, err := os.Stat(webDist); err == nil && info.IsDir() {
		r.Get("/*", spaHandler(webDist))
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func spaHandler(dir string) http.HandlerFunc {
	fs := http.Dir(dir)
	fileServer := http.FileServer(fs)
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := fs.Open(path); err != nil {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		} else {
			f.Close()
			fileServer.ServeHTTP(w, r)
		}
	}
}

// runMigrations применяет встроенные миграции по порядку (001, 002, ...).
func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "unionportal"
		password = "unionportal_secret"
		database = "unionportal"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}

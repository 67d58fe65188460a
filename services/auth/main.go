// Микросервис авторизации: ключи доступа, мастер-ключ декана, восстановление.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unionportal/internal/config"
	"github.com/unionportal/internal/handler"
	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/middleware"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/service"
	"github.com/unionportal/internal/startup"
	"github.com/unionportal/internal/storage"
	"github.com/unionportal/internal/storage/memory"
)

func main() {
	logger.SetPrefix("auth")
	dev := flag.Bool("dev", false, "use in-memory store instead of Redis (no Redis required)")
	flag.Parse()

	logger.Info("starting auth service")
	cfg := config.Load()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "auth: ")
	defer pool.Close()

	cfgRepo := repository.NewDeanConfigRepository(pool)
	keyRepo := repository.NewAccessKeyRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	var store storage.SecurityStore
	if *dev {
		logger.Info("auth -dev: in-memory store (токены сброса не переживают перезапуск)")
		store = memory.New()
	} else {
		redisClient := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "auth: ")
		defer redisClient.Close()
		store = redisClient
	}

	authSvc := service.NewAuthService(cfgRepo, keyRepo, sessionRepo, store, service.Options{
		SigningSecret: cfg.Auth.SigningSecret,
		BcryptCost:    cfg.Auth.BcryptCost,
		SessionTTL:    cfg.Auth.SessionTTL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
	})

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = authSvc.EnsureDeanConfig(seedCtx, cfg.Auth.SeedMasterKey, cfg.Auth.SeedSecurityQuestion, cfg.Auth.SeedSecurityAnswer)
	seedCancel()
	if err != nil {
		logger.Errorf("seed dean config: %v", err)
		os.Exit(1)
	}

	authH := handler.NewAuthHandler(authSvc)
	keysH := handler.NewKeysHandler(authSvc)
	recoveryH := handler.NewRecoveryHandler(authSvc)
	sessionsH := handler.NewSessionsHandler(authSvc)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.RecoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Вход и восстановление — без сессии.
	r.Post("/api/auth/login", authH.Login)
	r.Post("/api/auth/dean/login", authH.DeanLogin)
	r.Get("/api/auth/recovery/question", recoveryH.Question)
	r.Post("/api/auth/recovery/question", recoveryH.Answer)
	r.Post("/api/auth/recovery/backup", recoveryH.Backup)
	r.Post("/api/auth/recovery/reset", recoveryH.Reset)

	// Проверка сессии для api-сервиса (внутренняя сеть).
	r.With(middleware.InternalOnly).Post("/internal/verify", authH.InternalVerify)

	// Под любой живой сессией.
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(authSvc))
		r.Get("/api/auth/verify", authH.Verify)
		// Админка и кабинет декана проверяют сессию по своим путям.
		r.Get("/api/auth/admin/verify", authH.Verify)
		r.With(middleware.RequireDean).Get("/api/auth/dean/verify", authH.Verify)
		r.Post("/api/auth/logout", authH.Logout)

		// Кабинет декана.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireDean)
			r.Post("/api/auth/access-keys", keysH.Create)
			r.Get("/api/auth/access-keys", keysH.List)
			r.Get("/api/auth/dean/sessions", sessionsH.List)
			r.Post("/api/auth/dean/sessions/{id}/revoke", sessionsH.Revoke)
			r.Post("/api/auth/dean/backup-code", recoveryH.GenerateBackupCode)
			r.Put("/api/auth/dean/config", recoveryH.UpdateConfig)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	srv := &http.Server{Addr: addr, Handler: r, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("auth server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("auth server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down auth server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("auth server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("auth server stopped")
}

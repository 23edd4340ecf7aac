package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/api"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/data"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/server"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// load config
	cfg, err := conf.Load(flagconf)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// data layer
	db, err := data.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := data.NewUserRepo(db)
	sessionRepo := data.NewSessionRepo(db)
	serverRepo := data.NewServerRepo(db)
	auditRepo := data.NewAuditRepo(db)

	// biz layer
	provision := biz.NewProvisionUsecase(userRepo, &cfg.Auth.OIDC)
	sessions := biz.NewSessionUsecase(sessionRepo, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	servers := biz.NewServersUsecase(serverRepo)

	// auth layer; discovery is lazy, so a down IdP does not block startup
	redirectURL := cfg.Auth.OIDC.GetRedirectURL(cfg.Server.BaseURL)
	providerCache := auth.NewProviderCache(&cfg.Auth.OIDC)
	oidcClient := auth.NewClient(&cfg.Auth.OIDC, providerCache, redirectURL)
	if cfg.Auth.OIDC.Enabled {
		logger.Info("OIDC authentication enabled", "issuer", cfg.Auth.OIDC.Issuer, "redirect_url", redirectURL)
	} else {
		logger.Info("OIDC authentication disabled")
	}

	// api layer
	sessionMiddleware := api.SessionMiddleware(sessions, userRepo)
	authHandler := api.NewAuthHandler(cfg, oidcClient, provision, sessions, auditRepo, logger)
	serversHandler := api.NewServersHandler(servers)
	router := api.NewRouter(authHandler, serversHandler, sessionMiddleware)

	srv := server.New(cfg.Server.ListenAddr, router)
	go func() {
		logger.Info("dashboard server started", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	if err := server.Shutdown(srv); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

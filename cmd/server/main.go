package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/config"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/database"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/handler"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/infrastructure/payment"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/logging"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/repo"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/security"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/service"
	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logging.Init("checkout-sdk-server", cfg.Log.File)

	if cfg.Checkout.PrivateKey == "" {
		log.Error("CHECKOUT_SDK_PRIVATE_KEY is not set")
		os.Exit(1)
	}

	var orderRepo repo.OrderRepo
	if cfg.Store.DatabaseURL != "" {
		if err := repo.Migrate(cfg.Store.DatabaseURL); err != nil {
			log.Error("migrate failed", "error", err)
			os.Exit(1)
		}
		db, err := database.NewPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		orderRepo = repo.NewPostgresRepo(db)
		log.Info("using postgres order store")
	} else {
		fileRepo, err := repo.NewFileRepo(cfg.Store.File)
		if err != nil {
			log.Error("open order store failed", "file", cfg.Store.File, "error", err)
			os.Exit(1)
		}
		orderRepo = fileRepo
		log.Info("using file order store", "file", cfg.Store.File)
	}

	signer := security.NewSigner(cfg.Checkout.PrivateKey)
	gateway := payment.NewZaloGateway(cfg.Checkout.StatusEndpoint)

	svc := service.NewOrderService(orderRepo, signer, logging.New("service"))
	checker := worker.NewStatusChecker(orderRepo, gateway, signer, svc,
		cfg.Checkout.CheckDelay, logging.New("statuscheck"))
	svc.AttachScheduler(checker)
	defer checker.Close()

	if n, err := checker.Rearm(context.Background()); err != nil {
		log.Warn("rearm status checks failed", "error", err)
	} else if n > 0 {
		log.Info("rearmed status checks", "count", n)
	}

	h := handler.NewOrderHandler(svc, signer, orderRepo)
	engine := handler.NewRouter(cfg.Server.Env, h, logging.New("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	log.Info("server stopped")
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"restopos-backend/internal/config"
	"restopos-backend/internal/db"
	"restopos-backend/internal/handler"
	"restopos-backend/internal/notify"
	"restopos-backend/internal/ports"
	"restopos-backend/internal/repository"
	"restopos-backend/internal/server"
	"restopos-backend/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Event publisher (optional)
	var notifier ports.Notifier
	if cfg.AMQPUrl != "" {
		pub, err := notify.Dial(cfg.AMQPUrl, cfg.EventExchange)
		if err != nil {
			logger.Error("failed to connect message broker", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		notifier = pub
	}

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	productRepo := repository.ProductRepository{DB: pg}
	customerRepo := repository.CustomerRepository{DB: pg}
	tableRepo := repository.TableRepository{DB: pg}
	orderRepo := repository.OrderRepository{DB: pg}
	registerRepo := repository.RegisterRepository{DB: pg}
	settlementRepo := repository.SettlementRepository{DB: pg, Logger: logger}

	if err := productRepo.SeedDefaults(ctx); err != nil {
		logger.Error("failed to seed products", "err", err)
		os.Exit(1)
	}
	if err := tableRepo.SeedDefaults(ctx, cfg.SeedTables); err != nil {
		logger.Error("failed to seed tables", "err", err)
		os.Exit(1)
	}
	if err := registerRepo.SeedDefaults(ctx); err != nil {
		logger.Error("failed to seed register", "err", err)
		os.Exit(1)
	}

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger}
	orderSvc := service.OrderService{Orders: orderRepo, Catalog: productRepo, Notifier: notifier, Logger: logger}
	cashSvc := service.CashService{Registers: registerRepo, Notifier: notifier, Logger: logger}
	tableSvc := service.TableService{Tables: tableRepo, Orders: orderRepo, Customers: customerRepo, Notifier: notifier, Logger: logger}
	settleSvc := service.SettlementService{Store: settlementRepo, Customers: customerRepo, Notifier: notifier, Logger: logger}

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc}
	claimHandler := handler.ClaimHandler{Tables: tableSvc}
	tableHandler := handler.TableHandler{Tables: tableSvc, Settlement: settleSvc}
	orderHandler := handler.OrderHandler{Orders: orderSvc}
	cashHandler := handler.CashHandler{Cash: cashSvc}
	catalogHandler := handler.CatalogHandler{Repo: productRepo, Currency: cfg.DefaultCurrency}

	router := server.NewRouter(cfg, logger, healthHandler, authHandler, claimHandler, tableHandler, orderHandler, cashHandler, catalogHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

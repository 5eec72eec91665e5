package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/controller"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/middleware"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/router"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/repository/memory"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/repository/postgres"
	"github.com/coralbank/transfer-settlement/src/internal/auth"
	"github.com/coralbank/transfer-settlement/src/internal/cipher"
	"github.com/coralbank/transfer-settlement/src/internal/config"
	"github.com/coralbank/transfer-settlement/src/internal/hub"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/coralbank/transfer-settlement/src/internal/metrics"
	"github.com/coralbank/transfer-settlement/src/internal/saga"
	"github.com/coralbank/transfer-settlement/src/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	fieldCipher, err := cipher.New(cfg.EncryptionKeyHex)
	if err != nil {
		log.Fatalf("init field cipher: %v", err)
	}

	transferRepo := postgres.NewTransferRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	userRepo := postgres.NewUserRepository(db)
	cardRepo := postgres.NewCardRepository(db)
	secretRepo := postgres.NewSecretRepository(db)
	bankRepo := memory.NewRemoteBankRepository(cfg.BankCode)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTValidity)

	hubClient := hub.NewClient(hub.Options{
		URL:          cfg.HubURL,
		BankID:       cfg.BankCode,
		BankName:     cfg.BankName,
		Token:        cfg.HubToken,
		ReconnectMin: cfg.HubReconnectMin,
		ReconnectMax: cfg.HubReconnectMax,
	})
	engine := saga.NewEngine(transferRepo, accountRepo, hubClient)
	hubClient.SetHandler(engine)

	userService := services.NewUserService(userRepo, tokens, cfg.JWTValidity)
	accountService := services.NewAccountService(accountRepo, cfg.BankCode)
	transferService := services.NewTransferService(transferRepo, accountRepo, bankRepo, engine, cfg.BankCode, cfg.StaleTransferThreshold)
	otpService := services.NewOTPService(secretRepo, cfg.OTPValidity)
	cardService := services.NewCardService(cardRepo, accountRepo, fieldCipher, otpService)
	bankService := services.NewBankService(bankRepo)

	mux := router.New(
		controller.NewUserController(userService),
		controller.NewAccountController(accountService),
		controller.NewTransferController(transferService),
		controller.NewCardController(cardService, otpService),
		controller.NewBankController(bankService),
		controller.NewOperatorController(transferService),
		middleware.BearerAuth(tokens),
		middleware.APIToken(cfg.OperatorToken),
		metrics.Handler(),
	)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("http server listening", logger.Fields{"addr": cfg.ListenAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := hubClient.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped", nil)
}

package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-billpay/app/cache"
	"github.com/vibast-solutions/ms-go-billpay/app/controller"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/repository"
	"github.com/vibast-solutions/ms-go-billpay/app/service"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
	"github.com/vibast-solutions/ms-go-billpay/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for collections, payouts, VTU purchases, and provider webhooks.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	paymentController := controller.NewPaymentController(services.Payment)
	vtuController := controller.NewVTUController(services.VTU)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(paymentController, vtuController, echoInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	vtuController *controller.VTUController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", paymentController.Health)

	// The provider signs webhook deliveries itself; they carry no internal
	// auth and no request ID.
	e.POST("/webhooks/monnify", paymentController.HandleWebhook)

	internal := e.Group("")
	internal.Use(requireRequestID())
	internal.Use(internalAuthMiddleware.RequireInternalAccess(appServiceName))

	accounts := internal.Group("/accounts")
	accounts.POST("", paymentController.ProvisionAccount)
	accounts.GET("/:reference", paymentController.GetReservedAccount)

	payments := internal.Group("/payments")
	payments.POST("", paymentController.InitiatePayment)
	payments.POST("/:reference/confirm", paymentController.ConfirmPayment)

	internal.GET("/transactions", paymentController.ListProviderTransactions)

	payouts := internal.Group("/payouts")
	payouts.POST("", paymentController.SinglePayout)
	payouts.POST("/bulk", paymentController.BulkPayout)
	payouts.GET("/:reference", paymentController.PayoutStatus)

	internal.GET("/banks", paymentController.ListBanks)
	internal.GET("/balance", paymentController.ProviderBalance)
	internal.GET("/wallets/:email", paymentController.CustomerWallet)

	vtu := internal.Group("/vtu")
	vtu.GET("/services/:service_id/variations", vtuController.ServiceVariations)
	vtu.POST("/verify", vtuController.VerifyCustomer)
	vtu.POST("/orders", vtuController.Purchase)
	vtu.GET("/orders/:request_id", vtuController.GetOrder)
	vtu.POST("/orders/:request_id/requery", vtuController.Requery)
	vtu.GET("/balance", vtuController.ProviderBalance)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

type services struct {
	Payment *service.PaymentService
	VTU     *service.VTUService
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	paymentRepo := repository.NewPaymentRepository(db)
	accountRepo := repository.NewReservedAccountRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	orderRepo := repository.NewVTUOrderRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)

	idempotencyStore := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	monnifyClient := provider.NewMonnifyClient(provider.MonnifyConfig{
		BaseURL:      cfg.Monnify.BaseURL,
		APIKey:       cfg.Monnify.APIKey,
		SecretKey:    cfg.Monnify.SecretKey,
		ContractCode: cfg.Monnify.ContractCode,
		HTTPTimeout:  cfg.Monnify.HTTPTimeout,
	})

	vtpassClient := provider.NewVTPassClient(provider.VTPassConfig{
		BaseURL:     cfg.VTPass.BaseURL,
		Username:    cfg.VTPass.Username,
		APIKey:      cfg.VTPass.APIKey,
		PublicKey:   cfg.VTPass.PublicKey,
		SecretKey:   cfg.VTPass.SecretKey,
		HTTPTimeout: cfg.VTPass.HTTPTimeout,
	})

	paymentService := service.NewPaymentService(
		monnifyClient,
		paymentRepo,
		accountRepo,
		payoutRepo,
		webhookRepo,
		walletRepo,
		settlementRepo,
		idempotencyStore,
		cfg.Monnify.SecretKey,
		cfg.Billpay,
	)
	vtuService := service.NewVTUService(vtpassClient, orderRepo, walletRepo, cfg.Billpay)

	cleanup := func() {
		if err := idempotencyStore.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &services{Payment: paymentService, VTU: vtuService}, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	return nil
}

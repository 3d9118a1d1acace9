package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/embercart/embercart-backend/api/routes"
	addresssvc "github.com/embercart/embercart-backend/internal/address"
	authsvc "github.com/embercart/embercart-backend/internal/auth"
	cartsvc "github.com/embercart/embercart-backend/internal/cart"
	orderssvc "github.com/embercart/embercart-backend/internal/orders"
	paymentssvc "github.com/embercart/embercart-backend/internal/payments"
	productssvc "github.com/embercart/embercart-backend/internal/products"
	reviewssvc "github.com/embercart/embercart-backend/internal/reviews"
	userssvc "github.com/embercart/embercart-backend/internal/users"
	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/db"
	"github.com/embercart/embercart-backend/pkg/logger"
	"github.com/embercart/embercart-backend/pkg/mailer"
	"github.com/embercart/embercart-backend/pkg/metrics"
	"github.com/embercart/embercart-backend/pkg/migrate"
	"github.com/embercart/embercart-backend/pkg/payments/razorpay"
	"github.com/embercart/embercart-backend/pkg/payments/stripe"
	"github.com/embercart/embercart-backend/pkg/redis"
	"github.com/embercart/embercart-backend/pkg/storage/cloudinary"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	mail, err := mailer.NewSendgrid(context.Background(), cfg.Sendgrid, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	imageHost, err := cloudinary.New(context.Background(), cfg.Cloudinary, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cloudinary client", err)
		os.Exit(1)
	}

	// Payment gateways are optional; requesting an unconfigured provider
	// fails at the API with a dependency error.
	var stripeGW paymentssvc.StripeGateway
	if cfg.Stripe.APIKey != "" {
		client, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe client", err)
			os.Exit(1)
		}
		stripeGW = client
	}
	var razorpayGW paymentssvc.RazorpayGateway
	if cfg.Razorpay.KeyID != "" {
		client, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create razorpay client", err)
			os.Exit(1)
		}
		razorpayGW = client
	}

	gormDB := dbClient.DB()
	usersRepo := userssvc.NewRepository(gormDB)
	productsRepo := productssvc.NewRepository(gormDB)
	cartRepo := cartsvc.NewRepository(gormDB)
	addressRepo := addresssvc.NewRepository(gormDB)
	ordersRepo := orderssvc.NewRepository(gormDB)
	reviewsRepo := reviewssvc.NewRepository(gormDB)

	authService, err := authsvc.NewService(usersRepo, mail, cfg)
	exitOn(logg, "auth service", err)
	usersService, err := userssvc.NewService(usersRepo, mail, imageHost, cfg)
	exitOn(logg, "users service", err)
	productsService, err := productssvc.NewService(productsRepo, imageHost, cfg)
	exitOn(logg, "products service", err)
	cartService, err := cartsvc.NewService(cartRepo, productsRepo, dbClient)
	exitOn(logg, "cart service", err)
	addressService, err := addresssvc.NewService(addressRepo, dbClient)
	exitOn(logg, "address service", err)
	ordersService, err := orderssvc.NewService(ordersRepo, cartRepo, productsRepo, addressRepo, dbClient)
	exitOn(logg, "orders service", err)
	reviewsService, err := reviewssvc.NewService(reviewsRepo, productsRepo, dbClient)
	exitOn(logg, "reviews service", err)
	paymentsService, err := paymentssvc.NewService(ordersRepo, stripeGW, razorpayGW, gormDB)
	exitOn(logg, "payments service", err)

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		HTTPMetrics: httpMetrics,
		Auth:        authService,
		Users:       usersService,
		Products:    productsService,
		Cart:        cartService,
		Address:     addressService,
		Orders:      ordersService,
		Reviews:     reviewsService,
		Payments:    paymentsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func exitOn(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}

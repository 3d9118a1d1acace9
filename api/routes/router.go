package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/embercart/embercart-backend/api/controllers"
	"github.com/embercart/embercart-backend/api/middleware"
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
	"github.com/embercart/embercart-backend/pkg/enums"
	"github.com/embercart/embercart-backend/pkg/logger"
	"github.com/embercart/embercart-backend/pkg/metrics"
	"github.com/embercart/embercart-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.Client
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics

	Auth     authsvc.Service
	Users    userssvc.Service
	Products productssvc.Service
	Cart     cartsvc.Service
	Address  addresssvc.Service
	Orders   orderssvc.Service
	Reviews  reviewssvc.Service
	Payments paymentssvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
		middleware.Timeout(cfg.App.RequestTimeout),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, deps.Redis, logg)).Post("/signup", controllers.AuthSignup(deps.Auth, logg))
		r.Get("/verify-email", controllers.AuthVerifyEmail(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(signupPolicy, deps.Redis, logg)).Post("/resend-verification", controllers.AuthResendVerification(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/forgot-password", controllers.AuthForgotPassword(deps.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(deps.Auth, logg))
	})

	// Catalog reads are public; everything else requires a token.
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/{productId}", controllers.ProductGet(deps.Products, logg))
		r.Get("/{productId}/reviews", controllers.ReviewList(deps.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.With(middleware.RequireRole(enums.RoleSeller, logg)).Post("/", controllers.ProductCreate(deps.Products, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(deps.Products, logg))
			r.Delete("/{productId}", controllers.ProductDelete(deps.Products, logg))
			r.Post("/{productId}/image", controllers.ProductUploadImage(deps.Products, logg))
			r.Put("/{productId}/reviews", controllers.ReviewUpsert(deps.Reviews, logg))
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		// Admin decision links land here from email, outside any session.
		r.Get("/role-change/resolve", controllers.UserResolveRoleChange(deps.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/me", controllers.UserProfile(deps.Users, logg))
			r.Patch("/me", controllers.UserUpdateProfile(deps.Users, logg))
			r.Post("/me/image", controllers.UserUploadProfileImage(deps.Users, logg))
			r.Post("/me/role-change", controllers.UserRequestRoleChange(deps.Users, logg))
		})
	})

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Delete("/{reviewId}", controllers.ReviewDelete(deps.Reviews, logg))
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", controllers.CartGet(deps.Cart, logg))
		r.Post("/", controllers.CartAdjust(deps.Cart, logg))
		r.Delete("/{productId}", controllers.CartRemoveLine(deps.Cart, logg))
		r.Delete("/", controllers.CartClear(deps.Cart, logg))
	})

	r.Route("/api/addresses", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/", controllers.AddressCreate(deps.Address, logg))
		r.Get("/", controllers.AddressList(deps.Address, logg))
		r.Patch("/{addressId}", controllers.AddressUpdate(deps.Address, logg))
		r.Delete("/{addressId}", controllers.AddressDelete(deps.Address, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireVerified(logg))
		r.Post("/", controllers.OrderPlace(deps.Orders, logg))
		r.Get("/", controllers.OrderListMine(deps.Orders, logg))
		r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
		r.Post("/{orderId}/payment-intent", controllers.PaymentCreateIntent(deps.Payments, logg))
		r.Post("/lines/{lineId}/cancel", controllers.OrderLineCancel(deps.Orders, logg))
		r.Patch("/lines/{lineId}/status", controllers.OrderLineUpdateStatus(deps.Orders, logg))
	})

	r.Route("/api/seller", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleSeller, logg))
		r.Get("/order-lines", controllers.SellerOrderLines(deps.Orders, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Get("/users", controllers.AdminListUsers(deps.Users, logg))
		r.Delete("/users/{userId}", controllers.AdminDeleteUser(deps.Users, logg))
	})

	return r
}

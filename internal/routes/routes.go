package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/velora-mobility/velora/internal/auth"
	"github.com/velora-mobility/velora/internal/billing"
	"github.com/velora-mobility/velora/internal/config"
	"github.com/velora-mobility/velora/internal/identity"
	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/middleware"
	"github.com/velora-mobility/velora/internal/notification"
	"github.com/velora-mobility/velora/internal/paymentmethod"
	"github.com/velora-mobility/velora/internal/ride"
	"github.com/velora-mobility/velora/internal/settlement"
	"github.com/velora-mobility/velora/internal/subscription"
	"github.com/velora-mobility/velora/internal/vehicle"
	"github.com/velora-mobility/velora/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Storage backends
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		methodRepo    paymentmethod.Repository
		subRepo       subscription.Repository
		identityRepo  identity.Repository
		vehicleRepo   vehicle.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		methodRepo = paymentmethod.NewPostgresRepository(d.DB)
		subRepo = subscription.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		vehicleRepo = vehicle.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		methodRepo = paymentmethod.NewMemoryRepository()
		subRepo = subscription.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
		vehicleRepo = vehicle.NewMemoryRepository()
	}

	// Services
	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(walletRepo, ledgerBackend, methodRepo, billing.StaticProvider{})
	vehicleSvc := vehicle.NewService(vehicleRepo)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	pricing := ride.Pricing{
		BaseCost:      d.Cfg.RideBaseCost,
		PerMinuteCost: d.Cfg.RidePerMinuteCost,
		MinBalance:    d.Cfg.RideMinBalance,
	}
	var rideStore ride.Store
	if d.DB != nil {
		rideStore = ride.NewPostgresStore(d.DB)
	} else {
		rideStore = ride.NewMemoryStore(ledgerBackend, vehicleSvc)
	}
	rideSvc := ride.NewService(rideStore, walletSvc, notifier, pricing, d.Logger)

	verifier := settlement.NewVerifier(d.Cfg.WebhookSecret, d.Cfg.WebhookTolerance)
	processor := settlement.NewProcessor(walletSvc, methodRepo, subRepo, ledgerBackend, notifier, d.Logger)

	// Handlers
	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	subHandler := subscription.NewHandler(subRepo, walletSvc)
	vehicleHandler := vehicle.NewHandler(vehicleSvc)
	rideHandler := ride.NewHandler(rideSvc)
	webhookHandler := settlement.NewHandler(verifier, processor, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	api.Post("/users", identityHandler.Register)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	RegisterWebhookRoutes(api, webhookHandler)

	// Vehicle onboard units authenticate with their access token, not a JWT.
	vehicleAuth := middleware.VehicleAuth(vehicleRepo)
	api.Post("/rides/:rideId/waypoints", vehicleAuth, rideHandler.AddWaypoints)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		})
	})
	RegisterWalletRoutes(protected, walletHandler, subHandler)
	RegisterVehicleRoutes(protected, vehicleHandler)
	RegisterRideRoutes(protected, rideHandler)

	return nil
}

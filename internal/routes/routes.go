// Package routes defines the API routing configuration. It wires
// repositories into services, services into handlers, and mounts the
// route groups with their middleware.
package routes

import (
	"finwell/internal/handlers"
	"finwell/internal/metrics"
	"finwell/internal/middleware"
	"finwell/internal/models"
	"finwell/internal/repositories"
	"finwell/internal/repositories/cache"
	"finwell/internal/services/allocation"
	"finwell/internal/services/auth"
	"finwell/internal/services/issuance"
	"finwell/internal/services/purchase"
	"finwell/internal/services/report"
	"finwell/internal/services/user"
	"finwell/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps carries everything SetupRoutes needs; nothing is pulled from
// package-level state.
type Deps struct {
	DB      *gorm.DB
	Cache   *cache.Service
	Gateway purchase.PaymentGateway
	Log     *logrus.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Deps) {
	// Repositories
	walletRepo := repositories.NewWalletRepository(deps.DB)
	userRepo := repositories.NewUserRepository(deps.DB)
	orgRepo := repositories.NewOrganizationRepository(deps.DB)
	orderRepo := repositories.NewOrderRepository(deps.DB)

	collector := metrics.NewCollector()

	// Services
	authService := auth.NewService(userRepo, deps.Log)
	walletService := wallet.NewService(walletRepo, deps.Cache, collector, deps.Log)
	issuanceService := issuance.NewService(walletRepo, orgRepo, deps.Cache, collector, deps.Log)
	allocationService := allocation.NewService(walletRepo, userRepo, deps.Cache, collector, deps.Log)
	userService := user.NewService(userRepo, orgRepo, deps.Log)
	reportService := report.NewService(walletRepo)
	purchaseService := purchase.NewService(orderRepo, orgRepo, issuanceService, deps.Gateway, deps.Log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(walletService)
	allocationHandler := handlers.NewAllocationHandler(allocationService)
	adminHandler := handlers.NewAdminHandler(issuanceService, reportService, userService)
	userHandler := handlers.NewUserHandler(userService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService, deps.Log)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Cache)

	authMiddleware := middleware.NewAuthMiddleware(authService, deps.Log)

	// System endpoints
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)

	// Gateway webhook authenticates via payload signature, not JWT.
	api.Post("/webhooks/stripe", purchaseHandler.StripeWebhook)

	// Authenticated endpoints
	authed := api.Group("", authMiddleware.Handler)
	authed.Post("/logout", authHandler.Logout)
	authed.Post("/change-password", authHandler.ChangePassword)

	// Employee wallet surface
	authed.Get("/wallets", walletHandler.GetWallets)
	authed.Get("/wallets/:id/balance", walletHandler.GetBalance)
	authed.Get("/wallets/:id/transactions", walletHandler.GetTransactions)
	authed.Post("/wallets/consume", middleware.HasPermission(models.PermissionConsumeCredits), walletHandler.ConsumeCredits)

	// HR surface
	hr := authed.Group("/hr", middleware.RequireRole(models.RoleHR))
	hr.Post("/allocations", middleware.HasPermission(models.PermissionAllocateCredits), allocationHandler.AllocateCredits)
	hr.Post("/employees", middleware.HasPermission(models.PermissionManageEmployees), userHandler.CreateUser)
	hr.Get("/members", userHandler.ListMembers)
	hr.Post("/purchases", purchaseHandler.CreateOrder)
	hr.Get("/organizations/:id/wallets", adminHandler.OrganizationWallets)

	// Admin surface
	admin := authed.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Post("/issuances", adminHandler.IssueCredits)
	admin.Post("/organizations", adminHandler.CreateOrganization)
	admin.Post("/users", userHandler.CreateUser)
	admin.Post("/purchases", purchaseHandler.CreateOrder)
	admin.Get("/report/credits", adminHandler.CreditReport)
	admin.Get("/organizations/:id/wallets", adminHandler.OrganizationWallets)
}

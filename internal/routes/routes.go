package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authz *services.CachedAuthorizationService,
	userHandler *handlers.UserHandler,
	roleHandler *handlers.RoleHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Mutations require a valid JWT plus the admin guard, and get a
	// stricter rate limit than reads.
	admin := []fiber.Handler{
		limiter.New(limiter.Config{
			Max:               20,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		}),
		middleware.JWTProtected(cfg),
		middleware.AdminRequired(authz, cfg),
	}

	users := api.Group("/users")
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Post("/", append(admin, userHandler.Create)...)
	users.Post("/sync", append(admin, userHandler.Sync)...)
	users.Put("/:id", append(admin, userHandler.Update)...)
	users.Delete("/:id", append(admin, userHandler.Delete)...)
	users.Post("/:id/roles/:roleId", append(admin, userHandler.AssignRole)...)
	users.Delete("/:id/roles/:roleId", append(admin, userHandler.UnassignRole)...)

	roles := api.Group("/roles")
	roles.Get("/", roleHandler.List)
	roles.Get("/:id", roleHandler.Get)
	roles.Get("/:id/users", roleHandler.Users)
	roles.Post("/", append(admin, roleHandler.Create)...)
	roles.Put("/:id", append(admin, roleHandler.Update)...)
	roles.Delete("/:id", append(admin, roleHandler.Delete)...)
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/cache"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/database"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/keycloak"
)

type HealthHandler struct {
	cache    *cache.Cache
	keycloak *keycloak.Client
}

func NewHealthHandler(cacheClient *cache.Cache, kc *keycloak.Client) *HealthHandler {
	return &HealthHandler{cache: cacheClient, keycloak: kc}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	cacheStatus := "disabled"
	if h.cache.Enabled() {
		cacheStatus = "ok"
	}

	kcStatus := "not configured"
	if h.keycloak.IsConfigured() {
		kcStatus = "configured"
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Cache:     cacheStatus,
		Keycloak:  kcStatus,
	})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

type UserHandler struct {
	identity *services.IdentityService
	cfg      *config.Config
}

func NewUserHandler(identity *services.IdentityService, cfg *config.Config) *UserHandler {
	return &UserHandler{identity: identity, cfg: cfg}
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	identity, err := h.identity.CreateUser(c.Context(), req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(identity))
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.Parse(c.Query("page"), c.Query("page_size"))

	users, total, err := h.identity.ListUsers(c.Context(), params)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.JSON(pagination.NewResult(dto.NewUserResponses(users), total, params))
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	identity, err := h.identity.GetUser(c.Context(), id)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	if identity == nil {
		return notFound(c)
	}
	return c.JSON(dto.NewUserResponse(identity))
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	identity, err := h.identity.UpdateUser(c.Context(), id, req.FirstName, req.LastName)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.JSON(dto.NewUserResponse(identity))
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.identity.DeleteUser(c.Context(), id); err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Sync ensures a local record for an identity created directly in Keycloak.
func (h *UserHandler) Sync(c *fiber.Ctx) error {
	var req dto.SyncUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.KeycloakID == "" {
		return badRequest(c, "keycloak_id is required")
	}

	identity, err := h.identity.SyncFromKeycloak(c.Context(), req.KeycloakID)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.JSON(dto.NewUserResponse(identity))
}

func (h *UserHandler) AssignRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	roleID, err := uuid.Parse(c.Params("roleId"))
	if err != nil {
		return badRequest(c, "Invalid role id")
	}

	if err := h.identity.AssignRole(c.Context(), userID, roleID); err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *UserHandler) UnassignRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	roleID, err := uuid.Parse(c.Params("roleId"))
	if err != nil {
		return badRequest(c, "Invalid role id")
	}

	if err := h.identity.UnassignRole(c.Context(), userID, roleID); err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

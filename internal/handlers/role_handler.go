package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

type RoleHandler struct {
	identity *services.IdentityService
	cfg      *config.Config
}

func NewRoleHandler(identity *services.IdentityService, cfg *config.Config) *RoleHandler {
	return &RoleHandler{identity: identity, cfg: cfg}
}

func (h *RoleHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	role, err := h.identity.CreateRole(c.Context(), req.Name)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewRoleResponse(role))
}

func (h *RoleHandler) List(c *fiber.Ctx) error {
	params := pagination.Parse(c.Query("page"), c.Query("page_size"))

	roles, total, err := h.identity.ListRoles(c.Context(), params)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.JSON(pagination.NewResult(dto.NewRoleResponses(roles), total, params))
}

func (h *RoleHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid role id")
	}

	role, err := h.identity.GetRole(c.Context(), id)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	if role == nil {
		return notFound(c)
	}
	return c.JSON(dto.NewRoleResponse(role))
}

func (h *RoleHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid role id")
	}

	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	role, err := h.identity.UpdateRole(c.Context(), id, req.Name)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.JSON(dto.NewRoleResponse(role))
}

func (h *RoleHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid role id")
	}

	if err := h.identity.DeleteRole(c.Context(), id); err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Users lists the members of one role, page by page.
func (h *RoleHandler) Users(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid role id")
	}
	params := pagination.Parse(c.Query("page"), c.Query("page_size"))

	users, total, err := h.identity.ListUsersByRole(c.Context(), id, params)
	if err != nil {
		return serviceError(c, h.cfg, err)
	}
	return c.JSON(pagination.NewResult(dto.NewUserResponses(users), total, params))
}

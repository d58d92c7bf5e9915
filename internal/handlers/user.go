package handlers

import (
	"errors"

	"finwell/internal/models"
	"finwell/internal/services/user"
	"finwell/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUser provisions an account. Admins can create any role; HR can
// create employees and coaches in their own organization.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input user.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.Role == "" {
		input.Role = models.RoleEmployee
	}

	created, err := h.userService.CreateUser(input, actorFromClaims(claims))
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return utils.Conflict(c, "Email already registered")
		case errors.Is(err, user.ErrUnauthorized):
			return utils.Forbidden(c, "Cannot provision this account")
		default:
			return utils.BadRequest(c, err.Error())
		}
	}

	return utils.Created(c, fiber.Map{
		"user": fiber.Map{
			"id":              created.ID,
			"email":           created.Email,
			"name":            created.Name,
			"role":            created.Role,
			"organization_id": created.OrganizationID,
		},
	})
}

// ListMembers lists the caller's organization members (HR view).
func (h *UserHandler) ListMembers(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	if claims.OrganizationID == nil {
		return utils.BadRequest(c, "No organization membership")
	}

	members, err := h.userService.ListOrganizationMembers(*claims.OrganizationID)
	if err != nil {
		return utils.InternalError(c, "Failed to list members")
	}

	out := make([]fiber.Map, 0, len(members))
	for _, m := range members {
		out = append(out, fiber.Map{
			"id":    m.ID,
			"email": m.Email,
			"name":  m.Name,
			"role":  m.Role,
		})
	}
	return utils.Success(c, fiber.Map{"members": out})
}

package handlers

import (
	"errors"

	"finwell/internal/models"
	"finwell/internal/services/allocation"
	"finwell/internal/services/wallet"
	"finwell/internal/utils"
	"finwell/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type AllocationHandler struct {
	allocationService allocation.Service
}

func NewAllocationHandler(allocationService allocation.Service) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService}
}

// AllocateCredits transfers credits from the organization wallet to an
// employee wallet. HR only; scoped to the HR's own organization by the
// service.
func (h *AllocationHandler) AllocateCredits(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		UserID uint              `json:"user_id"`
		Kind   models.CreditKind `json:"credit_kind"`
		Amount int64             `json:"amount"`
		Reason string            `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := validation.ValidateCreditAmount(input.Amount); err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if err := validation.ValidateCreditKind(input.Kind); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	result, err := h.allocationService.Allocate(c.Context(), input.UserID, input.Kind, input.Amount, input.Reason, actorFromClaims(claims))
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			return utils.BadRequest(c, "Amount must be greater than 0")
		case errors.Is(err, allocation.ErrUserNotFound):
			return utils.NotFound(c, "User not found")
		case errors.Is(err, allocation.ErrUserNotInOrganization):
			return utils.UnprocessableEntity(c, "User does not belong to an organization")
		case errors.Is(err, allocation.ErrUnauthorized):
			return utils.Forbidden(c, "Cannot allocate outside your organization")
		case errors.Is(err, allocation.ErrOrgWalletNotFound):
			return utils.UnprocessableEntity(c, "Organization has no wallet for this credit kind")
		case errors.Is(err, allocation.ErrInsufficientOrgBalance):
			return utils.UnprocessableEntity(c, "Insufficient organization balance")
		case errors.Is(err, wallet.ErrConcurrencyConflict):
			return utils.Conflict(c, "Wallet busy, try again")
		default:
			return utils.InternalError(c, "Failed to allocate credits")
		}
	}

	return utils.Success(c, fiber.Map{
		"message": "credits allocated",
		"debit":   result.Debit,
		"credit":  result.Credit,
	})
}

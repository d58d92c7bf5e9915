package handlers

import (
	"errors"
	"time"

	"finwell/internal/models"
	"finwell/internal/services/issuance"
	"finwell/internal/services/report"
	"finwell/internal/services/user"
	"finwell/internal/services/wallet"
	"finwell/internal/utils"
	"finwell/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	issuanceService issuance.Service
	reportService   report.Service
	userService     user.Service
}

func NewAdminHandler(issuanceService issuance.Service, reportService report.Service, userService user.Service) *AdminHandler {
	return &AdminHandler{
		issuanceService: issuanceService,
		reportService:   reportService,
		userService:     userService,
	}
}

// IssueCredits tops up an organization wallet.
func (h *AdminHandler) IssueCredits(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		OrganizationID uint              `json:"organization_id"`
		Kind           models.CreditKind `json:"credit_kind"`
		Amount         int64             `json:"amount"`
		ExpiresAt      *time.Time        `json:"expires_at"`
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

	txn, err := h.issuanceService.IssueOrgCredits(c.Context(), input.OrganizationID, input.Kind, input.Amount, input.ExpiresAt, actorFromClaims(claims))
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			return utils.BadRequest(c, "Amount must be greater than 0")
		case errors.Is(err, issuance.ErrOrganizationNotFound):
			return utils.NotFound(c, "Organization not found")
		default:
			return utils.InternalError(c, "Failed to issue credits")
		}
	}

	return utils.Success(c, fiber.Map{
		"message":     "credits issued",
		"transaction": txn,
	})
}

// CreateOrganization provisions a new tenant.
func (h *AdminHandler) CreateOrganization(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	org, err := h.userService.CreateOrganization(input.Name, actorFromClaims(claims))
	if err != nil {
		if errors.Is(err, user.ErrUnauthorized) {
			return utils.Forbidden(c, "Admin only")
		}
		return utils.BadRequest(c, err.Error())
	}

	return utils.Created(c, fiber.Map{
		"organization": org,
	})
}

// CreditReport returns the per-kind ledger aggregates, including the
// conservation verdict.
func (h *AdminHandler) CreditReport(c *fiber.Ctx) error {
	rep, err := h.reportService.CreditReport()
	if err != nil {
		return utils.InternalError(c, "Failed to build report")
	}
	return utils.Success(c, rep)
}

// OrganizationWallets lists an organization's wallets for HR and admin.
func (h *AdminHandler) OrganizationWallets(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	orgID, err := c.ParamsInt("id")
	if err != nil || orgID <= 0 {
		return utils.BadRequest(c, "Invalid organization id")
	}

	if claims.Role != models.RoleAdmin {
		if claims.OrganizationID == nil || *claims.OrganizationID != uint(orgID) {
			return utils.Forbidden(c, "Not your organization")
		}
	}

	wallets, err := h.reportService.OrganizationWallets(uint(orgID))
	if err != nil {
		return utils.InternalError(c, "Failed to list wallets")
	}
	return utils.Success(c, fiber.Map{
		"organization_id": orgID,
		"wallets":         wallets,
	})
}

package handlers

import (
	"errors"
	"strconv"

	"finwell/internal/models"
	"finwell/internal/services/wallet"
	"finwell/internal/utils"
	"finwell/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallets lists the calling user's credit wallets with projected
// balances.
func (h *WalletHandler) GetWallets(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallets, err := h.walletService.ListWallets(c.Context(), models.OwnerTypeUser, claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to get wallets")
	}

	return utils.Success(c, fiber.Map{
		"wallets": wallets,
	})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := parseWalletID(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid wallet id")
	}
	if err := h.authorizeWalletAccess(c, claims, walletID); err != nil {
		return err
	}

	balance, err := h.walletService.Balance(c.Context(), walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to get balance")
	}

	return utils.Success(c, fiber.Map{
		"wallet_id": walletID,
		"balance":   balance,
	})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := parseWalletID(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid wallet id")
	}
	if err := h.authorizeWalletAccess(c, claims, walletID); err != nil {
		return err
	}

	limit := c.QueryInt("limit", wallet.DefaultHistoryLimit)
	offset := c.QueryInt("offset", 0)

	history, err := h.walletService.History(c.Context(), walletID, limit, offset)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to get transactions")
	}

	return utils.Success(c, fiber.Map{
		"wallet_id":    walletID,
		"transactions": history,
	})
}

// ConsumeCredits debits the caller's wallet for a booking or webinar.
func (h *WalletHandler) ConsumeCredits(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		WalletID  uint   `json:"wallet_id"`
		Amount    int64  `json:"amount"`
		Reason    string `json:"reason"`
		Reference string `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := validation.ValidateCreditAmount(input.Amount); err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if input.Reason == "" {
		input.Reason = models.ReasonConsumption
	}

	txn, err := h.walletService.Consume(c.Context(), input.WalletID, input.Amount, input.Reason, input.Reference, actorFromClaims(claims))
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			return utils.BadRequest(c, "Amount must be greater than 0")
		case errors.Is(err, wallet.ErrWalletNotFound):
			return utils.NotFound(c, "Wallet not found")
		case errors.Is(err, wallet.ErrUnauthorized):
			return utils.Forbidden(c, "Not your wallet")
		case errors.Is(err, wallet.ErrWalletExpired):
			return utils.UnprocessableEntity(c, "Wallet has expired")
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return utils.UnprocessableEntity(c, "Insufficient balance")
		case errors.Is(err, wallet.ErrConcurrencyConflict):
			return utils.Conflict(c, "Wallet busy, try again")
		default:
			return utils.InternalError(c, "Failed to consume credits")
		}
	}

	return utils.Success(c, fiber.Map{
		"message":     "credits consumed",
		"transaction": txn,
	})
}

func parseWalletID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// authorizeWalletAccess lets employees read only their own wallets;
// HR and admin read paths are mounted on their own routes.
func (h *WalletHandler) authorizeWalletAccess(c *fiber.Ctx, claims *models.UserClaims, walletID uint) error {
	if claims.Role == models.RoleAdmin {
		return nil
	}

	w, err := h.walletService.GetWallet(c.Context(), walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to get wallet")
	}

	switch w.OwnerType {
	case models.OwnerTypeUser:
		if w.OwnerID == claims.UserID {
			return nil
		}
	case models.OwnerTypeOrg:
		if claims.Role == models.RoleHR && claims.OrganizationID != nil && *claims.OrganizationID == w.OwnerID {
			return nil
		}
	}
	return utils.Forbidden(c, "Not your wallet")
}

package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	// Admin permissions
	PermissionIssueCredits = "credits:issue"
	PermissionManageOrgs   = "orgs:write"
	PermissionReadReports  = "reports:read"

	// HR permissions
	PermissionAllocateCredits = "credits:allocate"
	PermissionManageEmployees = "employees:write"

	// Employee permissions
	PermissionWalletRead     = "wallet:read"
	PermissionConsumeCredits = "credits:consume"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID         uint     `json:"user_id"`
	Email          string   `json:"email"`
	Role           string   `json:"role"`
	OrganizationID *uint    `json:"organization_id,omitempty"`
	Permissions    []string `json:"permissions"`
	TokenVersion   int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionIssueCredits,
			PermissionManageOrgs,
			PermissionReadReports,
			PermissionWalletRead,
		}
	case RoleHR:
		return []string{
			PermissionAllocateCredits,
			PermissionManageEmployees,
			PermissionWalletRead,
		}
	case RoleEmployee:
		return []string{
			PermissionWalletRead,
			PermissionConsumeCredits,
		}
	case RoleCoach:
		return []string{
			PermissionWalletRead,
		}
	default:
		return []string{}
	}
}

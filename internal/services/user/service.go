// Package user handles account and tenant provisioning: admins create
// organizations and HR accounts, HR creates employees within their own
// organization.
package user

import (
	"errors"
	"fmt"
	"strings"

	"finwell/internal/models"
	"finwell/internal/repositories"
	"finwell/internal/services/wallet"
	"finwell/internal/validation"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidRole          = errors.New("invalid role")
	ErrOrganizationRequired = errors.New("organization required for this role")
	ErrUnauthorized         = errors.New("actor may not provision this account")
)

// CreateUserInput is the provisioning request for any account role.
type CreateUserInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID *uint  `json:"organization_id"`
}

type Service interface {
	CreateOrganization(name string, actor wallet.Actor) (*models.Organization, error)
	CreateUser(input CreateUserInput, actor wallet.Actor) (*models.User, error)
	GetUser(id uint) (*models.User, error)
	ListOrganizationMembers(orgID uint) ([]models.User, error)
}

type service struct {
	users repositories.UserRepository
	orgs  repositories.OrganizationRepository
	log   logrus.FieldLogger
}

func NewService(users repositories.UserRepository, orgs repositories.OrganizationRepository, log logrus.FieldLogger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{users: users, orgs: orgs, log: log}
}

func (s *service) CreateOrganization(name string, actor wallet.Actor) (*models.Organization, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("organization name required")
	}

	org := &models.Organization{Name: name}
	if err := s.orgs.Create(org); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, fmt.Errorf("organization %q already exists", name)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"organization_id": org.ID, "name": name}).Info("created organization")
	return org, nil
}

func (s *service) CreateUser(input CreateUserInput, actor wallet.Actor) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Name == "" {
		return nil, errors.New("email and name required")
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	switch input.Role {
	case models.RoleHR, models.RoleEmployee, models.RoleCoach:
		if input.OrganizationID == nil {
			return nil, ErrOrganizationRequired
		}
	case models.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}

	if err := s.authorizeProvisioning(input, actor); err != nil {
		return nil, err
	}

	if input.OrganizationID != nil {
		if _, err := s.orgs.GetByID(*input.OrganizationID); err != nil {
			return nil, err
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Email:          input.Email,
		Password:       string(hashed),
		Name:           input.Name,
		Role:           input.Role,
		OrganizationID: input.OrganizationID,
	}
	if err := s.users.Create(u); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": u.ID,
		"role":    u.Role,
		"actor":   actor.UserID,
	}).Info("provisioned account")
	return u, nil
}

// authorizeProvisioning: admins provision anything; HR provisions
// employees and coaches inside their own organization only.
func (s *service) authorizeProvisioning(input CreateUserInput, actor wallet.Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleHR {
		return ErrUnauthorized
	}
	if input.Role != models.RoleEmployee && input.Role != models.RoleCoach {
		return ErrUnauthorized
	}
	if input.OrganizationID == nil || !actor.SameOrg(*input.OrganizationID) {
		return ErrUnauthorized
	}
	return nil
}

func (s *service) GetUser(id uint) (*models.User, error) {
	return s.users.GetByID(id)
}

func (s *service) ListOrganizationMembers(orgID uint) ([]models.User, error) {
	return s.users.ListByOrganization(orgID)
}

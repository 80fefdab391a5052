// Package users manages operator accounts and password login.
package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Compile-time interface check
var _ interfaces.UserService = (*Service)(nil)

// AdminUsername is the account created on first start.
const AdminUsername = "admin"

const (
	bcryptCost        = 10
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,31}$`)

// Service implements UserService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new user service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// hashPassword truncates to bcrypt's 72-byte limit before hashing.
func hashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(b, bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}

func validRole(role string) bool {
	return role == common.RoleAdmin || role == common.RoleCashier
}

// Create adds an operator. Role defaults to cashier.
func (s *Service) Create(ctx context.Context, username, email, password, role string) (*models.User, error) {
	if !common.IsAdmin(ctx) {
		return nil, fmt.Errorf("create user: %w", models.ErrForbidden)
	}

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = common.RoleCashier
	}
	switch {
	case !usernamePattern.MatchString(username):
		return nil, models.Invalidf("username must be 2-32 characters of a-z, 0-9, '.', '_' or '-'")
	case len(password) < minPasswordLength:
		return nil, models.Invalidf("password must be at least %d characters", minPasswordLength)
	case !validRole(role):
		return nil, models.Invalidf("unknown role %q", role)
	}

	store := s.storage.InternalStore()
	if _, err := store.GetUser(ctx, username); err == nil {
		return nil, fmt.Errorf("user %q already exists: %w", username, models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &models.User{
		UserID:       username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if err := store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("username", username).Str("role", role).Msg("User created")
	return user, nil
}

// List returns every operator, sorted by username.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	if !common.IsAdmin(ctx) {
		return nil, fmt.Errorf("list users: %w", models.ErrForbidden)
	}
	return s.storage.InternalStore().ListUsers(ctx)
}

// Delete removes an operator. The last admin cannot be removed.
func (s *Service) Delete(ctx context.Context, username string) error {
	if !common.IsAdmin(ctx) {
		return fmt.Errorf("delete user: %w", models.ErrForbidden)
	}

	store := s.storage.InternalStore()
	user, err := store.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	if user.Role == common.RoleAdmin {
		all, err := store.ListUsers(ctx)
		if err != nil {
			return err
		}
		admins := 0
		for _, u := range all {
			if u.Role == common.RoleAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return models.Invalidf("cannot delete the last admin")
		}
	}

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info().Str("username", username).Msg("User deleted")
	return nil
}

// SetPassword changes a password. Operators may change their own; admins any.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	if !common.IsAdmin(ctx) && common.ResolveUserID(ctx) != username {
		return fmt.Errorf("set password: %w", models.ErrForbidden)
	}
	if len(password) < minPasswordLength {
		return models.Invalidf("password must be at least %d characters", minPasswordLength)
	}

	store := s.storage.InternalStore()
	user, err := store.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	if user.PasswordHash, err = hashPassword(password); err != nil {
		return err
	}
	user.ModifiedAt = time.Now().UTC()
	if err := store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("Password changed")
	return nil
}

// Authenticate checks a username and password. Every failure is ErrUnauthorized
// so callers cannot tell unknown users from wrong passwords.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.storage.InternalStore().GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, models.ErrUnauthorized
	}
	return user, nil
}

// EnsureAdmin creates the admin account with a random password when no users
// exist. It returns the cleartext password, or "" when users already exist.
func (s *Service) EnsureAdmin(ctx context.Context) (string, error) {
	existing, err := s.storage.InternalStore().ListUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list users: %w", err)
	}
	if len(existing) > 0 {
		return "", nil
	}

	buf := make([]byte, 18) // 24 chars in base64
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate admin password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(buf)

	if _, err := s.Create(ctx, AdminUsername, "", password, common.RoleAdmin); err != nil {
		return "", err
	}
	s.logger.Warn().
		Str("username", AdminUsername).
		Str("password", password).
		Msg("Admin account created; change this password")
	return password, nil
}

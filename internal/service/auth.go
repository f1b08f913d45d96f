// Package service provides the business logic for shop users: phone and PIN
// authentication and the daily tally ledger. Persistence is delegated to
// repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/teashop/internal/models"
	"github.com/atinyakov/teashop/internal/repository"
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"
	"golang.org/x/crypto/bcrypt"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if a user with the given id exists.
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	// GetUserByPhone returns the user with the normalized phone or
	// repository.ErrNotFound.
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	// CreateUser stores a new user record.
	CreateUser(ctx context.Context, u models.User) error
}

// AuthOptions configures token issuance and phone parsing.
type AuthOptions struct {
	// Secret signs and verifies tokens.
	Secret []byte
	// TokenTTL is the lifetime of an issued token.
	TokenTTL time.Duration
	// PhoneRegion is the default region for numbers without a country code.
	PhoneRegion string
}

// Service implements login, token verification and user provisioning.
type Service struct {
	// repo performs the data-layer operations.
	repo AuthRepository
	opts AuthOptions
	now  func() time.Time
}

// NewAuthService constructs a new Service using the provided repository.
func NewAuthService(repo AuthRepository, opts AuthOptions) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "IN"
	}
	return &Service{repo: repo, opts: opts, now: time.Now}
}

// NormalizePhone parses raw in the default region and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: missing phone", ErrValidation)
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: phone: %v", ErrValidation, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("%w: phone number is not valid", ErrValidation)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// Login checks the PIN of the user with the given phone and returns a signed
// bearer token carrying the user id.
func (s *Service) Login(ctx context.Context, phone, pin string) (string, error) {
	if pin == "" {
		return "", fmt.Errorf("%w: missing pin", ErrValidation)
	}
	normalized, err := NormalizePhone(phone, s.opts.PhoneRegion)
	if err != nil {
		return "", err
	}

	u, err := s.repo.GetUserByPhone(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(u.PinHash, []byte(pin)); err != nil {
		return "", ErrUnauthorized
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.StandardClaims{
		Subject:   u.ID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.opts.TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies a bearer token and returns the id of an existing user.
func (s *Service) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.opts.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrUnauthorized
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}
	exists, err := s.repo.UserExists(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

// Register provisions a new user with a bcrypt-hashed PIN.
func (s *Service) Register(ctx context.Context, phone, pin string) (*models.User, error) {
	if pin == "" {
		return nil, fmt.Errorf("%w: missing pin", ErrValidation)
	}
	normalized, err := NormalizePhone(phone, s.opts.PhoneRegion)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing pin: %w", err)
	}

	u := models.User{
		ID:        uuid.New(),
		Phone:     normalized,
		PinHash:   hash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

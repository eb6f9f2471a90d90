package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/middleware"
	"github.com/swiftride/dispatch/pkg/models"
	"github.com/swiftride/dispatch/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RepositoryInterface provides user data access
type RepositoryInterface interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// BlacklistInterface revokes and checks tokens by JTI
type BlacklistInterface interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service handles registration, login, and token revocation
type Service struct {
	repo      RepositoryInterface
	blacklist BlacklistInterface
	jwtCfg    config.JWTConfig
}

// NewService creates a new auth service
func NewService(repo RepositoryInterface, blacklist BlacklistInterface, jwtCfg config.JWTConfig) *Service {
	return &Service{repo: repo, blacklist: blacklist, jwtCfg: jwtCfg}
}

// Register creates a new rider or captain account
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.NewInternalServerError("failed to process password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		IsActive:     true,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and issues a signed token carrying a unique JTI
// so the token can be revoked individually.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.ErrorCode == common.CodeNotFound {
			return nil, common.NewUnauthorizedError("invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, common.NewForbiddenError("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, common.NewUnauthorizedError("invalid email or password")
	}

	expiresAt := time.Now().Add(time.Duration(s.jwtCfg.Expiration) * time.Hour)
	claims := &middleware.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, common.NewInternalServerError("failed to issue token")
	}

	logger.InfoContext(ctx, "user logged in", zap.String("user_id", user.ID.String()))
	return &models.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Logout revokes the presented token. The blacklist entry lives only as long
// as the token itself, so revocation needs no separate cleanup.
func (s *Service) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return common.NewUnauthorizedError("token has no revocation ID")
	}
	ttl := time.Until(expiresAt)
	if err := s.blacklist.Revoke(ctx, tokenID, ttl); err != nil {
		logger.ErrorContext(ctx, "failed to revoke token", zap.Error(err))
		return common.NewInternalServerError("failed to revoke token")
	}
	return nil
}

// GetProfile returns the authenticated user's account
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

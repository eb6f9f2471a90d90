package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/middleware"
	"github.com/swiftride/dispatch/pkg/models"
)

// ServiceInterface is implemented by the auth service
type ServiceInterface interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Handler handles auth HTTP endpoints
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new auth handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers routes that need no token
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/login", h.Login)
}

// RegisterProtectedRoutes registers routes behind the auth middleware
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.Me)
}

// Register handles POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AppErrorResponse(c, common.NewValidationError("invalid registration payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		common.RespondWithError(c, err, "failed to register user")
		return
	}
	common.CreatedResponse(c, user)
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AppErrorResponse(c, common.NewValidationError("email and password are required"))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		common.RespondWithError(c, err, "failed to log in")
		return
	}
	common.SuccessResponse(c, resp)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	tokenID, err := middleware.GetTokenID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("authentication required"))
		return
	}
	expiresAt, err := middleware.GetTokenExpiry(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("authentication required"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), tokenID, expiresAt); err != nil {
		common.RespondWithError(c, err, "failed to log out")
		return
	}
	common.SuccessResponse(c, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("authentication required"))
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err, "failed to fetch profile")
		return
	}
	common.SuccessResponse(c, user)
}

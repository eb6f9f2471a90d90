package rides

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/middleware"
	"github.com/swiftride/dispatch/pkg/models"
)

// ServiceInterface is implemented by the rides service
type ServiceInterface interface {
	RequestRide(ctx context.Context, riderID uuid.UUID, req *models.RideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	CancelRide(ctx context.Context, rideID, riderID uuid.UUID, reason string) error
}

// Handler handles ride HTTP endpoints
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new rides handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers ride routes on the given group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rides", h.RequestRide)
	rg.GET("/rides/:id", h.GetRide)
	rg.POST("/rides/:id/cancel", h.CancelRide)
}

// RequestRide handles POST /rides
func (h *Handler) RequestRide(c *gin.Context) {
	riderID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("authentication required"))
		return
	}

	var req models.RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AppErrorResponse(c, common.NewValidationError("pickup_address and dropoff_address are required"))
		return
	}

	ride, err := h.service.RequestRide(c.Request.Context(), riderID, &req)
	if err != nil {
		common.RespondWithError(c, err, "failed to create ride")
		return
	}
	common.CreatedResponse(c, ride)
}

// GetRide handles GET /rides/:id
func (h *Handler) GetRide(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewValidationError("invalid ride ID"))
		return
	}

	ride, err := h.service.GetRide(c.Request.Context(), rideID)
	if err != nil {
		common.RespondWithError(c, err, "failed to fetch ride")
		return
	}

	// riders see only their own rides; captains and admins can look up any
	userID, _ := middleware.GetUserID(c)
	role, _ := middleware.GetUserRole(c)
	if role == models.RoleRider && ride.RiderID != userID {
		common.AppErrorResponse(c, common.NewForbiddenError("access denied"))
		return
	}

	common.SuccessResponse(c, ride)
}

// CancelRide handles POST /rides/:id/cancel
func (h *Handler) CancelRide(c *gin.Context) {
	riderID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("authentication required"))
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewValidationError("invalid ride ID"))
		return
	}

	var req models.RideCancelRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AppErrorResponse(c, common.NewValidationError("invalid cancel payload"))
			return
		}
	}

	if err := h.service.CancelRide(c.Request.Context(), rideID, riderID, req.Reason); err != nil {
		common.RespondWithError(c, err, "failed to cancel ride")
		return
	}
	common.SuccessResponse(c, gin.H{"ride_id": rideID, "status": models.RideStatusCancelled})
}

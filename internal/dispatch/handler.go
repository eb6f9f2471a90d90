package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/middleware"
	"github.com/swiftride/dispatch/pkg/models"
)

// Coordinator is the matcher surface the HTTP layer depends on
type Coordinator interface {
	RegisterPoll(ctx context.Context, captainID uuid.UUID, timeout time.Duration) (*models.RideOffer, error)
	AcceptOffer(ctx context.Context, rideID, captainID uuid.UUID) error
}

// Handler handles the captain-facing long-poll endpoints
type Handler struct {
	coordinator Coordinator
}

// NewHandler creates a new dispatch handler
func NewHandler(coordinator Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes mounts the captain endpoints behind auth
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/poll", h.Poll)
	rg.POST("/rides/:id/accept", h.Accept)
}

// Poll parks the captain until a ride is offered or the timeout elapses.
// A timeout is a normal outcome: the response carries ride = null and the
// client re-polls immediately.
func (h *Handler) Poll(c *gin.Context) {
	captainID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var timeout time.Duration
	if raw := c.Query("timeout_seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "timeout_seconds must be a non-negative integer")
			return
		}
		timeout = time.Duration(seconds) * time.Second
	}

	offer, err := h.coordinator.RegisterPoll(c.Request.Context(), captainID, timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// client went away; nothing useful to write
			c.Abort()
			return
		}
		common.RespondWithError(c, err, "failed to register poll")
		return
	}

	common.SuccessResponse(c, PollResponse{Ride: offer, TimedOut: offer == nil})
}

// Accept claims an offered ride for the authenticated captain
func (h *Handler) Accept(c *gin.Context) {
	captainID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	if err := h.coordinator.AcceptOffer(c.Request.Context(), rideID, captainID); err != nil {
		common.RespondWithError(c, err, "failed to accept offer")
		return
	}

	common.SuccessResponse(c, AcceptResponse{RideID: rideID, Status: models.RideStatusAccepted})
}

package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

// MockCoordinator is a mock implementation of Coordinator
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) RegisterPoll(ctx context.Context, captainID uuid.UUID, timeout time.Duration) (*models.RideOffer, error) {
	args := m.Called(ctx, captainID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RideOffer), args.Error(1)
}

func (m *MockCoordinator) AcceptOffer(ctx context.Context, rideID, captainID uuid.UUID) error {
	args := m.Called(ctx, rideID, captainID)
	return args.Error(0)
}

func setupHandlerRouter(coordinator Coordinator, captainID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", captainID)
		c.Set("user_role", models.RoleCaptain)
	})
	handler := NewHandler(coordinator)
	handler.RegisterRoutes(router.Group("/dispatch"))
	return router
}

func TestPollReturnsOffer(t *testing.T) {
	captainID := uuid.New()
	offer := &models.RideOffer{
		RideID:         uuid.New(),
		RiderID:        uuid.New(),
		PickupAddress:  "1 Origin Way",
		DropoffAddress: "9 Destination Rd",
	}

	coordinator := new(MockCoordinator)
	coordinator.On("RegisterPoll", mock.Anything, captainID, 10*time.Second).Return(offer, nil)

	router := setupHandlerRouter(coordinator, captainID)
	req := httptest.NewRequest(http.MethodPost, "/dispatch/poll?timeout_seconds=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), offer.RideID.String())
	assert.Contains(t, w.Body.String(), `"timed_out":false`)
	coordinator.AssertExpectations(t)
}

func TestPollTimeoutIsNotAnError(t *testing.T) {
	captainID := uuid.New()
	coordinator := new(MockCoordinator)
	coordinator.On("RegisterPoll", mock.Anything, captainID, time.Duration(0)).Return(nil, nil)

	router := setupHandlerRouter(coordinator, captainID)
	req := httptest.NewRequest(http.MethodPost, "/dispatch/poll", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ride":null`)
	assert.Contains(t, w.Body.String(), `"timed_out":true`)
}

func TestPollRejectsBadTimeout(t *testing.T) {
	captainID := uuid.New()
	coordinator := new(MockCoordinator)

	router := setupHandlerRouter(coordinator, captainID)
	req := httptest.NewRequest(http.MethodPost, "/dispatch/poll?timeout_seconds=soon", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	coordinator.AssertNotCalled(t, "RegisterPoll")
}

func TestPollUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(new(MockCoordinator))
	handler.RegisterRoutes(router.Group("/dispatch"))

	req := httptest.NewRequest(http.MethodPost, "/dispatch/poll", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAcceptSuccess(t *testing.T) {
	captainID := uuid.New()
	rideID := uuid.New()

	coordinator := new(MockCoordinator)
	coordinator.On("AcceptOffer", mock.Anything, rideID, captainID).Return(nil)

	router := setupHandlerRouter(coordinator, captainID)
	req := httptest.NewRequest(http.MethodPost, "/dispatch/rides/"+rideID.String()+"/accept", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"accepted"`)
	coordinator.AssertExpectations(t)
}

func TestAcceptMismatchSurfacesConflict(t *testing.T) {
	captainID := uuid.New()
	rideID := uuid.New()

	coordinator := new(MockCoordinator)
	coordinator.On("AcceptOffer", mock.Anything, rideID, captainID).
		Return(common.NewOfferMismatchError("no matching offer for this captain"))

	router := setupHandlerRouter(coordinator, captainID)
	req := httptest.NewRequest(http.MethodPost, "/dispatch/rides/"+rideID.String()+"/accept", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), common.CodeOfferMismatch)
}

func TestAcceptInvalidRideID(t *testing.T) {
	captainID := uuid.New()
	coordinator := new(MockCoordinator)

	router := setupHandlerRouter(coordinator, captainID)
	req := httptest.NewRequest(http.MethodPost, "/dispatch/rides/not-a-uuid/accept", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	coordinator.AssertNotCalled(t, "AcceptOffer")
}

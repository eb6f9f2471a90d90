package rides

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RequestRide(ctx context.Context, riderID uuid.UUID, req *models.RideRequest) (*models.Ride, error) {
	args := m.Called(ctx, riderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockService) GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	args := m.Called(ctx, rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockService) CancelRide(ctx context.Context, rideID, riderID uuid.UUID, reason string) error {
	args := m.Called(ctx, rideID, riderID, reason)
	return args.Error(0)
}

func setupRouter(svc ServiceInterface, userID uuid.UUID, role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
			c.Set("user_role", role)
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/"))
	return router
}

func TestRequestRideEndpoint(t *testing.T) {
	svc := new(MockService)
	riderID := uuid.New()
	router := setupRouter(svc, riderID, models.RoleRider)

	ride := &models.Ride{
		ID:             uuid.New(),
		RiderID:        riderID,
		Status:         models.RideStatusPending,
		PickupAddress:  "12 Harbor St",
		DropoffAddress: "900 Airport Rd",
		RequestedAt:    time.Now().UTC(),
	}
	svc.On("RequestRide", mock.Anything, riderID, mock.Anything).Return(ride, nil)

	body, _ := json.Marshal(models.RideRequest{PickupAddress: "12 Harbor St", DropoffAddress: "900 Airport Rd"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), ride.ID.String())
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestRequestRideEndpoint_MissingBody(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, uuid.New(), models.RoleRider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides", bytes.NewReader([]byte(`{"pickup_address":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "RequestRide", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestRideEndpoint_Unauthenticated(t *testing.T) {
	router := setupRouter(new(MockService), uuid.Nil, "")

	body, _ := json.Marshal(models.RideRequest{PickupAddress: "a", DropoffAddress: "b"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestRideEndpoint_DispatchUnavailable(t *testing.T) {
	svc := new(MockService)
	riderID := uuid.New()
	router := setupRouter(svc, riderID, models.RoleRider)

	svc.On("RequestRide", mock.Anything, riderID, mock.Anything).
		Return(nil, common.NewDispatchUnavailableError("ride could not be dispatched, please retry"))

	body, _ := json.Marshal(models.RideRequest{PickupAddress: "a", DropoffAddress: "b"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), common.CodeDispatchUnavailable)
}

func TestGetRideEndpoint_OwnRide(t *testing.T) {
	svc := new(MockService)
	riderID := uuid.New()
	router := setupRouter(svc, riderID, models.RoleRider)

	ride := &models.Ride{ID: uuid.New(), RiderID: riderID, Status: models.RideStatusOffered}
	svc.On("GetRide", mock.Anything, ride.ID).Return(ride, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rides/"+ride.ID.String(), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"offered"`)
}

func TestGetRideEndpoint_ForeignRideForbidden(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, uuid.New(), models.RoleRider)

	ride := &models.Ride{ID: uuid.New(), RiderID: uuid.New(), Status: models.RideStatusPending}
	svc.On("GetRide", mock.Anything, ride.ID).Return(ride, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rides/"+ride.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetRideEndpoint_NotFound(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc, uuid.New(), models.RoleRider)

	rideID := uuid.New()
	svc.On("GetRide", mock.Anything, rideID).Return(nil, common.NewNotFoundError("ride not found"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rides/"+rideID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelRideEndpoint(t *testing.T) {
	svc := new(MockService)
	riderID := uuid.New()
	router := setupRouter(svc, riderID, models.RoleRider)

	rideID := uuid.New()
	svc.On("CancelRide", mock.Anything, rideID, riderID, "plans changed").Return(nil)

	body, _ := json.Marshal(models.RideCancelRequest{Reason: "plans changed"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/"+rideID.String()+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)
	svc.AssertExpectations(t)
}

func TestCancelRideEndpoint_Conflict(t *testing.T) {
	svc := new(MockService)
	riderID := uuid.New()
	router := setupRouter(svc, riderID, models.RoleRider)

	rideID := uuid.New()
	svc.On("CancelRide", mock.Anything, rideID, riderID, "").
		Return(common.NewConflictError("ride can no longer be cancelled"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/"+rideID.String()+"/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCancelRideEndpoint_InvalidID(t *testing.T) {
	router := setupRouter(new(MockService), uuid.New(), models.RoleRider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/not-a-uuid/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

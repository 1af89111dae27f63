package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apicontext "github.com/trainhub/trainhub-server/internal/api/http/context"
	"github.com/trainhub/trainhub-server/internal/model"
	"github.com/trainhub/trainhub-server/internal/service"
	"github.com/trainhub/trainhub-server/internal/testutil"
)

// MockProvisionService mocks the ProvisionService interface
type MockProvisionService struct {
	mock.Mock
}

func (m *MockProvisionService) ProvisionCalendar(ctx context.Context, trainerID uuid.UUID) (service.ProvisionResult, error) {
	args := m.Called(ctx, trainerID)
	return args.Get(0).(service.ProvisionResult), args.Error(1)
}

// MockCredentialConnector mocks the CredentialConnector interface
type MockCredentialConnector struct {
	mock.Mock
}

func (m *MockCredentialConnector) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockCredentialConnector) Connect(ctx context.Context, userID uuid.UUID, code string) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}

func setupCalendarRouter(h *Calendar, identity model.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/v1", identityInjector(identity))
	group.GET("/calendar/auth-url", h.AuthURL)
	group.POST("/calendar/connect", h.Connect)
	group.POST("/calendar/provision", h.Provision)
	return router
}

func TestCalendarHandler_Provision_Created(t *testing.T) {
	trainerID := uuid.New()
	provisioner := &MockProvisionService{}
	provisioner.On("ProvisionCalendar", mock.Anything, trainerID).
		Return(service.ProvisionResult{CalendarID: "cal-1", CalendarName: "Training Sessions - Sam"}, nil)

	h := NewCalendar(provisioner, &MockCredentialConnector{}, apicontext.NewManager(), testutil.MakeNoopLogger())
	router := setupCalendarRouter(h, model.Identity{UserID: trainerID, Role: model.RoleTrainer})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/calendar/provision", nil))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"calendarId":"cal-1"`)
}

func TestCalendarHandler_Provision_AuthRevoked(t *testing.T) {
	trainerID := uuid.New()
	provisioner := &MockProvisionService{}
	provisioner.On("ProvisionCalendar", mock.Anything, trainerID).
		Return(service.ProvisionResult{}, model.ErrAuthRevoked)

	h := NewCalendar(provisioner, &MockCredentialConnector{}, apicontext.NewManager(), testutil.MakeNoopLogger())
	router := setupCalendarRouter(h, model.Identity{UserID: trainerID, Role: model.RoleTrainer})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/calendar/provision", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCalendarHandler_AuthURL_UsesCallerAsState(t *testing.T) {
	trainerID := uuid.New()
	connector := &MockCredentialConnector{}
	connector.On("AuthCodeURL", trainerID.String()).
		Return("https://accounts.example.com/consent?state=" + trainerID.String())

	h := NewCalendar(&MockProvisionService{}, connector, apicontext.NewManager(), testutil.MakeNoopLogger())
	router := setupCalendarRouter(h, model.Identity{UserID: trainerID, Role: model.RoleTrainer})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calendar/auth-url", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), trainerID.String())
}

func TestCalendarHandler_Connect_StoresCredential(t *testing.T) {
	trainerID := uuid.New()
	connector := &MockCredentialConnector{}
	connector.On("Connect", mock.Anything, trainerID, "consent-code").Return(nil)

	h := NewCalendar(&MockProvisionService{}, connector, apicontext.NewManager(), testutil.MakeNoopLogger())
	router := setupCalendarRouter(h, model.Identity{UserID: trainerID, Role: model.RoleTrainer})

	payload, _ := json.Marshal(gin.H{"code": "consent-code"})
	req := httptest.NewRequest(http.MethodPost, "/v1/calendar/connect", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	connector.AssertExpectations(t)
}

func TestCalendarHandler_Connect_MissingCode(t *testing.T) {
	h := NewCalendar(&MockProvisionService{}, &MockCredentialConnector{}, apicontext.NewManager(), testutil.MakeNoopLogger())
	router := setupCalendarRouter(h, model.Identity{UserID: uuid.New(), Role: model.RoleTrainer})

	req := httptest.NewRequest(http.MethodPost, "/v1/calendar/connect", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

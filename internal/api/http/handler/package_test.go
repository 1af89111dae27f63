package handler

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

	apicontext "github.com/trainhub/trainhub-server/internal/api/http/context"
	"github.com/trainhub/trainhub-server/internal/model"
	"github.com/trainhub/trainhub-server/internal/testutil"
)

// MockLedgerService mocks the LedgerService interface
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Grant(ctx context.Context, clientID uuid.UUID, sessionsIncluded int, transactionID *string) (model.Package, error) {
	args := m.Called(ctx, clientID, sessionsIncluded, transactionID)
	return args.Get(0).(model.Package), args.Error(1)
}

func (m *MockLedgerService) ListPackages(ctx context.Context, clientID uuid.UUID) ([]model.Package, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Package), args.Error(1)
}

const testWebhookSecret = "hook-secret"

func setupPackageRouter(h *Package, identity model.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/webhooks/payment", h.PaymentWebhook)
	group := router.Group("/v1", identityInjector(identity))
	group.GET("/clients/:id/packages", h.ListForClient)
	group.POST("/packages/grant", h.Grant)
	return router
}

func TestPackageHandler_ListForClient_OwnPackages(t *testing.T) {
	clientID := uuid.New()
	ledger := &MockLedgerService{}
	ledger.On("ListPackages", mock.Anything, clientID).Return([]model.Package{
		{ID: uuid.New(), ClientID: clientID, SessionsIncluded: 10, SessionsUsed: 3, Status: model.PackageStatusActive, PurchaseDate: time.Now()},
		{ID: uuid.New(), ClientID: clientID, SessionsIncluded: 5, SessionsUsed: 5, Status: model.PackageStatusCompleted, PurchaseDate: time.Now()},
	}, nil)

	h := NewPackage(ledger, apicontext.NewManager(), testWebhookSecret, testutil.MakeNoopLogger())
	router := setupPackageRouter(h, model.Identity{UserID: clientID, Role: model.RoleClient})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/clients/"+clientID.String()+"/packages", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":7`)
}

func TestPackageHandler_ListForClient_OtherClientForbidden(t *testing.T) {
	h := NewPackage(&MockLedgerService{}, apicontext.NewManager(), testWebhookSecret, testutil.MakeNoopLogger())
	router := setupPackageRouter(h, model.Identity{UserID: uuid.New(), Role: model.RoleClient})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/clients/"+uuid.New().String()+"/packages", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPackageHandler_ListForClient_TrainerMayReadAny(t *testing.T) {
	clientID := uuid.New()
	ledger := &MockLedgerService{}
	ledger.On("ListPackages", mock.Anything, clientID).Return([]model.Package{}, nil)

	h := NewPackage(ledger, apicontext.NewManager(), testWebhookSecret, testutil.MakeNoopLogger())
	router := setupPackageRouter(h, model.Identity{UserID: uuid.New(), Role: model.RoleTrainer})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/clients/"+clientID.String()+"/packages", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPackageHandler_Grant_CreatesManualPackage(t *testing.T) {
	clientID := uuid.New()
	ledger := &MockLedgerService{}
	ledger.On("Grant", mock.Anything, clientID, 5, (*string)(nil)).
		Return(model.Package{ID: uuid.New(), ClientID: clientID, SessionsIncluded: 5, Status: model.PackageStatusActive}, nil)

	h := NewPackage(ledger, apicontext.NewManager(), testWebhookSecret, testutil.MakeNoopLogger())
	router := setupPackageRouter(h, model.Identity{UserID: uuid.New(), Role: model.RoleTrainer})

	payload, _ := json.Marshal(gin.H{"client_id": clientID.String(), "sessions_included": 5})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/packages/grant", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	ledger.AssertExpectations(t)
}

func TestPackageHandler_PaymentWebhook_GrantsWithTransaction(t *testing.T) {
	clientID := uuid.New()
	ledger := &MockLedgerService{}
	ledger.On("Grant", mock.Anything, clientID, 10, mock.MatchedBy(func(txn *string) bool {
		return txn != nil && *txn == "txn-1"
	})).Return(model.Package{ID: uuid.New(), ClientID: clientID, SessionsIncluded: 10, Status: model.PackageStatusActive}, nil)

	h := NewPackage(ledger, apicontext.NewManager(), testWebhookSecret, testutil.MakeNoopLogger())
	router := setupPackageRouter(h, model.Identity{})

	payload, _ := json.Marshal(gin.H{"client_id": clientID.String(), "sessions_included": 10, "transaction_id": "txn-1"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	ledger.AssertExpectations(t)
}

func TestPackageHandler_PaymentWebhook_RejectsBadSecret(t *testing.T) {
	h := NewPackage(&MockLedgerService{}, apicontext.NewManager(), testWebhookSecret, testutil.MakeNoopLogger())
	router := setupPackageRouter(h, model.Identity{})

	payload, _ := json.Marshal(gin.H{"client_id": uuid.New().String(), "sessions_included": 10, "transaction_id": "txn-1"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "wrong")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

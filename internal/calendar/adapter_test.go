package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/trainhub/trainhub-server/internal/model"
	"github.com/trainhub/trainhub-server/internal/testutil"
)

// MockCalendarAPI mocks the CalendarAPI interface
type MockCalendarAPI struct {
	mock.Mock
}

func (m *MockCalendarAPI) CreateCalendar(ctx context.Context, cred model.Credential, displayName string) (string, error) {
	args := m.Called(ctx, cred, displayName)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarAPI) DeleteCalendar(ctx context.Context, cred model.Credential, calendarID string) error {
	args := m.Called(ctx, cred, calendarID)
	return args.Error(0)
}

func (m *MockCalendarAPI) InsertEvent(ctx context.Context, cred model.Credential, calendarID string, event model.EventPayload) (string, error) {
	args := m.Called(ctx, cred, calendarID, event)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarAPI) DeleteEvent(ctx context.Context, cred model.Credential, calendarID, eventID string) error {
	args := m.Called(ctx, cred, calendarID, eventID)
	return args.Error(0)
}

// MockCredentialSource mocks the CredentialSource interface
type MockCredentialSource struct {
	mock.Mock
}

func (m *MockCredentialSource) GetValidCredential(ctx context.Context, userID uuid.UUID) (model.Credential, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Credential), args.Error(1)
}

func newTestAdapter(api model.CalendarAPI, creds CredentialSource) *Adapter {
	return NewAdapter(api, creds, testutil.MakeNoopLogger(), time.Second)
}

func validCredSource(userID uuid.UUID) *MockCredentialSource {
	creds := &MockCredentialSource{}
	creds.On("GetValidCredential", mock.Anything, userID).
		Return(model.Credential{AccessToken: "access"}, nil)
	return creds
}

func TestAdapter_InsertEvent_RetriesTransientOnce(t *testing.T) {
	userID := uuid.New()
	api := &MockCalendarAPI{}
	api.On("InsertEvent", mock.Anything, mock.Anything, "cal-1", mock.Anything).
		Return("", &googleapi.Error{Code: 503}).Once()
	api.On("InsertEvent", mock.Anything, mock.Anything, "cal-1", mock.Anything).
		Return("evt-1", nil).Once()

	adapter := newTestAdapter(api, validCredSource(userID))

	eventID, err := adapter.InsertEvent(context.Background(), userID, "cal-1", model.EventPayload{Summary: "Strength"})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", eventID)
	api.AssertExpectations(t)
}

func TestAdapter_InsertEvent_TransientExhausted(t *testing.T) {
	userID := uuid.New()
	api := &MockCalendarAPI{}
	api.On("InsertEvent", mock.Anything, mock.Anything, "cal-1", mock.Anything).
		Return("", &googleapi.Error{Code: 500}).Twice()

	adapter := newTestAdapter(api, validCredSource(userID))

	_, err := adapter.InsertEvent(context.Background(), userID, "cal-1", model.EventPayload{})
	require.ErrorIs(t, err, model.ErrTransient)
	api.AssertExpectations(t)
}

func TestAdapter_InsertEvent_AuthRevokedNotRetried(t *testing.T) {
	userID := uuid.New()
	api := &MockCalendarAPI{}
	api.On("InsertEvent", mock.Anything, mock.Anything, "cal-1", mock.Anything).
		Return("", &googleapi.Error{Code: 401}).Once()

	adapter := newTestAdapter(api, validCredSource(userID))

	_, err := adapter.InsertEvent(context.Background(), userID, "cal-1", model.EventPayload{})
	require.ErrorIs(t, err, model.ErrAuthRevoked)
	api.AssertNumberOfCalls(t, "InsertEvent", 1)
}

func TestAdapter_InsertEvent_CredentialFailurePropagatesUntouched(t *testing.T) {
	userID := uuid.New()
	creds := &MockCredentialSource{}
	creds.On("GetValidCredential", mock.Anything, userID).
		Return(model.Credential{}, model.ErrAuthRevoked)
	api := &MockCalendarAPI{}

	adapter := newTestAdapter(api, creds)

	_, err := adapter.InsertEvent(context.Background(), userID, "cal-1", model.EventPayload{})
	require.ErrorIs(t, err, model.ErrAuthRevoked)
	api.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdapter_CreateCalendar_Success(t *testing.T) {
	userID := uuid.New()
	api := &MockCalendarAPI{}
	api.On("CreateCalendar", mock.Anything, mock.Anything, "Training Sessions").
		Return("cal-new", nil)

	adapter := newTestAdapter(api, validCredSource(userID))

	calendarID, err := adapter.CreateCalendar(context.Background(), userID, "Training Sessions")
	require.NoError(t, err)
	assert.Equal(t, "cal-new", calendarID)
}

func TestAdapter_DeleteCalendar_FailureIsSwallowed(t *testing.T) {
	userID := uuid.New()
	api := &MockCalendarAPI{}
	api.On("DeleteCalendar", mock.Anything, mock.Anything, "cal-1").
		Return(&googleapi.Error{Code: 404})

	adapter := newTestAdapter(api, validCredSource(userID))

	// Must not panic and must not escalate.
	adapter.DeleteCalendar(context.Background(), userID, "cal-1")
	api.AssertExpectations(t)
}

func TestAdapter_DeleteEvent_CredentialFailureIsSwallowed(t *testing.T) {
	userID := uuid.New()
	creds := &MockCredentialSource{}
	creds.On("GetValidCredential", mock.Anything, userID).
		Return(model.Credential{}, model.ErrAuthRevoked)
	api := &MockCalendarAPI{}

	adapter := newTestAdapter(api, creds)

	adapter.DeleteEvent(context.Background(), userID, "cal-1", "evt-1")
	api.AssertNotCalled(t, "DeleteEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "unauthorized", err: &googleapi.Error{Code: 401}, want: model.ErrAuthRevoked},
		{name: "rate limited", err: &googleapi.Error{Code: 429}, want: model.ErrTransient},
		{name: "server error", err: &googleapi.Error{Code: 502}, want: model.ErrTransient},
		{name: "deadline", err: context.DeadlineExceeded, want: model.ErrTransient},
		{name: "already classified", err: model.ErrAuthRevoked, want: model.ErrAuthRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestClassify_PermanentClientErrorPassesThrough(t *testing.T) {
	err := classify(&googleapi.Error{Code: 404})

	assert.False(t, errors.Is(err, model.ErrTransient))
	assert.False(t, errors.Is(err, model.ErrAuthRevoked))
}

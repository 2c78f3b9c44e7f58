package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createErr   error
	created     *domain.Event
	lastCreate  domain.CreateEventInput
	getErr      error
	event       *domain.Event
	lastGetID   string
	listErr     error
	list        []*domain.Event
	total       int
	lastParams  domain.EventListParams
	lastDashKey string
}

func (f *fakeEventService) CreateEvent(_ context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastCreate = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	f.lastGetID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.event, nil
}

func (f *fakeEventService) ListEvents(_ context.Context, params domain.EventListParams) ([]*domain.Event, int, error) {
	f.lastParams = params
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.list, f.total, nil
}

func (f *fakeEventService) GetDashboard(_ context.Context, code string) (*domain.Event, error) {
	f.lastDashKey = code
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.event, nil
}

// fakeRegistrationService implements domain.RegistrationService.
type fakeRegistrationService struct {
	err    error
	result *domain.RegistrationResult
	last   domain.RegisterInput
	calls  int
}

func (f *fakeRegistrationService) Register(_ context.Context, in domain.RegisterInput) (*domain.RegistrationResult, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeReconciliationService implements domain.ReconciliationService.
type fakeReconciliationService struct {
	err           error
	result        *domain.ReconciliationResult
	lastReference string
	lastPayload   []byte
	lastSignature string
	lastCallback  domain.CryptoCallback
}

func (f *fakeReconciliationService) HandleCallback(_ context.Context, reference string) (*domain.ReconciliationResult, error) {
	f.lastReference = reference
	return f.result, f.err
}

func (f *fakeReconciliationService) HandleCardWebhook(_ context.Context, payload []byte, signature string) (*domain.ReconciliationResult, error) {
	f.lastPayload = payload
	f.lastSignature = signature
	return f.result, f.err
}

func (f *fakeReconciliationService) HandleCryptoWebhook(_ context.Context, cb domain.CryptoCallback) (*domain.ReconciliationResult, error) {
	f.lastCallback = cb
	return f.result, f.err
}

func (f *fakeReconciliationService) CompleteRegistration(context.Context, string) (domain.WebhookDisposition, error) {
	return domain.DispositionApplied, nil
}

func (f *fakeReconciliationService) SweepPending(context.Context) (int, error) {
	return 0, nil
}

// decodeEnvelope decodes the response envelope and, when dest is non-nil,
// re-decodes envelope.Data into it.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil {
		require.Nil(t, envelope.Error, "success response must have error nil")
		dataBytes, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(dataBytes, dest))
	}
	return envelope
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitdesk/form-filer/internal/dto"
	"github.com/unitdesk/form-filer/internal/models"
	"github.com/unitdesk/form-filer/internal/service"
)

type intakeMock struct {
	events []*models.SubmissionEvent
	err    error
}

func (m *intakeMock) Process(ctx context.Context, event *models.SubmissionEvent) error {
	m.events = append(m.events, event)
	return m.err
}

func postWebhook(t *testing.T, h *WebhookHandler, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/webhooks/form-response", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req

	h.HandleFormResponse(c)
	return w
}

func validPayload() []byte {
	body, _ := json.Marshal(dto.FormWebhookRequest{
		EventID:         "evt-42",
		RespondentEmail: "alice@example.com",
		SubmittedAt:     time.Date(2024, 3, 5, 14, 7, 22, 0, time.UTC),
		Answers: []dto.WebhookAnswer{
			{Question: "Unit Number", Kind: "text", Value: "12B"},
			{Question: "Photos", Kind: "file_upload", FileIDs: []string{"f1", "f2"}},
		},
	})
	return body
}

func TestWebhookHandlerAcceptsSubmission(t *testing.T) {
	intake := &intakeMock{}
	h := NewWebhookHandler(intake, nil, nil, nil, nil, WebhookHandlerConfig{})

	w := postWebhook(t, h, validPayload(), nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, intake.events, 1)
	event := intake.events[0]
	assert.Equal(t, "evt-42", event.EventID)
	assert.Equal(t, "alice@example.com", event.Respondent)
	require.Len(t, event.Answers, 2)
	assert.Equal(t, models.AnswerKindFileUpload, event.Answers[1].Kind)
	assert.Equal(t, []models.FileID{"f1", "f2"}, event.Answers[1].FileIDs)
}

func TestWebhookHandlerRejectsMalformedBody(t *testing.T) {
	intake := &intakeMock{}
	h := NewWebhookHandler(intake, nil, nil, nil, nil, WebhookHandlerConfig{})

	w := postWebhook(t, h, []byte(`not json`), nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, intake.events)
}

func TestWebhookHandlerRejectsUnknownAnswerKind(t *testing.T) {
	intake := &intakeMock{}
	h := NewWebhookHandler(intake, nil, nil, nil, nil, WebhookHandlerConfig{})

	body, _ := json.Marshal(dto.FormWebhookRequest{
		Answers: []dto.WebhookAnswer{{Question: "Q", Kind: "checkbox", Value: "x"}},
	})
	w := postWebhook(t, h, body, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, intake.events)
}

func TestWebhookHandlerChecksSharedSecret(t *testing.T) {
	intake := &intakeMock{}
	h := NewWebhookHandler(intake, nil, nil, nil, nil, WebhookHandlerConfig{SharedSecret: "s3cret"})

	w := postWebhook(t, h, validPayload(), nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, intake.events)

	w = postWebhook(t, h, validPayload(), map[string]string{"X-Webhook-Token": "s3cret"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, intake.events, 1)
}

func TestWebhookHandlerSwallowsPipelineErrors(t *testing.T) {
	intake := &intakeMock{err: errors.New("storage exploded")}
	h := NewWebhookHandler(intake, nil, nil, nil, nil, WebhookHandlerConfig{})

	w := postWebhook(t, h, validPayload(), nil)

	// The provider must not re-deliver on a processing failure.
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, intake.events, 1)
}

func TestWebhookHandlerSkipsDuplicateDeliveries(t *testing.T) {
	intake := &intakeMock{}
	h := NewWebhookHandler(intake, service.NewMemoryDeduper(), nil, nil, nil, WebhookHandlerConfig{DedupTTL: time.Minute})

	w := postWebhook(t, h, validPayload(), nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = postWebhook(t, h, validPayload(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")
	assert.Len(t, intake.events, 1)
}

func TestWebhookHandlerDedupSkippedWithoutEventID(t *testing.T) {
	intake := &intakeMock{}
	h := NewWebhookHandler(intake, service.NewMemoryDeduper(), nil, nil, nil, WebhookHandlerConfig{DedupTTL: time.Minute})

	body, _ := json.Marshal(dto.FormWebhookRequest{
		RespondentEmail: "bob@example.com",
		Answers:         []dto.WebhookAnswer{{Question: "Unit Number", Kind: "text", Value: "7A"}},
	})

	for i := 0; i < 2; i++ {
		w := postWebhook(t, h, body, nil)
		require.Equal(t, http.StatusAccepted, w.Code)
	}
	assert.Len(t, intake.events, 2)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unitdesk/form-filer/internal/dto"
	"github.com/unitdesk/form-filer/internal/models"
	"github.com/unitdesk/form-filer/internal/service"
	appErrors "github.com/unitdesk/form-filer/pkg/errors"
	"github.com/unitdesk/form-filer/pkg/response"
)

const webhookTokenHeader = "X-Webhook-Token"

type intakeProcessor interface {
	Process(ctx context.Context, event *models.SubmissionEvent) error
}

// WebhookHandlerConfig tunes the inbound hook surface.
type WebhookHandlerConfig struct {
	SharedSecret string
	DedupTTL     time.Duration
}

// WebhookHandler receives "response submitted" events from the form
// provider and hands them to the intake pipeline. It is the single outer
// guard around processing: pipeline failures are logged with a stack trace
// and swallowed, and the provider always gets a 2xx so it does not
// re-deliver.
type WebhookHandler struct {
	intake   intakeProcessor
	deduper  service.Deduper
	metrics  *service.MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	cfg      WebhookHandlerConfig
}

// NewWebhookHandler constructs the handler. deduper may be nil to disable
// duplicate suppression.
func NewWebhookHandler(intake intakeProcessor, deduper service.Deduper, metrics *service.MetricsService, validate *validator.Validate, logger *zap.Logger, cfg WebhookHandlerConfig) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &WebhookHandler{intake: intake, deduper: deduper, metrics: metrics, validate: validate, logger: logger, cfg: cfg}
}

// HandleFormResponse godoc
// @Summary Receive a form response event
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param payload body dto.FormWebhookRequest true "Form response"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /webhooks/form-response [post]
func (h *WebhookHandler) HandleFormResponse(c *gin.Context) {
	if h.cfg.SharedSecret != "" && c.GetHeader(webhookTokenHeader) != h.cfg.SharedSecret {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.FormWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid webhook payload"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload"))
		return
	}

	event := req.ToSubmissionEvent()

	if h.deduper != nil && event.EventID != "" {
		seen, err := h.deduper.MarkSeen(c.Request.Context(), event.EventID, h.cfg.DedupTTL)
		if err != nil {
			// Dedup is best effort: losing Redis must not stop intake.
			h.logger.Warn("dedup check failed, processing anyway",
				zap.String("event_id", event.EventID), zap.Error(err))
		} else if seen {
			h.logger.Info("duplicate delivery skipped", zap.String("event_id", event.EventID))
			h.metrics.SubmissionObserved(service.OutcomeDuplicate)
			response.JSON(c, http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	if err := h.intake.Process(c.Request.Context(), event); err != nil {
		h.logger.Error("submission processing failed",
			zap.String("event_id", event.EventID),
			zap.String("respondent", event.Respondent),
			zap.Error(err),
			zap.Stack("stack"))
		h.metrics.SubmissionObserved(service.OutcomeFailed)
	}

	// Side effects are non-transactional; a failed run is not replayed.
	response.Accepted(c, gin.H{"status": "accepted"})
}

package dto

import (
	"time"

	"github.com/unitdesk/form-filer/internal/models"
)

// WebhookAnswer is one question/answer pair as the form provider posts it.
// Value carries the answer for text questions, FileIDs for uploads.
type WebhookAnswer struct {
	Question string   `json:"question" validate:"required"`
	Kind     string   `json:"kind" validate:"required,oneof=text file_upload"`
	Value    string   `json:"value"`
	FileIDs  []string `json:"file_ids"`
}

// FormWebhookRequest is the inbound "response submitted" payload. The
// respondent email may legitimately be absent; the pipeline decides what to
// do about that, not the transport layer.
type FormWebhookRequest struct {
	EventID         string          `json:"event_id"`
	RespondentEmail string          `json:"respondent_email" validate:"omitempty,email"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	Answers         []WebhookAnswer `json:"answers" validate:"dive"`
}

// ToSubmissionEvent converts the provider payload into the typed event the
// pipeline consumes. A missing submission instant defaults to now.
func (r *FormWebhookRequest) ToSubmissionEvent() *models.SubmissionEvent {
	submittedAt := r.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	answers := make([]models.AnswerEntry, 0, len(r.Answers))
	for _, answer := range r.Answers {
		entry := models.AnswerEntry{
			Label: answer.Question,
			Kind:  models.AnswerKind(answer.Kind),
			Text:  answer.Value,
		}
		for _, id := range answer.FileIDs {
			entry.FileIDs = append(entry.FileIDs, models.FileID(id))
		}
		answers = append(answers, entry)
	}

	return &models.SubmissionEvent{
		EventID:     r.EventID,
		Respondent:  r.RespondentEmail,
		SubmittedAt: submittedAt,
		Answers:     answers,
	}
}

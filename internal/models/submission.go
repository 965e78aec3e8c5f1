package models

import "time"

// AnswerKind discriminates the two shapes a form answer can take.
type AnswerKind string

const (
	AnswerKindText       AnswerKind = "text"
	AnswerKindFileUpload AnswerKind = "file_upload"
)

// AnswerEntry is one question/answer pair from a submission. Exactly one of
// Text or FileIDs is meaningful, selected by Kind.
type AnswerEntry struct {
	Label   string
	Kind    AnswerKind
	Text    string
	FileIDs []FileID
}

// SubmissionEvent is one form response as delivered by the form provider.
// Respondent may be empty when the provider could not identify the submitter.
type SubmissionEvent struct {
	EventID     string
	Respondent  string
	SubmittedAt time.Time
	Answers     []AnswerEntry
}

// FileUploadAnswers returns the answers that carry at least one attachment,
// in submission order.
func (e *SubmissionEvent) FileUploadAnswers() []AnswerEntry {
	var uploads []AnswerEntry
	for _, answer := range e.Answers {
		if answer.Kind == AnswerKindFileUpload && len(answer.FileIDs) > 0 {
			uploads = append(uploads, answer)
		}
	}
	return uploads
}

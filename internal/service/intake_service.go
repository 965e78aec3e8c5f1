package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unitdesk/form-filer/internal/models"
	"github.com/unitdesk/form-filer/internal/storage"
	"github.com/unitdesk/form-filer/pkg/config"
	appErrors "github.com/unitdesk/form-filer/pkg/errors"
)

const (
	fileNameTimeLayout    = "2006-01-02_15-04-05"
	descriptionTimeLayout = "2006-01-02 15:04:05"
)

// Submission outcomes reported to metrics.
const (
	OutcomeProcessed     = "processed"
	OutcomeNoEvent       = "skipped_no_event"
	OutcomeNoRespondent  = "skipped_no_respondent"
	OutcomeNoAttachments = "skipped_no_attachments"
	OutcomeDuplicate     = "duplicate"
	OutcomeFailed        = "failed"
)

// Classification fallback reasons.
const (
	fallbackDefault = "default"
	fallbackInvalid = "invalid"
)

// IntakeService files form attachments into a classification folder: it
// extracts the configured answer, sanitizes it into a folder name, finds or
// creates that folder under the first attachment's parent, then moves,
// renames and annotates every uploaded file.
type IntakeService struct {
	store   storage.Store
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.IntakeConfig
}

// NewIntakeService constructs the service with defaults.
func NewIntakeService(store storage.Store, metrics *MetricsService, logger *zap.Logger, cfg config.IntakeConfig) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultLabel == "" {
		cfg.DefaultLabel = "Unsorted"
	}
	if cfg.InvalidLabel == "" {
		cfg.InvalidLabel = "Invalid Classification"
	}
	return &IntakeService{store: store, metrics: metrics, logger: logger, cfg: cfg}
}

// Process runs the full pipeline for one submission. Missing event or
// respondent identity is an expected condition: it logs and returns nil with
// no side effects. Any storage failure aborts the remaining steps and is
// returned to the caller; files already moved stay moved.
func (s *IntakeService) Process(ctx context.Context, event *models.SubmissionEvent) error {
	if event == nil {
		s.logger.Info("no submission event, nothing to process")
		s.metrics.SubmissionObserved(OutcomeNoEvent)
		return nil
	}
	if strings.TrimSpace(event.Respondent) == "" {
		s.logger.Info("submission has no respondent identity, skipping",
			zap.String("event_id", event.EventID))
		s.metrics.SubmissionObserved(OutcomeNoRespondent)
		return nil
	}

	folderName := s.classify(event)

	uploads := event.FileUploadAnswers()
	if len(uploads) == 0 {
		s.logger.Info("submission carries no attachments",
			zap.String("event_id", event.EventID),
			zap.String("classification", folderName))
		s.metrics.SubmissionObserved(OutcomeNoAttachments)
		return nil
	}

	// The first attachment anchors the hierarchy: the classification folder
	// is created next to it and every other file follows.
	anchor, err := s.store.ResolveFile(ctx, uploads[0].FileIDs[0])
	if err != nil {
		return s.storageError(err, "resolve anchor attachment")
	}

	target, err := s.resolveTargetFolder(ctx, anchor.ParentID, folderName)
	if err != nil {
		return err
	}

	filed := 0
	for _, answer := range uploads {
		for i, id := range answer.FileIDs {
			if err := s.fileAttachment(ctx, event, id, target, folderName, i); err != nil {
				return err
			}
			filed++
		}
	}

	s.logger.Info("submission processed",
		zap.String("event_id", event.EventID),
		zap.String("respondent", event.Respondent),
		zap.String("classification", folderName),
		zap.Int("attachments", filed))
	s.metrics.SubmissionObserved(OutcomeProcessed)
	return nil
}

// classify derives the folder name from the first answer matching the
// configured question label. Absent or blank answers fall back to the
// default label; answers that sanitize to nothing fall back to the invalid
// label.
func (s *IntakeService) classify(event *models.SubmissionEvent) string {
	raw := ""
	for _, answer := range event.Answers {
		if answer.Label == s.cfg.QuestionLabel {
			raw = answer.Text
			break
		}
	}

	if strings.TrimSpace(raw) == "" {
		s.logger.Info("classification answer missing or blank, using default label",
			zap.String("event_id", event.EventID),
			zap.String("question", s.cfg.QuestionLabel),
			zap.String("label", s.cfg.DefaultLabel))
		s.metrics.ClassificationFallback(fallbackDefault)
		return s.cfg.DefaultLabel
	}

	sanitized := SanitizeFolderName(raw)
	if sanitized == "" {
		s.logger.Info("classification answer sanitized to nothing, using invalid label",
			zap.String("event_id", event.EventID),
			zap.String("raw", raw),
			zap.String("label", s.cfg.InvalidLabel))
		s.metrics.ClassificationFallback(fallbackInvalid)
		return s.cfg.InvalidLabel
	}
	return sanitized
}

// resolveTargetFolder reuses an existing child folder with the given name or
// creates one. The lookup and the create are two calls: concurrent
// submissions with the same classification can race past the lookup and
// each create a folder. The backends offer no create-if-absent, so the
// occasional duplicate folder is tolerated.
func (s *IntakeService) resolveTargetFolder(ctx context.Context, parent models.FolderID, name string) (*models.FolderInfo, error) {
	matches, err := s.store.ListChildFolders(ctx, parent, name)
	if err != nil {
		return nil, s.storageError(err, "list classification folders")
	}
	if len(matches) > 0 {
		return &matches[0], nil
	}

	folder, err := s.store.CreateChildFolder(ctx, parent, name)
	if err != nil {
		return nil, s.storageError(err, "create classification folder")
	}
	s.logger.Info("classification folder created",
		zap.String("folder", name),
		zap.String("folder_id", string(folder.ID)))
	s.metrics.FolderCreated()
	return folder, nil
}

// fileAttachment moves one file into the target folder, renames it and
// overwrites its description. index is the file's 0-based position within
// its answer entry.
func (s *IntakeService) fileAttachment(ctx context.Context, event *models.SubmissionEvent, id models.FileID, target *models.FolderInfo, classification string, index int) error {
	info, err := s.store.ResolveFile(ctx, id)
	if err != nil {
		return s.storageError(err, "resolve attachment")
	}
	originalName := info.Name

	if err := s.store.MoveFile(ctx, id, target.ID); err != nil {
		return s.storageError(err, "move attachment")
	}

	newName := buildFileName(event.Respondent, event.SubmittedAt, index, originalName)
	if err := s.store.RenameFile(ctx, id, newName); err != nil {
		return s.storageError(err, "rename attachment")
	}

	description := buildDescription(event.Respondent, event.SubmittedAt, originalName, classification)
	if err := s.store.SetFileDescription(ctx, id, description); err != nil {
		return s.storageError(err, "describe attachment")
	}

	s.logger.Info("attachment filed",
		zap.String("file_id", string(id)),
		zap.String("original_name", originalName),
		zap.String("new_name", newName),
		zap.String("folder", classification))
	s.metrics.AttachmentFiled()
	return nil
}

func (s *IntakeService) storageError(err error, op string) error {
	if errors.Is(err, storage.ErrFileNotFound) {
		return appErrors.Wrap(err, appErrors.ErrFileNotFound.Code, appErrors.ErrFileNotFound.Status, op)
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, op)
}

// folderNameStripper removes the characters the storage backends reject in
// folder names.
var folderNameStripper = strings.NewReplacer(
	`\`, "", "/", "", ":", "", `"`, "", "*", "", "?", "", "<", "", ">", "", "|", "",
)

// SanitizeFolderName strips illegal characters and surrounding whitespace.
// Applying it twice yields the same result.
func SanitizeFolderName(raw string) string {
	return strings.TrimSpace(folderNameStripper.Replace(raw))
}

func buildFileName(respondent string, submittedAt time.Time, index int, originalName string) string {
	prefix := ""
	if index > 0 {
		prefix = fmt.Sprintf("%d_", index)
	}
	return fmt.Sprintf("%s_%s_%s%s", respondent, submittedAt.Format(fileNameTimeLayout), prefix, originalName)
}

func buildDescription(respondent string, submittedAt time.Time, originalName, classification string) string {
	return fmt.Sprintf("Uploaded by: %s\nSubmitted at: %s\nOriginal name: %s\nClassification: %s",
		respondent, submittedAt.Format(descriptionTimeLayout), originalName, classification)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitdesk/form-filer/internal/models"
	"github.com/unitdesk/form-filer/internal/storage"
	"github.com/unitdesk/form-filer/pkg/config"
)

var testIntakeConfig = config.IntakeConfig{
	QuestionLabel: "Unit Number",
	DefaultLabel:  "Unsorted",
	InvalidLabel:  "Invalid Classification",
}

func newTestService(store storage.Store) *IntakeService {
	return NewIntakeService(store, nil, nil, testIntakeConfig)
}

func submissionAt(respondent string, submittedAt time.Time, answers ...models.AnswerEntry) *models.SubmissionEvent {
	return &models.SubmissionEvent{
		EventID:     "evt-1",
		Respondent:  respondent,
		SubmittedAt: submittedAt,
		Answers:     answers,
	}
}

// flakyStore wraps a real store and fails selected operations.
type flakyStore struct {
	storage.Store
	moveErr   error
	moveFn    func(ctx context.Context, id models.FileID, dest models.FolderID) error
	createErr error
}

func (f *flakyStore) MoveFile(ctx context.Context, id models.FileID, dest models.FolderID) error {
	if f.moveFn != nil {
		return f.moveFn(ctx, id, dest)
	}
	if f.moveErr != nil {
		return f.moveErr
	}
	return f.Store.MoveFile(ctx, id, dest)
}

func (f *flakyStore) CreateChildFolder(ctx context.Context, parent models.FolderID, name string) (*models.FolderInfo, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.Store.CreateChildFolder(ctx, parent, name)
}

func TestProcessEndToEnd(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	photo := store.AddFile(parent, "photo.jpg")
	note := store.AddFile(parent, "note.pdf")

	svc := newTestService(store)
	event := submissionAt("alice@example.com", time.Date(2024, 3, 5, 14, 7, 22, 0, time.UTC),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "12B"},
		models.AnswerEntry{Label: "Photos", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{photo, note}},
	)

	require.NoError(t, svc.Process(context.Background(), event))

	folders := store.ChildFolders(parent)
	require.Len(t, folders, 1)
	assert.Equal(t, "12B", folders[0].Name)

	photoInfo, err := store.ResolveFile(context.Background(), photo)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com_2024-03-05_14-07-22_photo.jpg", photoInfo.Name)
	assert.Equal(t, folders[0].ID, photoInfo.ParentID)
	assert.Equal(t,
		"Uploaded by: alice@example.com\nSubmitted at: 2024-03-05 14:07:22\nOriginal name: photo.jpg\nClassification: 12B",
		photoInfo.Description)

	noteInfo, err := store.ResolveFile(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com_2024-03-05_14-07-22_1_note.pdf", noteInfo.Name)
	assert.Equal(t, folders[0].ID, noteInfo.ParentID)
	assert.Equal(t,
		"Uploaded by: alice@example.com\nSubmitted at: 2024-03-05 14:07:22\nOriginal name: note.pdf\nClassification: 12B",
		noteInfo.Description)
}

func TestProcessReusesExistingFolder(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	svc := newTestService(store)

	first := store.AddFile(parent, "a.jpg")
	require.NoError(t, svc.Process(context.Background(), submissionAt("bob@example.com", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "7A"},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{first}},
	)))

	second := store.AddFile(parent, "b.jpg")
	require.NoError(t, svc.Process(context.Background(), submissionAt("carol@example.com", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "7A"},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{second}},
	)))

	folders := store.ChildFolders(parent)
	require.Len(t, folders, 1)

	firstInfo, err := store.ResolveFile(context.Background(), first)
	require.NoError(t, err)
	secondInfo, err := store.ResolveFile(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, firstInfo.ParentID, secondInfo.ParentID)
}

func TestProcessFallsBackToDefaultLabel(t *testing.T) {
	for name, answers := range map[string][]models.AnswerEntry{
		"no matching answer": {
			{Label: "Something Else", Kind: models.AnswerKindText, Text: "12B"},
		},
		"blank answer": {
			{Label: "Unit Number", Kind: models.AnswerKindText, Text: "   "},
		},
	} {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			parent := store.AddFolder(store.RootID(), "Uploads")
			file := store.AddFile(parent, "doc.pdf")
			answers := append(answers, models.AnswerEntry{
				Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{file},
			})

			svc := newTestService(store)
			require.NoError(t, svc.Process(context.Background(), submissionAt("d@example.com", time.Now(), answers...)))

			folders := store.ChildFolders(parent)
			require.Len(t, folders, 1)
			assert.Equal(t, "Unsorted", folders[0].Name)
		})
	}
}

func TestProcessUsesInvalidLabelWhenSanitizedEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	file := store.AddFile(parent, "doc.pdf")

	svc := newTestService(store)
	require.NoError(t, svc.Process(context.Background(), submissionAt("d@example.com", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: `\/:*?`},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{file}},
	)))

	folders := store.ChildFolders(parent)
	require.Len(t, folders, 1)
	assert.Equal(t, "Invalid Classification", folders[0].Name)
}

func TestProcessIndexPrefixRestartsPerAnswer(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	a1 := store.AddFile(parent, "a1.jpg")
	a2 := store.AddFile(parent, "a2.jpg")
	a3 := store.AddFile(parent, "a3.jpg")
	b1 := store.AddFile(parent, "b1.pdf")
	b2 := store.AddFile(parent, "b2.pdf")

	svc := newTestService(store)
	submittedAt := time.Date(2024, 3, 5, 14, 7, 22, 0, time.UTC)
	require.NoError(t, svc.Process(context.Background(), submissionAt("e@example.com", submittedAt,
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "3C"},
		models.AnswerEntry{Label: "Photos", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{a1, a2, a3}},
		models.AnswerEntry{Label: "Documents", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{b1, b2}},
	)))

	expected := map[models.FileID]string{
		a1: "e@example.com_2024-03-05_14-07-22_a1.jpg",
		a2: "e@example.com_2024-03-05_14-07-22_1_a2.jpg",
		a3: "e@example.com_2024-03-05_14-07-22_2_a3.jpg",
		b1: "e@example.com_2024-03-05_14-07-22_b1.pdf",
		b2: "e@example.com_2024-03-05_14-07-22_1_b2.pdf",
	}
	for id, want := range expected {
		info, err := store.ResolveFile(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, info.Name)
	}
}

func TestProcessMissingEventHasNoSideEffects(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	store.AddFile(parent, "doc.pdf")

	svc := newTestService(store)
	require.NoError(t, svc.Process(context.Background(), nil))
	assert.Empty(t, store.ChildFolders(parent))
}

func TestProcessMissingRespondentHasNoSideEffects(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	file := store.AddFile(parent, "doc.pdf")

	svc := newTestService(store)
	require.NoError(t, svc.Process(context.Background(), submissionAt("  ", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "12B"},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{file}},
	)))

	assert.Empty(t, store.ChildFolders(parent))
	info, err := store.ResolveFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", info.Name)
	assert.Equal(t, parent, info.ParentID)
}

func TestProcessNoAttachmentsIsNoOp(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")

	svc := newTestService(store)
	require.NoError(t, svc.Process(context.Background(), submissionAt("f@example.com", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "12B"},
	)))
	assert.Empty(t, store.ChildFolders(parent))
}

func TestProcessPartialFailureLeavesEarlierFilesMoved(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	first := store.AddFile(parent, "ok.jpg")
	second := store.AddFile(parent, "broken.jpg")

	boom := errors.New("backend down")
	moved := 0
	flaky := &flakyStore{Store: store}
	flaky.moveFn = func(ctx context.Context, id models.FileID, dest models.FolderID) error {
		moved++
		if moved > 1 {
			return boom
		}
		return store.MoveFile(ctx, id, dest)
	}

	svc := newTestService(flaky)
	err := svc.Process(context.Background(), submissionAt("g@example.com", time.Date(2024, 3, 5, 14, 7, 22, 0, time.UTC),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "9F"},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{first, second}},
	))
	require.Error(t, err)

	// First file was fully filed before the failure and stays that way.
	folders := store.ChildFolders(parent)
	require.Len(t, folders, 1)
	firstInfo, resolveErr := store.ResolveFile(context.Background(), first)
	require.NoError(t, resolveErr)
	assert.Equal(t, folders[0].ID, firstInfo.ParentID)
	assert.Equal(t, "g@example.com_2024-03-05_14-07-22_ok.jpg", firstInfo.Name)

	secondInfo, resolveErr := store.ResolveFile(context.Background(), second)
	require.NoError(t, resolveErr)
	assert.Equal(t, parent, secondInfo.ParentID)
	assert.Equal(t, "broken.jpg", secondInfo.Name)
}

func TestProcessStorageErrorPropagates(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	file := store.AddFile(parent, "doc.pdf")

	boom := errors.New("backend down")
	svc := newTestService(&flakyStore{Store: store, moveErr: boom})

	err := svc.Process(context.Background(), submissionAt("h@example.com", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "4D"},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{file}},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// The folder was already created before the move failed; that side
	// effect is not rolled back.
	folders := store.ChildFolders(parent)
	require.Len(t, folders, 1)
	info, resolveErr := store.ResolveFile(context.Background(), file)
	require.NoError(t, resolveErr)
	assert.Equal(t, "doc.pdf", info.Name)
}

func TestProcessFolderCreateErrorPropagates(t *testing.T) {
	store := storage.NewMemoryStore()
	parent := store.AddFolder(store.RootID(), "Uploads")
	file := store.AddFile(parent, "doc.pdf")

	boom := errors.New("quota exceeded")
	svc := newTestService(&flakyStore{Store: store, createErr: boom})

	err := svc.Process(context.Background(), submissionAt("i@example.com", time.Now(),
		models.AnswerEntry{Label: "Unit Number", Kind: models.AnswerKindText, Text: "2A"},
		models.AnswerEntry{Label: "Files", Kind: models.AnswerKindFileUpload, FileIDs: []models.FileID{file}},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	info, resolveErr := store.ResolveFile(context.Background(), file)
	require.NoError(t, resolveErr)
	assert.Equal(t, "doc.pdf", info.Name)
	assert.Equal(t, parent, info.ParentID)
}

func TestSanitizeFolderName(t *testing.T) {
	cases := map[string]string{
		`A/B:C*`:        "ABC",
		"  12B  ":       "12B",
		`\/:"*?<>|`:     "",
		"Block 4 <new>": "Block 4 new",
		"plain":         "plain",
	}
	for input, want := range cases {
		assert.Equal(t, want, SanitizeFolderName(input), "input %q", input)
	}
}

func TestSanitizeFolderNameIdempotent(t *testing.T) {
	inputs := []string{`A/B:C*`, "  12B  ", "Unit 9 | Annex", "plain"}
	for _, input := range inputs {
		once := SanitizeFolderName(input)
		assert.Equal(t, once, SanitizeFolderName(once), "input %q", input)
	}
}

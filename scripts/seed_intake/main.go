// Command seed_intake imports files into the local storage backend and
// prints a webhook payload referencing them, so the hook can be exercised by
// hand:
//
//	go run ./scripts/seed_intake -dir ./intake -unit 12B photo.jpg note.pdf
//	curl -X POST localhost:8080/api/v1/webhooks/form-response -d @payload.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/unitdesk/form-filer/internal/dto"
	"github.com/unitdesk/form-filer/internal/storage"
)

func main() {
	var (
		dir      string
		parent   string
		question string
		unit     string
		email    string
	)

	flag.StringVar(&dir, "dir", "./intake", "Local storage base directory")
	flag.StringVar(&parent, "parent", "Uploads", "Folder to import the files into")
	flag.StringVar(&question, "question", "Unit Number", "Classification question label")
	flag.StringVar(&unit, "unit", "12B", "Classification answer value")
	flag.StringVar(&email, "email", "alice@example.com", "Respondent email")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("no files given")
	}

	store, err := storage.NewLocalStore(dir)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	folder, err := store.CreateChildFolder(context.Background(), store.RootID(), parent)
	if err != nil {
		log.Fatalf("failed to create parent folder: %v", err)
	}

	var fileIDs []string
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}
		id, err := store.ImportFile(folder.ID, filepath.Base(file), data)
		if err != nil {
			log.Fatalf("failed to import %s: %v", file, err)
		}
		fileIDs = append(fileIDs, string(id))
	}

	payload := dto.FormWebhookRequest{
		EventID:         fmt.Sprintf("seed-%d", time.Now().Unix()),
		RespondentEmail: email,
		SubmittedAt:     time.Now().UTC(),
		Answers: []dto.WebhookAnswer{
			{Question: question, Kind: "text", Value: unit},
			{Question: "Attachments", Kind: "file_upload", FileIDs: fileIDs},
		},
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode payload: %v", err)
	}
	fmt.Println(string(out))
}

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

func TestPreviewBatchGeneratesAndRecords(t *testing.T) {
	repo := newTestRepo(t)
	processed := repository.NewProcessedImageRepository(repo.DB)
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "previews")

	img := seedRecord(t, repo, writePNG(t, dir, "big.png", 200, 100))
	missing := seedRecord(t, repo, filepath.Join(dir, "gone.png"))

	batch := &PreviewBatch{
		Repo:      repo,
		Processed: processed,
		Logger:    zerolog.Nop(),
		OutputDir: outDir,
		MaxSize:   64,
	}
	summary := drain(t, batch.Start())
	if batch.Err() != nil {
		t.Fatalf("batch error: %v", batch.Err())
	}
	if summary.Total != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2/1/1", summary)
	}

	ok, err := processed.ListByOriginalID(img.ID)
	if err != nil {
		t.Fatalf("ListByOriginalID: %v", err)
	}
	if len(ok) != 1 {
		t.Fatalf("got %d derived records, want 1", len(ok))
	}
	if ok[0].Status != models.StatusSuccess || ok[0].ImageType != models.ProcessedTypePreview {
		t.Errorf("derived record = %+v", ok[0])
	}
	if !strings.HasSuffix(ok[0].ImageName, ".jpg") {
		t.Errorf("preview name = %s, want .jpg", ok[0].ImageName)
	}
	if _, statErr := os.Stat(filepath.FromSlash(ok[0].ImagePath)); statErr != nil {
		t.Errorf("preview file missing: %v", statErr)
	}

	failed, err := processed.ListByOriginalID(missing.ID)
	if err != nil {
		t.Fatalf("ListByOriginalID: %v", err)
	}
	if len(failed) != 1 || failed[0].Status != models.StatusError {
		t.Fatalf("failed record = %v", failed)
	}
	if failed[0].ErrorMessage == nil || *failed[0].ErrorMessage == "" {
		t.Error("failed record has no message")
	}
	// original path is kept so the failure can be retried
	if failed[0].ImagePath != missing.StoredPath {
		t.Errorf("failed record path = %s, want %s", failed[0].ImagePath, missing.StoredPath)
	}
}

func TestPreviewBatchRequiresOutputDir(t *testing.T) {
	repo := newTestRepo(t)
	batch := &PreviewBatch{
		Repo:      repo,
		Processed: repository.NewProcessedImageRepository(repo.DB),
		Logger:    zerolog.Nop(),
		MaxSize:   64,
	}
	for range batch.Start() {
	}
	if batch.Err() == nil {
		t.Fatal("missing output dir must fail the batch")
	}
}

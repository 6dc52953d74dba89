package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/database"
	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

func newTestReporter(t *testing.T) (*Reporter, *repository.ImageRepository) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	repo := repository.NewImageRepository(db)
	return &Reporter{Repo: repo, Logger: zerolog.Nop(), OutputDir: t.TempDir()}, repo
}

func seedWithCaptureTime(t *testing.T, repo *repository.ImageRepository, name, captureTime string) *models.Image {
	t.Helper()
	img := &models.Image{
		OriginalFilename: name,
		StoredFilename:   name,
		StoredPath:       "/photos/" + name,
		IngestTime:       time.Now(),
		Status:           models.StatusSuccess,
	}
	if captureTime != "" {
		img.CaptureTime = &captureTime
	}
	if err := repo.Create(img); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return img
}

func TestReporterGenerateDefaultScope(t *testing.T) {
	r, repo := newTestReporter(t)
	seedWithCaptureTime(t, repo, "late.jpg", "2023-08-01 09:00:00")
	seedWithCaptureTime(t, repo, "early.jpg", "2023-06-01 12:30:00")
	seedWithCaptureTime(t, repo, "no-time.jpg", "")

	path, err := r.Generate(nil, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "exif_report_") {
		t.Errorf("default name = %s", filepath.Base(path))
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 timed records", len(rows))
	}
	if rows[1][1] != "early.jpg" || rows[2][1] != "late.jpg" {
		t.Errorf("order = %s, %s, want chronological", rows[1][1], rows[2][1])
	}
}

func TestReporterGenerateExplicitIDs(t *testing.T) {
	r, repo := newTestReporter(t)
	a := seedWithCaptureTime(t, repo, "a.jpg", "2023-06-01 12:30:00")
	seedWithCaptureTime(t, repo, "b.jpg", "2023-07-01 12:30:00")

	out := filepath.Join(t.TempDir(), "subset.csv")
	path, err := r.Generate([]uint{a.ID}, out)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if path != out {
		t.Errorf("path = %s, want %s", path, out)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 || rows[1][1] != "a.jpg" {
		t.Errorf("rows = %v, want only a.jpg", rows)
	}
}

package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/database"
	"github.com/QQ008/shunying-image-processing-preview/models"
)

func newTestRepo(t *testing.T) *ImageRepository {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return NewImageRepository(db)
}

func seedImage(t *testing.T, repo *ImageRepository, name string) *models.Image {
	t.Helper()
	img := &models.Image{
		OriginalFilename: name,
		StoredFilename:   name,
		StoredPath:       "/photos/" + name,
		IngestTime:       time.Now(),
		Status:           models.StatusSuccess,
	}
	if err := repo.Create(img); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return img
}

func completeFields() map[string]interface{} {
	return map[string]interface{}{
		"capture_time":          "2023-06-01 12:30:00",
		"width":                 4032,
		"height":                3024,
		"camera_model":          "ILCE-7M4",
		"focal_length":          "50.0mm",
		"shutter_speed":         "1/250s",
		"aperture":              "f/2.8",
		"iso":                   "400",
		"exposure_compensation": "+0.3EV",
		"white_balance":         "auto",
	}
}

func TestCreateBatchAssignsIDs(t *testing.T) {
	repo := newTestRepo(t)
	batch := []*models.Image{
		{OriginalFilename: "a.jpg", StoredFilename: "a.jpg", StoredPath: "/p/a.jpg", IngestTime: time.Now(), Status: models.StatusSuccess},
		{OriginalFilename: "b.jpg", StoredFilename: "b.jpg", StoredPath: "/p/b.jpg", IngestTime: time.Now(), Status: models.StatusSuccess},
	}
	if err := repo.CreateBatch(batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	for _, img := range batch {
		if img.ID == 0 {
			t.Errorf("record %s got no id", img.OriginalFilename)
		}
	}
	if batch[0].ID >= batch[1].ID {
		t.Errorf("ids not ascending: %d, %d", batch[0].ID, batch[1].ID)
	}
}

func TestUpdateFieldsPartial(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "a.jpg")

	err := repo.UpdateFields(img.ID, map[string]interface{}{
		"camera_model": "ILCE-7M4",
		"iso":          "400",
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByID(img.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.CameraModel == nil || *got.CameraModel != "ILCE-7M4" {
		t.Errorf("camera_model = %v, want ILCE-7M4", got.CameraModel)
	}
	if got.ISO == nil || *got.ISO != "400" {
		t.Errorf("iso = %v, want 400", got.ISO)
	}
	if got.CaptureTime != nil {
		t.Errorf("capture_time = %v, want untouched NULL", got.CaptureTime)
	}
	if got.StoredPath != img.StoredPath {
		t.Errorf("stored_path changed: %s", got.StoredPath)
	}
}

func TestUpdateFieldsEmptyMapIsNoop(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "a.jpg")
	if err := repo.UpdateFields(img.ID, nil); err != nil {
		t.Fatalf("UpdateFields(nil): %v", err)
	}
}

func TestMarkError(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "a.jpg")

	if err := repo.MarkError(img.ID, "file not found"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	got, err := repo.GetByID(img.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "file not found" {
		t.Errorf("error_message = %v, want file not found", got.ErrorMessage)
	}
}

func TestCompletenessCountsPartition(t *testing.T) {
	repo := newTestRepo(t)

	complete := seedImage(t, repo, "complete.jpg")
	if err := repo.UpdateFields(complete.ID, completeFields()); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	partial := seedImage(t, repo, "partial.jpg")
	if err := repo.UpdateFields(partial.ID, map[string]interface{}{"camera_model": "X100V"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	seedImage(t, repo, "untouched.jpg")

	failed := seedImage(t, repo, "failed.jpg")
	if err := repo.MarkError(failed.ID, "unreadable"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	nComplete, err := repo.CountExifComplete()
	if err != nil {
		t.Fatalf("CountExifComplete: %v", err)
	}
	nIncomplete, err := repo.CountExifIncomplete()
	if err != nil {
		t.Fatalf("CountExifIncomplete: %v", err)
	}
	nSuccess, err := repo.CountByStatus(models.StatusSuccess)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	nError, err := repo.CountByStatus(models.StatusError)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}

	if nComplete != 1 {
		t.Errorf("complete = %d, want 1", nComplete)
	}
	if nIncomplete != 2 {
		t.Errorf("incomplete = %d, want 2", nIncomplete)
	}
	if nError != 1 {
		t.Errorf("error = %d, want 1", nError)
	}
	if nComplete+nIncomplete != nSuccess {
		t.Errorf("complete(%d) + incomplete(%d) != success(%d)", nComplete, nIncomplete, nSuccess)
	}
}

func TestListExifIncompleteExcludesCompleteAndFailed(t *testing.T) {
	repo := newTestRepo(t)

	complete := seedImage(t, repo, "complete.jpg")
	if err := repo.UpdateFields(complete.ID, completeFields()); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	b := seedImage(t, repo, "b.jpg")
	a := seedImage(t, repo, "a.jpg")
	failed := seedImage(t, repo, "failed.jpg")
	if err := repo.MarkError(failed.ID, "unreadable"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	got, err := repo.ListExifIncomplete()
	if err != nil {
		t.Fatalf("ListExifIncomplete: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("ids = %d, %d, want insertion order %d, %d", got[0].ID, got[1].ID, b.ID, a.ID)
	}
}

func TestListWithCaptureTimeOrdering(t *testing.T) {
	repo := newTestRepo(t)

	late := seedImage(t, repo, "late.jpg")
	if err := repo.UpdateFields(late.ID, map[string]interface{}{"capture_time": "2023-08-01 09:00:00"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	early := seedImage(t, repo, "early.jpg")
	if err := repo.UpdateFields(early.ID, map[string]interface{}{"capture_time": "2023-06-01 12:30:00"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	seedImage(t, repo, "no-time.jpg")

	got, err := repo.ListWithCaptureTime()
	if err != nil {
		t.Fatalf("ListWithCaptureTime: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != early.ID || got[1].ID != late.ID {
		t.Errorf("order = %d, %d, want chronological %d, %d", got[0].ID, got[1].ID, early.ID, late.ID)
	}
}

func TestListByIDsSkipsUnknown(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "a.jpg")

	got, err := repo.ListByIDs([]uint{img.ID, 9999})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(got) != 1 || got[0].ID != img.ID {
		t.Errorf("got %v, want only record %d", got, img.ID)
	}
}

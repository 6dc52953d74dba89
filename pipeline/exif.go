package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/exifmeta"
	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/report"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

// ExifBatch normalizes embedded metadata for catalog records. With no
// explicit ids it selects every EXIF-incomplete success record; explicit ids
// outside status=success are skipped with a logged reason.
type ExifBatch struct {
	Repo       *repository.ImageRepository
	Logger     zerolog.Logger
	IDs        []uint
	SaveCSV    bool
	CSVDir     string
	BufferSize int

	err error
}

// Start launches the batch and returns its ordered event stream; see
// IntakeBatch.Start for the stream contract.
func (b *ExifBatch) Start() <-chan Event {
	size := b.BufferSize
	if size <= 0 {
		size = 64
	}
	events := make(chan Event, size)
	go func() {
		defer close(events)
		b.err = b.run(newEmitter(events))
	}()
	return events
}

// Err reports the batch-level failure, if any, once the event stream has
// closed.
func (b *ExifBatch) Err() error {
	return b.err
}

func (b *ExifBatch) run(em *emitter) error {
	images, skipped, err := b.selectRecords(em)
	if err != nil {
		return err
	}

	total := len(images)
	summary := Summary{Total: total, Skipped: skipped}
	em.log(fmt.Sprintf("normalizing metadata for %d record(s)", total))

	for i, img := range images {
		em.progress(i * 100 / max(total, 1))

		if err := b.processRecord(&img, em); err != nil {
			// catalog unavailable: cannot safely record outcomes, abort
			return err
		}

		current, err := b.Repo.GetByID(img.ID)
		if err == nil && current.Status == models.StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if complete, err := b.Repo.CountExifComplete(); err == nil {
		incomplete, _ := b.Repo.CountExifIncomplete()
		em.log(fmt.Sprintf("catalog now has %d complete and %d incomplete record(s)", complete, incomplete))
	}

	em.done(summary)
	return nil
}

// selectRecords resolves the batch's input set. The skipped count covers
// explicit ids that were missing or not in status=success.
func (b *ExifBatch) selectRecords(em *emitter) ([]models.Image, int, error) {
	if len(b.IDs) == 0 {
		images, err := b.Repo.ListExifIncomplete()
		return images, 0, err
	}

	found, err := b.Repo.ListByIDs(b.IDs)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[uint]models.Image, len(found))
	for _, img := range found {
		byID[img.ID] = img
	}

	var images []models.Image
	skipped := 0
	for _, id := range b.IDs {
		img, ok := byID[id]
		if !ok {
			em.log(fmt.Sprintf("skipping id=%d: not in catalog", id))
			skipped++
			continue
		}
		if img.Status != models.StatusSuccess {
			em.log(fmt.Sprintf("skipping id=%d: status is %q, not %q", id, img.Status, models.StatusSuccess))
			b.Logger.Warn().Uint("id", id).Str("status", img.Status).Msg("record skipped by normalization")
			skipped++
			continue
		}
		images = append(images, img)
	}
	return images, skipped, nil
}

// processRecord runs extraction and normalization for one record. File and
// parse problems are recorded on the row and never abort the batch; only a
// storage failure propagates.
func (b *ExifBatch) processRecord(img *models.Image, em *emitter) error {
	path := filepath.FromSlash(img.StoredPath)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		em.log(fmt.Sprintf("id=%d: file not found", img.ID))
		return b.Repo.MarkError(img.ID, "file not found")
	}

	raw, err := exifmeta.Extract(path, b.Logger)
	if err != nil {
		em.log(fmt.Sprintf("id=%d: %v", img.ID, err))
		return b.Repo.MarkError(img.ID, err.Error())
	}

	canonical, warnings := exifmeta.Normalize(raw)
	for _, w := range warnings {
		b.Logger.Warn().Uint("id", img.ID).Msg(w)
		em.log(fmt.Sprintf("id=%d: %s", img.ID, w))
	}

	fields := canonicalFields(canonical)

	if b.SaveCSV {
		csvPath, err := report.WriteTagCSV(b.CSVDir, img.ID, raw)
		if err != nil {
			// export failure is a per-record problem, not a catalog one
			b.Logger.Error().Err(err).Uint("id", img.ID).Msg("per-image CSV export failed")
			em.log(fmt.Sprintf("id=%d: CSV export failed: %v", img.ID, err))
		} else {
			fields["exif_csv_path"] = csvPath
		}
	}

	if len(fields) == 0 {
		// no embedded metadata at all; the record stays incomplete and a
		// later run may try again
		em.log(fmt.Sprintf("id=%d: no metadata extracted", img.ID))
		return nil
	}

	if err := b.Repo.UpdateFields(img.ID, fields); err != nil {
		return err
	}
	em.log(fmt.Sprintf("id=%d: %d field(s) normalized", img.ID, len(fields)))
	return nil
}

// canonicalFields flattens the normalized result into the partial update
// map; only non-null fields are written so extraction gaps never erase
// earlier progress.
func canonicalFields(c exifmeta.Canonical) map[string]interface{} {
	fields := make(map[string]interface{})
	put := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	put("capture_time", c.CaptureTime)
	put("camera_model", c.CameraModel)
	put("lens_model", c.LensModel)
	put("focal_length", c.FocalLength)
	put("shutter_speed", c.ShutterSpeed)
	put("aperture", c.Aperture)
	put("iso", c.ISO)
	put("exposure_compensation", c.ExposureCompensation)
	put("white_balance", c.WhiteBalance)
	put("gps_latitude", c.GPSLatitude)
	put("gps_longitude", c.GPSLongitude)
	if c.Width != nil {
		fields["width"] = *c.Width
	}
	if c.Height != nil {
		fields["height"] = *c.Height
	}
	return fields
}

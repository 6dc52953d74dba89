package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/media"
	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

// PreviewBatch generates a derived preview for every success record and
// records the outcomes in the processed_images table. Previews play no part
// in EXIF completeness.
type PreviewBatch struct {
	Repo       *repository.ImageRepository
	Processed  *repository.ProcessedImageRepository
	Logger     zerolog.Logger
	OutputDir  string
	MaxSize    int
	BufferSize int

	err error
}

// Start launches the batch and returns its ordered event stream; see
// IntakeBatch.Start for the stream contract.
func (b *PreviewBatch) Start() <-chan Event {
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
func (b *PreviewBatch) Err() error {
	return b.err
}

func (b *PreviewBatch) run(em *emitter) error {
	if b.OutputDir == "" {
		return fmt.Errorf("preview generation requires an output directory")
	}

	images, err := b.Repo.ListByStatus(models.StatusSuccess)
	if err != nil {
		return err
	}

	total := len(images)
	summary := Summary{Total: total}
	em.log(fmt.Sprintf("generating previews for %d record(s)", total))

	for i, img := range images {
		em.progress(i * 100 / max(total, 1))

		record := &models.ProcessedImage{
			OriginalID: img.ID,
			ImageType:  models.ProcessedTypePreview,
			Status:     models.StatusSuccess,
		}

		previewPath, genErr := media.GeneratePreview(filepath.FromSlash(img.StoredPath), b.OutputDir, b.MaxSize)
		if genErr != nil {
			msg := genErr.Error()
			record.Status = models.StatusError
			record.ErrorMessage = &msg
			record.ImagePath = img.StoredPath
			record.ImageName = img.StoredFilename
			b.Logger.Error().Err(genErr).Uint("id", img.ID).Msg("preview generation failed")
			em.log(fmt.Sprintf("id=%d: preview failed: %v", img.ID, genErr))
			summary.Failed++
		} else {
			record.ImagePath = filepath.ToSlash(previewPath)
			record.ImageName = filepath.Base(previewPath)
			em.log(fmt.Sprintf("id=%d: preview %s", img.ID, record.ImageName))
			summary.Succeeded++
		}

		if err := b.Processed.Create(record); err != nil {
			return err
		}
	}

	em.done(summary)
	return nil
}

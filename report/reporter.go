package report

import (
	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

// Reporter produces aggregate exports from the catalog.
type Reporter struct {
	Repo      *repository.ImageRepository
	Logger    zerolog.Logger
	OutputDir string
}

// Generate writes the aggregate report for the given ids, or for every
// record with a capture time when ids is empty. It returns the path written;
// a write failure leaves no partial file behind.
func (r *Reporter) Generate(ids []uint, outputPath string) (string, error) {
	var images []models.Image
	var err error
	if len(ids) > 0 {
		images, err = r.Repo.ListByIDs(ids)
	} else {
		images, err = r.Repo.ListWithCaptureTime()
	}
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		outputPath = DefaultAggregatePath(r.OutputDir)
	}

	if err := WriteAggregate(images, outputPath); err != nil {
		return "", err
	}

	r.Logger.Info().Str("path", outputPath).Int("images", len(images)).Msg("aggregate report written")
	return outputPath, nil
}

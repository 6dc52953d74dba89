package repository

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/QQ008/shunying-image-processing-preview/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// exifIncompletePred matches status=success rows with at least one core
// EXIF column still NULL. Completeness is always recomputed from this
// predicate; no counter is ever stored.
func exifIncompletePred() sq.And {
	missing := make(sq.Or, 0, len(models.ExifCoreColumns))
	for _, col := range models.ExifCoreColumns {
		missing = append(missing, sq.Eq{col: nil})
	}
	return sq.And{sq.Eq{"status": models.StatusSuccess}, missing}
}

func exifCompletePred() sq.And {
	pred := sq.And{sq.Eq{"status": models.StatusSuccess}}
	for _, col := range models.ExifCoreColumns {
		pred = append(pred, sq.NotEq{col: nil})
	}
	return pred
}

// ImageRepository handles catalog operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// Create inserts a single image record and assigns its id
func (r *ImageRepository) Create(img *models.Image) error {
	if err := r.DB.Create(img).Error; err != nil {
		return fmt.Errorf("failed to create image record for %s: %w", img.OriginalFilename, err)
	}
	return nil
}

// CreateBatch inserts all records of an intake batch in one transaction, so
// a crash mid-batch leaves the catalog at the prior durable state
func (r *ImageRepository) CreateBatch(imgs []*models.Image) error {
	if len(imgs) == 0 {
		return nil
	}
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		for _, img := range imgs {
			if err := tx.Create(img).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit intake batch of %d records: %w", len(imgs), err)
	}
	return nil
}

// GetByID retrieves a single image record
func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var img models.Image
	err := r.DB.First(&img, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image %d: %w", id, err)
	}
	return &img, nil
}

// UpdateFields applies a partial update; only the provided columns change.
// The normalization stage uses this to advance completeness incrementally.
func (r *ImageRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update image %d: %w", id, result.Error)
	}
	return nil
}

// MarkError flips a record to status=error with a descriptive message
func (r *ImageRepository) MarkError(id uint, msg string) error {
	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        models.StatusError,
		"error_message": msg,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark image %d as error: %w", id, result.Error)
	}
	return nil
}

// ListExifIncomplete returns every success record missing at least one core
// EXIF field, in stable id order so reprocessing is resumable
func (r *ImageRepository) ListExifIncomplete() ([]models.Image, error) {
	sqlStr, args, err := psql.Select("*").
		From("images").
		Where(exifIncompletePred()).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build incomplete-records query: %w", err)
	}

	var images []models.Image
	if err := r.DB.Raw(sqlStr, args...).Scan(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list EXIF-incomplete images: %w", err)
	}
	return images, nil
}

// ListByIDs returns the records for an explicit id list, in id order
func (r *ImageRepository) ListByIDs(ids []uint) ([]models.Image, error) {
	var images []models.Image
	if len(ids) == 0 {
		return images, nil
	}
	err := r.DB.Where("id IN ?", ids).Order("id ASC").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images by ids: %w", err)
	}
	return images, nil
}

// ListByStatus returns all records with the given status, in id order
func (r *ImageRepository) ListByStatus(status string) ([]models.Image, error) {
	var images []models.Image
	err := r.DB.Where("status = ?", status).Order("id ASC").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images with status %s: %w", status, err)
	}
	return images, nil
}

// ListWithCaptureTime returns every record carrying a capture time, ordered
// by it ascending. Canonical capture-time strings sort chronologically.
func (r *ImageRepository) ListWithCaptureTime() ([]models.Image, error) {
	var images []models.Image
	err := r.DB.Where("capture_time IS NOT NULL").Order("capture_time ASC").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images with capture time: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) countWhere(pred sq.Sqlizer) (int64, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").From("images").Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var count int64
	if err := r.DB.Raw(sqlStr, args...).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// CountExifComplete reports how many success records have all ten core
// EXIF fields populated
func (r *ImageRepository) CountExifComplete() (int64, error) {
	return r.countWhere(exifCompletePred())
}

// CountExifIncomplete reports how many success records still need
// normalization. CountExifComplete + CountExifIncomplete always equals
// CountByStatus(success).
func (r *ImageRepository) CountExifIncomplete() (int64, error) {
	return r.countWhere(exifIncompletePred())
}

// CountByStatus reports how many records carry the given status
func (r *ImageRepository) CountByStatus(status string) (int64, error) {
	return r.countWhere(sq.Eq{"status": status})
}

package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/QQ008/shunying-image-processing-preview/models"
)

// ProcessedImageRepository handles catalog operations for derived images
type ProcessedImageRepository struct {
	DB *gorm.DB
}

func NewProcessedImageRepository(db *gorm.DB) *ProcessedImageRepository {
	return &ProcessedImageRepository{DB: db}
}

// Create inserts a derived-image record and assigns its id
func (r *ProcessedImageRepository) Create(p *models.ProcessedImage) error {
	if err := r.DB.Create(p).Error; err != nil {
		return fmt.Errorf("failed to create processed image record for original %d: %w", p.OriginalID, err)
	}
	return nil
}

// ListByOriginalID returns all derived images recorded for one original
func (r *ProcessedImageRepository) ListByOriginalID(originalID uint) ([]models.ProcessedImage, error) {
	var items []models.ProcessedImage
	err := r.DB.Where("original_id = ?", originalID).Order("id ASC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list processed images for original %d: %w", originalID, err)
	}
	return items, nil
}

package models

import "time"

// Derived image types currently produced by the pipeline.
const (
	ProcessedTypePreview = "preview"
)

// ProcessedImage represents an output artifact derived from an ingested
// image (a preview, crop, mask and so on) in the 'processed_images' table.
// The core ingest/normalize pipeline never writes here; downstream stages
// such as preview generation do.
type ProcessedImage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OriginalID   uint      `gorm:"not null;index" json:"original_id"`
	ImagePath    string    `gorm:"not null" json:"image_path"`
	ImageName    string    `gorm:"not null" json:"image_name"`
	ImageType    string    `gorm:"" json:"image_type,omitempty"`
	Status       string    `gorm:"not null;default:success" json:"status"`
	ErrorMessage *string   `gorm:"" json:"error_message,omitempty"`
	Remark       *string   `gorm:"" json:"remark,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Original *Image `gorm:"foreignKey:OriginalID" json:"original,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (ProcessedImage) TableName() string {
	return "processed_images"
}

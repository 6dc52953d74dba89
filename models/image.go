package models

import "time"

// Image statuses. A record is written exactly once by intake and only ever
// mutated afterwards by the EXIF normalization stage.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Image represents one ingested source file in the 'images' table.
type Image struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OriginalFilename string    `gorm:"not null" json:"original_filename"`
	StoredFilename   string    `gorm:"not null" json:"stored_filename"`
	StoredPath       string    `gorm:"not null" json:"stored_path"` // normalized, forward slashes
	IngestTime       time.Time `gorm:"not null" json:"ingest_time"`
	Status           string    `gorm:"not null;default:success" json:"status"`
	ErrorMessage     *string   `gorm:"" json:"error_message,omitempty"` // set iff status=error
	Remark           *string   `gorm:"" json:"remark,omitempty"`

	// canonical EXIF fields, all nullable until extracted.
	// CaptureTime holds either the canonical "2006-01-02 15:04:05" form or
	// the raw tag value verbatim when no layout matched.
	CaptureTime          *string `gorm:"index" json:"capture_time,omitempty"`
	Width                *int    `gorm:"" json:"width,omitempty"`
	Height               *int    `gorm:"" json:"height,omitempty"`
	CameraModel          *string `gorm:"" json:"camera_model,omitempty"`
	LensModel            *string `gorm:"" json:"lens_model,omitempty"`
	FocalLength          *string `gorm:"" json:"focal_length,omitempty"`          // "50.0mm"
	ShutterSpeed         *string `gorm:"" json:"shutter_speed,omitempty"`         // "1/250s", "3/10s"
	Aperture             *string `gorm:"" json:"aperture,omitempty"`              // "f/2.8"
	ISO                  *string `gorm:"" json:"iso,omitempty"`                   // raw sensor value
	ExposureCompensation *string `gorm:"" json:"exposure_compensation,omitempty"` // "+0.7EV"
	WhiteBalance         *string `gorm:"" json:"white_balance,omitempty"`         // "auto", "manual" or raw
	GPSLatitude          *string `gorm:"" json:"gps_latitude,omitempty"`          // signed decimal degrees
	GPSLongitude         *string `gorm:"" json:"gps_longitude,omitempty"`
	ExifCSVPath          *string `gorm:"" json:"exif_csv_path,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}

// ExifCoreColumns are the ten columns whose joint presence, together with
// status=success, makes a record EXIF-complete. lens_model and the GPS pair
// are deliberately not part of completeness: they are routinely absent even
// on professional cameras.
var ExifCoreColumns = []string{
	"capture_time",
	"camera_model",
	"width",
	"height",
	"focal_length",
	"shutter_speed",
	"aperture",
	"iso",
	"exposure_compensation",
	"white_balance",
}

// ExifComplete reports completeness for an in-memory record. The catalog
// queries recompute the same predicate in SQL; nothing caches it.
func (img *Image) ExifComplete() bool {
	if img.Status != StatusSuccess {
		return false
	}
	if img.CaptureTime == nil || img.CameraModel == nil {
		return false
	}
	if img.Width == nil || img.Height == nil {
		return false
	}
	if img.FocalLength == nil || img.ShutterSpeed == nil || img.Aperture == nil {
		return false
	}
	if img.ISO == nil || img.ExposureCompensation == nil || img.WhiteBalance == nil {
		return false
	}
	return true
}

// Package report serializes catalog metadata to delimited files: a
// two-column tag/value export per image and an aggregate report across many
// images. Every writer builds the complete output in memory and writes it in
// one shot, so a failure never leaves a partial file behind.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/QQ008/shunying-image-processing-preview/exifmeta"
	"github.com/QQ008/shunying-image-processing-preview/models"
)

// gpsTagPrefix groups GPS tags under a dotted key path in the per-image
// export, mirroring how the tags nest in the EXIF structure itself.
const gpsTagPrefix = "GPS"

// TagCSVPath returns the per-image export path for an image id.
func TagCSVPath(dir string, imageID uint) string {
	return filepath.Join(dir, fmt.Sprintf("exif_%d.csv", imageID))
}

// WriteTagCSV exports the full raw metadata set of one image as a
// two-column Tag,Value file, one row per raw key, keys sorted. Nested
// structures are flattened with a dotted key path.
func WriteTagCSV(dir string, imageID uint, raw *exifmeta.RawSet) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create CSV output directory %s: %w", dir, err)
	}

	rows := make([][]string, 0, len(raw.Tags)+2)
	for name, value := range raw.Tags {
		rows = append(rows, []string{flattenTagName(name), value.Text})
	}
	if raw.Width != nil {
		rows = append(rows, []string{"ImageSize.Width", strconv.Itoa(*raw.Width)})
	}
	if raw.Height != nil {
		rows = append(rows, []string{"ImageSize.Height", strconv.Itoa(*raw.Height)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Tag", "Value"}); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}

	path := TagCSVPath(dir, imageID)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write tag CSV %s: %w", path, err)
	}
	return path, nil
}

func flattenTagName(name string) string {
	if strings.HasPrefix(name, gpsTagPrefix) && name != gpsTagPrefix {
		return "GPSInfo." + name
	}
	return name
}

// aggregateColumns is the canonical field set exported per image, in report
// column order.
var aggregateColumns = []string{
	"id", "file_name", "width", "height", "camera_model", "lens_model",
	"focal_length", "shutter_speed", "aperture", "iso",
	"exposure_compensation", "white_balance", "capture_time",
}

// DefaultAggregatePath builds the timestamped output name used when the
// caller supplies none.
func DefaultAggregatePath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("exif_report_%s.csv", time.Now().Format("20060102_150405")))
}

// WriteAggregate serializes one row per image, canonical fields only,
// ordered by capture time ascending.
func WriteAggregate(images []models.Image, outputPath string) error {
	sorted := make([]models.Image, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool {
		return derefOr(sorted[i].CaptureTime, "") < derefOr(sorted[j].CaptureTime, "")
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(aggregateColumns); err != nil {
		return err
	}
	for _, img := range sorted {
		row := []string{
			strconv.FormatUint(uint64(img.ID), 10),
			img.StoredFilename,
			intOr(img.Width),
			intOr(img.Height),
			derefOr(img.CameraModel, ""),
			derefOr(img.LensModel, ""),
			derefOr(img.FocalLength, ""),
			derefOr(img.ShutterSpeed, ""),
			derefOr(img.Aperture, ""),
			derefOr(img.ISO, ""),
			derefOr(img.ExposureCompensation, ""),
			derefOr(img.WhiteBalance, ""),
			derefOr(img.CaptureTime, ""),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", outputPath, err)
	}
	return nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func intOr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// Package media generates derived image assets from cataloged originals.
package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const previewJpegQuality = 85

// GeneratePreview writes a bounded-size JPEG preview of the original into
// destDir under a generated name and returns the saved path. The original is
// never modified.
func GeneratePreview(originalPath, destDir string, maxSize int) (string, error) {
	img, err := imaging.Open(originalPath)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", originalPath, err)
	}

	preview := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory %s: %w", destDir, err)
	}

	previewUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate preview filename: %w", err)
	}
	savePath := filepath.Join(destDir, previewUUID.String()+".jpg")

	if err := imaging.Save(preview, savePath, imaging.JPEGQuality(previewJpegQuality)); err != nil {
		return "", fmt.Errorf("failed to save preview %s: %w", savePath, err)
	}
	return savePath, nil
}

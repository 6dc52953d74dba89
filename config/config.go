package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultExifCSVSubDir    = "exif_data"
	DefaultQuarantineDir    = "error"
	DefaultPreviewsSubDir   = "previews"
	defaultPreviewMaxSize   = 1600
	defaultEventBufferSize  = 64
	defaultDatabaseFileName = "images.db"
)

type Config struct {
	// catalog database path
	DatabasePath string

	// directory receiving per-image and aggregate EXIF CSV reports
	ExifCSVOutputDir string

	// name of the quarantine subdirectory created under intake destinations
	QuarantineDirName string

	// preview generation settings
	PreviewsPath   string
	PreviewMaxSize int

	// buffered capacity of a batch's event channel
	EventBufferSize int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", defaultDatabaseFileName)

	csvDir := getEnvOrDefault("EXIF_CSV_OUTPUT_DIR", filepath.Join(".", DefaultExifCSVSubDir))
	absCSVDir, err := filepath.Abs(csvDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for CSV output dir '%s': %w", csvDir, err)
	}

	previews := getEnvOrDefault("PREVIEWS_PATH", filepath.Join(".", DefaultPreviewsSubDir))
	absPreviews, err := filepath.Abs(previews)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for previews dir '%s': %w", previews, err)
	}

	cfg := Config{
		DatabasePath:      dbPath,
		ExifCSVOutputDir:  absCSVDir,
		QuarantineDirName: getEnvOrDefault("QUARANTINE_DIR_NAME", DefaultQuarantineDir),
		PreviewsPath:      absPreviews,
		PreviewMaxSize:    getEnvIntOrDefault("PREVIEW_MAX_SIZE", defaultPreviewMaxSize),
		EventBufferSize:   getEnvIntOrDefault("EVENT_BUFFER_SIZE", defaultEventBufferSize),
	}

	return cfg, nil
}

package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/facette/natsort"
)

// imageExts are the source file extensions intake accepts when scanning a
// directory tree.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether the path has a recognized image extension.
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// ScanDir walks root and returns every image file beneath it in natural
// name order, skipping hidden files and directories. The ordering keeps
// intake batches deterministic across runs.
func ScanDir(root string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		if IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	natsort.Sort(files)
	return files, nil
}

package pipeline

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

// RenamePolicy selects how intake names a file when bringing it under
// catalog management.
type RenamePolicy int

const (
	// PolicyNone records the file as-is with no filesystem mutation
	PolicyNone RenamePolicy = iota
	// PolicyTimestamp names the file after a millisecond epoch timestamp,
	// disambiguated on collision
	PolicyTimestamp
	// PolicyHash names the file after the MD5 digest of its content, so
	// identical bytes always map to the same name
	PolicyHash
)

// ParsePolicy maps the CLI spelling of a policy onto its value.
func ParsePolicy(s string) (RenamePolicy, error) {
	switch s {
	case "none":
		return PolicyNone, nil
	case "timestamp":
		return PolicyTimestamp, nil
	case "content-hash", "hash":
		return PolicyHash, nil
	}
	return PolicyNone, fmt.Errorf("unknown rename policy %q", s)
}

// IntakeOptions configures one intake batch.
type IntakeOptions struct {
	Files        []string
	Policy       RenamePolicy
	Prefix       string
	KeepOriginal bool   // copy to OutputDir instead of renaming in place
	OutputDir    string // required when KeepOriginal and Policy != none

	// quarantine subdirectory name, created on demand under the
	// destination directory
	QuarantineDirName string
}

// IntakeBatch brings a list of source files into the catalog: one record per
// file, success or quarantined error, committed together at the end.
type IntakeBatch struct {
	Repo       *repository.ImageRepository
	Logger     zerolog.Logger
	Opts       IntakeOptions
	BufferSize int

	err error
}

// Start launches the batch and returns its ordered event stream. The channel
// is closed when the batch finishes; Err reports a batch-level failure
// afterwards. Files are processed strictly sequentially: collision probing
// and catalog writes assume a single mutator.
func (b *IntakeBatch) Start() <-chan Event {
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
// closed. Per-file failures never appear here; they live on catalog rows.
func (b *IntakeBatch) Err() error {
	return b.err
}

func (b *IntakeBatch) run(em *emitter) error {
	opts := b.Opts

	// preconditions are rejected before any file is touched
	if opts.Policy != PolicyNone && opts.KeepOriginal && opts.OutputDir == "" {
		return fmt.Errorf("keep-original intake requires an output directory")
	}
	if opts.QuarantineDirName == "" {
		opts.QuarantineDirName = "error"
	}

	if opts.Policy != PolicyNone && opts.KeepOriginal {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", opts.OutputDir, err)
		}
	}

	total := len(opts.Files)
	em.log(fmt.Sprintf("starting intake of %d file(s)", total))

	var records []*models.Image
	summary := Summary{Total: total}

	for i, src := range opts.Files {
		em.progress(i * 100 / max(total, 1))

		record, err := b.processFile(src, opts)
		if err != nil {
			// per-file failure: quarantine a copy and record an error row;
			// the batch always continues
			b.Logger.Error().Err(err).Str("file", src).Msg("intake failed")
			em.log(fmt.Sprintf("error: %s: %v", filepath.Base(src), err))
			record = b.quarantine(src, opts, err)
			summary.Failed++
		} else {
			em.log(fmt.Sprintf("ingested %s as %s", record.OriginalFilename, record.StoredFilename))
			summary.Succeeded++
		}
		records = append(records, record)
	}

	// one transaction for the whole batch; a crash before this point leaves
	// the prior durable state untouched
	if err := b.Repo.CreateBatch(records); err != nil {
		return err
	}

	em.log(fmt.Sprintf("intake finished: %d succeeded, %d failed", summary.Succeeded, summary.Failed))
	em.done(summary)
	return nil
}

func (b *IntakeBatch) processFile(src string, opts IntakeOptions) (*models.Image, error) {
	originalName := filepath.Base(src)

	if opts.Policy == PolicyNone {
		// populate the catalog from an already-organized tree
		if _, err := os.Stat(src); err != nil {
			return nil, fmt.Errorf("source file unreadable: %w", err)
		}
		return &models.Image{
			OriginalFilename: originalName,
			StoredFilename:   originalName,
			StoredPath:       normalizePath(src),
			IngestTime:       time.Now(),
			Status:           models.StatusSuccess,
		}, nil
	}

	destDir := opts.OutputDir
	if !opts.KeepOriginal {
		destDir = filepath.Dir(src)
	}

	name, err := b.computeName(src, destDir, opts.Policy, opts.Prefix)
	if err != nil {
		return nil, err
	}

	destPath := filepath.Join(destDir, name)
	if opts.KeepOriginal {
		if err := copyFile(src, destPath); err != nil {
			return nil, fmt.Errorf("failed to copy to %s: %w", destPath, err)
		}
	} else if originalName != name {
		// multiple inputs can collapse to the same hash name; clear the
		// target first so the rename cannot conflict
		if _, statErr := os.Stat(destPath); statErr == nil && destPath != src {
			if err := os.Remove(destPath); err != nil {
				return nil, fmt.Errorf("failed to clear existing target %s: %w", destPath, err)
			}
		}
		if err := os.Rename(src, destPath); err != nil {
			return nil, fmt.Errorf("failed to rename to %s: %w", destPath, err)
		}
	}

	return &models.Image{
		OriginalFilename: originalName,
		StoredFilename:   name,
		StoredPath:       normalizePath(destPath),
		IngestTime:       time.Now(),
		Status:           models.StatusSuccess,
	}, nil
}

// computeName derives the final destination base name for a file under the
// given policy, prefix included, so collision probing sees the name that
// will actually land on disk.
func (b *IntakeBatch) computeName(src, destDir string, policy RenamePolicy, prefix string) (string, error) {
	ext := filepath.Ext(src)

	switch policy {
	case PolicyTimestamp:
		ts := time.Now().UnixMilli()
		name := fmt.Sprintf("%s%d%s", prefix, ts, ext)
		// the timestamp alone is not unique within a collision window;
		// probe the destination until the name is free
		for count := 1; ; count++ {
			if _, err := os.Stat(filepath.Join(destDir, name)); os.IsNotExist(err) {
				break
			}
			name = fmt.Sprintf("%s%d_%d%s", prefix, ts, count, ext)
		}
		return name, nil

	case PolicyHash:
		digest, err := hashFile(src)
		if err != nil {
			return "", fmt.Errorf("failed to hash file content: %w", err)
		}
		return prefix + digest + ext, nil
	}

	return "", fmt.Errorf("policy does not rename")
}

// quarantine copies (never moves) the failed source into the quarantine
// directory and builds the error row for it. The copy itself failing is
// logged but still produces an error row pointing at the original path.
func (b *IntakeBatch) quarantine(src string, opts IntakeOptions, cause error) *models.Image {
	originalName := filepath.Base(src)
	msg := cause.Error()

	record := &models.Image{
		OriginalFilename: originalName,
		StoredFilename:   originalName,
		StoredPath:       normalizePath(src),
		IngestTime:       time.Now(),
		Status:           models.StatusError,
		ErrorMessage:     &msg,
	}

	quarantineDir := filepath.Join(b.quarantineRoot(opts), opts.QuarantineDirName)
	if err := os.MkdirAll(quarantineDir, 0755); err != nil {
		b.Logger.Error().Err(err).Str("dir", quarantineDir).Msg("failed to create quarantine directory")
		return record
	}

	quarantinePath := filepath.Join(quarantineDir, originalName)
	if _, err := os.Stat(quarantinePath); err == nil {
		ext := filepath.Ext(originalName)
		base := originalName[:len(originalName)-len(ext)]
		quarantinePath = filepath.Join(quarantineDir, fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))
	}

	if err := copyFile(src, quarantinePath); err != nil {
		b.Logger.Error().Err(err).Str("file", src).Msg("failed to copy file into quarantine")
		return record
	}

	b.Logger.Info().Str("file", src).Str("quarantine", quarantinePath).Msg("quarantined failed file")
	record.StoredPath = normalizePath(quarantinePath)
	return record
}

func (b *IntakeBatch) quarantineRoot(opts IntakeOptions) string {
	switch {
	case opts.Policy == PolicyNone:
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	case opts.KeepOriginal:
		return opts.OutputDir
	case len(opts.Files) > 0:
		return filepath.Dir(opts.Files[0])
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}
	return dstFile.Sync()
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

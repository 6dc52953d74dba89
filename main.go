package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/QQ008/shunying-image-processing-preview/config"
	"github.com/QQ008/shunying-image-processing-preview/database"
	"github.com/QQ008/shunying-image-processing-preview/logging"
	"github.com/QQ008/shunying-image-processing-preview/models"
	"github.com/QQ008/shunying-image-processing-preview/pipeline"
	"github.com/QQ008/shunying-image-processing-preview/report"
	"github.com/QQ008/shunying-image-processing-preview/repository"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Photo catalog pipeline\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s ingest   -src DIR | -files a,b,c [-policy none|timestamp|content-hash] [-prefix P] [-keep-original] [-out DIR]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s exif     [-ids 1,2,3] [-csv]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s report   [-ids 1,2,3] [-out FILE]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s previews [-out DIR] [-max N]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s stats\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Stdout)

	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.InitDB(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize catalog database")
	}

	var exitCode int
	switch os.Args[1] {
	case "ingest":
		exitCode = runIngest(os.Args[2:], cfg, db, logger)
	case "exif":
		exitCode = runExif(os.Args[2:], cfg, db, logger)
	case "report":
		exitCode = runReport(os.Args[2:], cfg, db, logger)
	case "previews":
		exitCode = runPreviews(os.Args[2:], cfg, db, logger)
	case "stats":
		exitCode = runStats(db, logger)
	default:
		usage()
		exitCode = 2
	}
	os.Exit(exitCode)
}

func runIngest(args []string, cfg config.Config, db *gorm.DB, logger zerolog.Logger) int {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	src := fs.String("src", "", "source directory to scan for images")
	fileList := fs.String("files", "", "comma-separated list of source files")
	policyName := fs.String("policy", "content-hash", "rename policy: none, timestamp or content-hash")
	prefix := fs.String("prefix", "", "filename prefix tag")
	keepOriginal := fs.Bool("keep-original", false, "copy into the output directory, leaving sources untouched")
	outDir := fs.String("out", "", "destination directory (required with -keep-original)")
	fs.Parse(args)

	policy, err := pipeline.ParsePolicy(*policyName)
	if err != nil {
		logger.Error().Err(err).Msg("invalid rename policy")
		return 2
	}

	var files []string
	switch {
	case *src != "":
		files, err = pipeline.ScanDir(*src)
		if err != nil {
			logger.Error().Err(err).Str("dir", *src).Msg("source scan failed")
			return 1
		}
	case *fileList != "":
		files = strings.Split(*fileList, ",")
	default:
		logger.Error().Msg("ingest needs -src or -files")
		return 2
	}

	batch := &pipeline.IntakeBatch{
		Repo:   repository.NewImageRepository(db),
		Logger: logger,
		Opts: pipeline.IntakeOptions{
			Files:             files,
			Policy:            policy,
			Prefix:            *prefix,
			KeepOriginal:      *keepOriginal,
			OutputDir:         *outDir,
			QuarantineDirName: cfg.QuarantineDirName,
		},
		BufferSize: cfg.EventBufferSize,
	}
	consumeEvents(batch.Start(), logger)
	if err := batch.Err(); err != nil {
		logger.Error().Err(err).Msg("intake batch failed")
		return 1
	}
	return 0
}

func runExif(args []string, cfg config.Config, db *gorm.DB, logger zerolog.Logger) int {
	fs := flag.NewFlagSet("exif", flag.ExitOnError)
	idList := fs.String("ids", "", "comma-separated record ids (default: all incomplete)")
	saveCSV := fs.Bool("csv", false, "export a per-image tag CSV and store its path")
	fs.Parse(args)

	ids, err := parseIDs(*idList)
	if err != nil {
		logger.Error().Err(err).Msg("invalid id list")
		return 2
	}

	batch := &pipeline.ExifBatch{
		Repo:       repository.NewImageRepository(db),
		Logger:     logger,
		IDs:        ids,
		SaveCSV:    *saveCSV,
		CSVDir:     cfg.ExifCSVOutputDir,
		BufferSize: cfg.EventBufferSize,
	}
	consumeEvents(batch.Start(), logger)
	if err := batch.Err(); err != nil {
		logger.Error().Err(err).Msg("normalization batch failed")
		return 1
	}
	return 0
}

func runReport(args []string, cfg config.Config, db *gorm.DB, logger zerolog.Logger) int {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	idList := fs.String("ids", "", "comma-separated record ids (default: all with capture time)")
	out := fs.String("out", "", "output file path (default: timestamped name in the CSV output dir)")
	fs.Parse(args)

	ids, err := parseIDs(*idList)
	if err != nil {
		logger.Error().Err(err).Msg("invalid id list")
		return 2
	}

	reporter := &report.Reporter{
		Repo:      repository.NewImageRepository(db),
		Logger:    logger,
		OutputDir: cfg.ExifCSVOutputDir,
	}
	path, err := reporter.Generate(ids, *out)
	if err != nil {
		logger.Error().Err(err).Msg("report generation failed")
		return 1
	}
	fmt.Println(path)
	return 0
}

func runPreviews(args []string, cfg config.Config, db *gorm.DB, logger zerolog.Logger) int {
	fs := flag.NewFlagSet("previews", flag.ExitOnError)
	out := fs.String("out", cfg.PreviewsPath, "preview output directory")
	maxSize := fs.Int("max", cfg.PreviewMaxSize, "longest preview side in pixels")
	fs.Parse(args)

	batch := &pipeline.PreviewBatch{
		Repo:       repository.NewImageRepository(db),
		Processed:  repository.NewProcessedImageRepository(db),
		Logger:     logger,
		OutputDir:  *out,
		MaxSize:    *maxSize,
		BufferSize: cfg.EventBufferSize,
	}
	consumeEvents(batch.Start(), logger)
	if err := batch.Err(); err != nil {
		logger.Error().Err(err).Msg("preview batch failed")
		return 1
	}
	return 0
}

func runStats(db *gorm.DB, logger zerolog.Logger) int {
	repo := repository.NewImageRepository(db)

	success, err := repo.CountByStatus(models.StatusSuccess)
	if err != nil {
		logger.Error().Err(err).Msg("stats query failed")
		return 1
	}
	failed, _ := repo.CountByStatus(models.StatusError)
	complete, _ := repo.CountExifComplete()
	incomplete, _ := repo.CountExifIncomplete()

	fmt.Printf("    SUCCESS: %d\n", success)
	fmt.Printf("      ERROR: %d\n", failed)
	fmt.Printf("   COMPLETE: %d\n", complete)
	fmt.Printf(" INCOMPLETE: %d\n", incomplete)
	return 0
}

// consumeEvents drains a batch's event stream, mirroring it to the log. The
// pipeline goroutine never blocks on this consumer beyond channel capacity.
func consumeEvents(events <-chan pipeline.Event, logger zerolog.Logger) {
	for ev := range events {
		switch ev.Type {
		case pipeline.EventProgress:
			logger.Debug().Int("percent", ev.Progress).Str("run", ev.RunID).Msg("progress")
		case pipeline.EventLog:
			logger.Info().Str("run", ev.RunID).Msg(ev.Message)
		case pipeline.EventDone:
			logger.Info().
				Int("total", ev.Summary.Total).
				Int("succeeded", ev.Summary.Succeeded).
				Int("failed", ev.Summary.Failed).
				Int("skipped", ev.Summary.Skipped).
				Str("run", ev.RunID).
				Msg("batch finished")
		}
	}
}

func parseIDs(s string) ([]uint, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

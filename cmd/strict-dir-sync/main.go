package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-dir-sync/pkg/cancel"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/notify"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/resolver"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/session"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

type syncConfig struct {
	source         string
	destination    string
	noOverwrite    bool
	delete         bool
	syncEmptyDirs  bool
	excludes       []string
	comparisonMode string
	parallel       bool
	workers        int
	useStaging     bool
	useTrash       bool
	dryRun         bool
	quiet          bool
	verbose        bool
	planJSONFile   string
	resultJSONFile string
	logFile        string

	sourceUser string
	sourcePass string
	destUser   string
	destPass   string

	telegramToken  string
	telegramChatID string
	reportS3URI    string
	profile        string
	region         string

	mode fingerprint.Mode
}

func main() {
	var cfg syncConfig

	rootCmd := &cobra.Command{
		Use:   "strict-dir-sync <source> <destination>",
		Short: "Mirror a directory tree using content checksums",
		Long: `strict-dir-sync makes a destination directory mirror a source directory.
Files are compared by SHA-256 content hash, or by size and mtime with a hash
fallback in hybrid mode, so only real changes are copied.`,
		Version: fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.source = args[0]
			cfg.destination = args[1]

			if err := validateConfig(&cfg); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, &cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&cfg.noOverwrite, "no-overwrite", false, "Never overwrite files that already exist in the destination")
	flags.BoolVar(&cfg.delete, "delete", false, "Delete destination files that don't exist in source")
	flags.BoolVar(&cfg.syncEmptyDirs, "sync-empty-dirs", false, "Create source directories that contain no files")
	flags.StringSliceVar(&cfg.excludes, "exclude", nil, "Exclude patterns (can be specified multiple times)")
	flags.StringVar(&cfg.comparisonMode, "comparison-mode", "accurate", "File comparison: accurate (always hash) or hybrid (size and mtime, hash on mismatch)")
	flags.BoolVar(&cfg.parallel, "parallel", false, "Fingerprint files in parallel")
	flags.IntVar(&cfg.workers, "workers", 0, "Number of scan workers (defaults to the number of CPUs)")
	flags.BoolVar(&cfg.useStaging, "use-staging", false, "Write to a temporary file and rename it into place")
	flags.BoolVar(&cfg.useTrash, "use-trash", false, "Move deleted files to a trash directory inside the destination")
	flags.BoolVar(&cfg.dryRun, "dryrun", false, "Shows operations without executing")
	flags.BoolVar(&cfg.quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&cfg.verbose, "verbose", false, "Log skipped files and debug details")
	flags.StringVar(&cfg.planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	flags.StringVar(&cfg.resultJSONFile, "result-json-file", "", "Path to output result as JSON file")
	flags.StringVar(&cfg.logFile, "log-file", "", "Also append log lines to this file")
	flags.StringVar(&cfg.sourceUser, "source-user", "", "User name for the source network share")
	flags.StringVar(&cfg.sourcePass, "source-pass", "", "Password for the source network share")
	flags.StringVar(&cfg.destUser, "dest-user", "", "User name for the destination network share")
	flags.StringVar(&cfg.destPass, "dest-pass", "", "Password for the destination network share")
	flags.StringVar(&cfg.telegramToken, "telegram-token", "", "Telegram bot token for the summary message")
	flags.StringVar(&cfg.telegramChatID, "telegram-chat-id", "", "Telegram chat ID for the summary message")
	flags.StringVar(&cfg.reportS3URI, "report-s3-uri", "", "Upload the summary to this S3 prefix (s3://bucket/prefix)")
	flags.StringVar(&cfg.profile, "profile", "", "AWS profile to use")
	flags.StringVar(&cfg.region, "region", "", "AWS region (uses default if not specified)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateConfig(cfg *syncConfig) error {
	if cfg.source == "" {
		return fmt.Errorf("source path is required")
	}
	if cfg.destination == "" {
		return fmt.Errorf("destination path is required")
	}

	mode, err := fingerprint.ParseMode(cfg.comparisonMode)
	if err != nil {
		return err
	}
	cfg.mode = mode

	if cfg.workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if cfg.useTrash && !cfg.delete {
		return fmt.Errorf("--use-trash requires --delete")
	}
	if cfg.quiet && cfg.verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	if (cfg.telegramToken == "") != (cfg.telegramChatID == "") {
		return fmt.Errorf("--telegram-token and --telegram-chat-id must be given together")
	}
	if cfg.reportS3URI != "" && !strings.HasPrefix(cfg.reportS3URI, "s3://") {
		return fmt.Errorf("report S3 URI must start with s3://")
	}

	return nil
}

func (cfg *syncConfig) options() session.Options {
	return session.Options{
		NoOverwrite:   cfg.noOverwrite,
		DeleteRemoved: cfg.delete,
		SyncEmptyDirs: cfg.syncEmptyDirs,
		Excludes:      cfg.excludes,
		Mode:          cfg.mode,
		ParallelScan:  cfg.parallel,
		ScanWorkers:   cfg.workers,
		UseStaging:    cfg.useStaging,
		UseTrash:      cfg.useTrash,
		DryRun:        cfg.dryRun,
	}
}

func credentials(user, pass string) *resolver.Credentials {
	if user == "" && pass == "" {
		return nil
	}
	return &resolver.Credentials{User: user, Password: pass}
}

func run(ctx context.Context, cfg *syncConfig) error {
	startTime := time.Now()
	runID := uuid.NewString()

	syncLogger := &logger.SyncLogger{
		IsDryRun:  cfg.dryRun,
		IsQuiet:   cfg.quiet,
		IsVerbose: cfg.verbose,
		RunID:     runID,
	}
	if cfg.logFile != "" {
		closeLog, err := attachLogFile(syncLogger, cfg.logFile)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	notifier, err := buildNotifier(ctx, cfg, syncLogger, startTime)
	if err != nil {
		return err
	}

	syncLogger.Info("starting sync",
		"source", cfg.source,
		"destination", cfg.destination,
		"mode", cfg.mode.String(),
		"no_overwrite", cfg.noOverwrite,
		"delete", cfg.delete,
	)

	token := cancel.New()
	stopWatch := token.WatchContext(ctx)
	defer stopWatch()

	sess := session.New(session.Config{
		Source:      cfg.source,
		Destination: cfg.destination,
		SourceCreds: credentials(cfg.sourceUser, cfg.sourcePass),
		DestCreds:   credentials(cfg.destUser, cfg.destPass),
		Options:     cfg.options(),
		RunID:       runID,
	}, session.Deps{
		SourceResolver: &resolver.LocalResolver{},
		DestResolver:   &resolver.LocalResolver{Writable: true},
		Notifier:       notifier,
		Logger:         syncLogger,
	})

	res := sess.Run(ctx, token)

	if cfg.planJSONFile != "" && res.Plan != nil {
		if err := writeJSON(cfg.planJSONFile, buildPlanResult(res.Plan, cfg.source, cfg.destination)); err != nil {
			return fmt.Errorf("failed to write plan JSON: %w", err)
		}
	}
	if cfg.resultJSONFile != "" && !cfg.dryRun {
		if err := writeJSON(cfg.resultJSONFile, buildSyncResult(res, cfg.source, cfg.destination)); err != nil {
			return fmt.Errorf("failed to write result JSON: %w", err)
		}
	}

	switch res.Outcome {
	case session.OutcomeCancelled:
		return fmt.Errorf("sync cancelled")
	case session.OutcomeFailed:
		return res.Err
	}
	if res.Stats.Errors > 0 {
		return fmt.Errorf("sync completed with %d errors", res.Stats.Errors)
	}
	return nil
}

// attachLogFile makes log also append every line to path, keeping the
// console output.
func attachLogFile(log *logger.SyncLogger, path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	stdout, stderr := log.Stdout, log.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	log.Stdout = io.MultiWriter(stdout, f)
	log.Stderr = io.MultiWriter(stderr, f)
	return f.Close, nil
}

// buildNotifier always logs the summary and adds the remote sinks that
// were configured.
func buildNotifier(ctx context.Context, cfg *syncConfig, log logger.Logger, runTime time.Time) (notify.Notifier, error) {
	notifiers := notify.Multi{&notify.LogNotifier{Logger: log}}

	if cfg.telegramToken != "" {
		notifiers = append(notifiers, notify.NewTelegramNotifier(cfg.telegramToken, cfg.telegramChatID))
	}

	if cfg.reportS3URI != "" {
		var configOpts []func(*config.LoadOptions) error
		if cfg.profile != "" {
			configOpts = append(configOpts, config.WithSharedConfigProfile(cfg.profile))
		}
		if cfg.region != "" {
			configOpts = append(configOpts, config.WithRegion(cfg.region))
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		s3Notifier, err := notify.NewS3Notifier(awsCfg, cfg.reportS3URI, runTime)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, s3Notifier)
	}

	return notifiers, nil
}

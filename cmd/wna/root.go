package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joskode/wna/pkg/config"
	"github.com/joskode/wna/pkg/httpclient"
	"github.com/joskode/wna/pkg/index"
	"github.com/joskode/wna/pkg/logging"
	"github.com/joskode/wna/pkg/sources"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wna",
	Short: "Archive serialized web fiction into portable EPUB bundles",
	Long: "wna discovers chapters from a webnovel's landing page, downloads and\n" +
		"cleans them, and assembles self-contained EPUB volumes, keeping an\n" +
		"incremental on-disk archive so later runs only fetch what changed.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wna_config.ini", "path to the INI configuration file")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(cloudBackupCmd)
	rootCmd.AddCommand(generateReportCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(restoreCmd)
}

// Execute runs the root command, exiting the process with a non-zero
// status on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime bundles the collaborators every subcommand needs, resolved
// once per invocation from the config file.
type runtime struct {
	workspace string
	cfg       *config.Config
	log       *logrus.Entry
	idx       *index.Index
	dispatch  *sources.Dispatch
	http      *httpclient.Client
}

func loadRuntime() (*runtime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(configPath, cwd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkspacePath, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", cfg.WorkspacePath, err)
	}

	logPath := filepath.Join(cfg.WorkspacePath, "logs", "archiver.log")
	logger, err := logging.New(logPath, logrus.InfoLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	idx, err := index.Load(filepath.Join(cfg.WorkspacePath, "index.json"))
	if err != nil {
		return nil, fmt.Errorf("load story index: %w", err)
	}

	return &runtime{
		workspace: cfg.WorkspacePath,
		cfg:       cfg,
		log:       logging.ForComponent(logger, "cli"),
		idx:       idx,
		dispatch:  sources.NewDispatch(2 * time.Second),
		http:      httpclient.New(2 * time.Second),
	}, nil
}

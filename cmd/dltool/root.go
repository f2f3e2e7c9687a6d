package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/datallboy/dltool/internal/app"
	"github.com/datallboy/dltool/internal/infra/config"
	"github.com/datallboy/dltool/internal/infra/logger"
)

const debugLogFile = "debug.log"

type rootOptions struct {
	configPath string
	debug      bool

	input         string
	chooseCatalog bool
	chooseSystem  bool
	listOnly      bool
	filter        string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dltool -i <dat-file> -o <output-dir>",
		Short: "Download the ROMs of a DAT file from Myrient",
		Long: `Tool to automatically download ROMs of a DAT-file from Myrient.

Generate a DAT-file with the tool of your choice to include ROMs that you
want from a No-Intro/Redump/etc catalog, then use this tool to download
the matching files from Myrient.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return withCode(ExitInvalidArgs, err)
	})

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Input DAT-file containing wanted ROMs (required)")
	f.StringP("out", "o", "", "Output path for ROM files to be downloaded (required)")
	f.BoolVarP(&opts.chooseCatalog, "catalog", "c", false, "Choose catalog manually, even if automatically found")
	f.BoolVarP(&opts.chooseSystem, "system", "s", false, "Choose system collection manually, even if automatically found")
	f.BoolVarP(&opts.listOnly, "list", "l", false, "List only ROMs that are not found in server (if any)")
	f.IntP("task-count", "t", runtime.NumCPU(), "Number of simultaneous tasks")
	f.String("chunk-size", "1MiB", "Chunk size for reads and writes, e.g. 65536 or 64KiB")
	f.StringVarP(&opts.filter, "filter", "f", "", "Filter ROMs to download")
	f.String("rate-limit", "", "Cap total download bandwidth per second, e.g. 10MiB")
	f.Int("retries", 5, "Attempts per file before giving up")
	f.String("status-addr", "", "Serve run status as JSON on this address, e.g. 127.0.0.1:8080")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default: ./dltool.yaml)")
	pf.String("log", "warning", "Console logging level: debug, info, warning, error")
	pf.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logs to a file ("+debugLogFile+")")
	pf.String("log-file", "", "Write debug logs to this file")
	pf.String("history-db", "", "Record runs in this SQLite file or postgres:// database")

	cmd.AddCommand(newHistoryCmd(opts))

	return cmd
}

// setup loads configuration and builds the application context for a command.
func setup(cmd *cobra.Command, opts *rootOptions) (*app.Context, error) {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, withCode(ExitInvalidArgs, err)
	}

	if opts.debug && cfg.Log.Path == "" {
		cfg.Log.Path = debugLogFile
	}

	log, err := logger.New(logger.ParseLevel(cfg.Log.Level), cmd.ErrOrStderr(), cfg.Log.Path)
	if err != nil {
		return nil, withCode(ExitGeneralError, fmt.Errorf("open log file: %w", err))
	}

	return app.NewContext(cfg, log), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

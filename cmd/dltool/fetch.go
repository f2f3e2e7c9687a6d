package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datallboy/dltool/internal/api"
	"github.com/datallboy/dltool/internal/app"
	"github.com/datallboy/dltool/internal/catalog"
	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/engine"
	"github.com/datallboy/dltool/internal/manifest"
	"github.com/datallboy/dltool/internal/match"
	"github.com/datallboy/dltool/internal/progress"
	"github.com/datallboy/dltool/internal/report"
	"github.com/datallboy/dltool/internal/selector"
	"github.com/datallboy/dltool/internal/transport"
)

func runFetch(cmd *cobra.Command, opts *rootOptions) error {
	if opts.input == "" {
		return withCode(ExitInvalidArgs, errors.New(`required flag "input" not set`))
	}
	if !isFile(opts.input) {
		return withCode(ExitInvalidArgs, fmt.Errorf("invalid input DAT-file: %s", opts.input))
	}

	appCtx, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	log := appCtx.Logger

	if cfg.Download.OutDir == "" {
		return withCode(ExitInvalidArgs, errors.New(`required flag "out" not set`))
	}
	outDir := filepath.Clean(cfg.Download.OutDir)
	if !isDir(outDir) {
		return withCode(ExitInvalidArgs, fmt.Errorf("invalid output path: %s", outDir))
	}

	m, err := manifest.NewParser().ParseFile(opts.input)
	if err != nil {
		return withCode(ExitInvalidArgs, err)
	}
	log.Info("Processing %s...", m.Label)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := transport.NewClient(transport.Options{
		Timeout:     cfg.HTTP.Timeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
		UserAgent:   cfg.HTTP.UserAgent,
		RateLimit:   cfg.Download.RateLimitBytes,
	})

	available, err := browse(ctx, cmd, opts, catalog.NewClient(cfg.Catalog.BaseURL, tr), m)
	if err != nil {
		if ctx.Err() != nil {
			return withCode(ExitCancelled, err)
		}
		return err
	}

	wanted := match.Filter(m.Wanted, opts.filter)
	matched, missing := match.Reconcile(wanted, available)

	out := report.Printer{W: cmd.OutOrStdout()}
	sum := report.New(m.Label, len(wanted), matched, missing)
	sum.LogCounts(out)

	if opts.listOnly {
		sum.LogMissing(out)
		return nil
	}

	if err := appCtx.OpenStore(ctx); err != nil {
		log.Warn("History disabled: %v", err)
	}

	reporter := progress.NewReporter(progress.Options{
		TotalItems: len(matched),
		Output:     cmd.ErrOrStderr(),
	})
	appCtx.Progress = reporter

	if cfg.Status.Addr != "" {
		srv := api.NewServer(appCtx, cfg.Status.Addr)
		if err := srv.Start(); err != nil {
			log.Warn("Status server not started: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	events := make(chan domain.ProgressEvent, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reporter.Run(events)
	}()

	eng := engine.New(engine.Options{
		OutDir:      outDir,
		Concurrency: cfg.Download.Concurrency,
		ChunkSize:   cfg.Download.ChunkBytes,
		Retry: engine.RetryPolicy{
			Attempts: cfg.Retry.Attempts,
			MinDelay: cfg.Retry.MinDelay,
			MaxDelay: cfg.Retry.MaxDelay,
		},
	}, tr, engine.OSFileSystem{}, log).WithProgress(events)

	outcomes, runErr := eng.Run(ctx, matched)
	close(events)
	<-done

	cancelled := errors.Is(runErr, context.Canceled)
	sum.Finish(outcomes, cancelled)
	sum.Log(out)

	saveRun(appCtx, sum)

	switch {
	case errors.Is(runErr, domain.ErrEnvironment):
		return withCode(ExitEnvironment, runErr)
	case cancelled:
		return withCode(ExitCancelled, runErr)
	case runErr != nil:
		return runErr
	case len(sum.NotDownloaded()) > 0:
		return withCode(ExitDownloadsFailed, fmt.Errorf("%d ROMs failed to download", len(sum.NotDownloaded())))
	}
	return nil
}

// browse resolves the catalog and collection for m, asking the user when
// the choice is not obvious, and returns what the collection offers.
func browse(ctx context.Context, cmd *cobra.Command, opts *rootOptions, cat *catalog.Client, m *domain.Manifest) (map[string]domain.AvailableItem, error) {
	prompt := selector.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	defer prompt.Close()

	catalogs, err := cat.List(ctx, "")
	if err != nil {
		return nil, withCode(ExitListingFailed, fmt.Errorf("fetch catalog list: %w", err))
	}

	chosen, found := catalog.FindCatalog(catalogs, m.Catalog)
	if !found || opts.chooseCatalog {
		chosen, err = choose(ctx, prompt, "Catalog for DAT not automatically found, please select from the following:", catalogs)
		if err != nil {
			return nil, err
		}
	}

	collections, err := cat.List(ctx, chosen.Href)
	if err != nil {
		return nil, withCode(ExitListingFailed, fmt.Errorf("fetch collections of %s: %w", chosen.Title, err))
	}

	candidates := catalog.FindCollections(collections, m.System)
	var collection catalog.Entry
	switch {
	case len(candidates) == 1 && !opts.chooseSystem:
		collection = candidates[0]
	case len(candidates) > 1 && !opts.chooseSystem:
		collection, err = choose(ctx, prompt, "Collection for DAT not automatically found, please select from the following:", candidates)
	default:
		collection, err = choose(ctx, prompt, "Collection for DAT not automatically found, please select from the following:", collections)
	}
	if err != nil {
		return nil, err
	}

	available, err := cat.Collection(ctx, chosen.Href, collection.Href)
	if err != nil {
		return nil, withCode(ExitListingFailed, fmt.Errorf("fetch collection %s: %w", collection.Title, err))
	}
	return available, nil
}

func choose(ctx context.Context, prompt *selector.Prompter, title string, entries []catalog.Entry) (catalog.Entry, error) {
	idx, err := prompt.Select(ctx, title, catalog.Titles(entries))
	if err != nil {
		switch {
		case errors.Is(err, selector.ErrNoOptions):
			return catalog.Entry{}, withCode(ExitListingFailed, err)
		case ctx.Err() != nil:
			return catalog.Entry{}, withCode(ExitCancelled, err)
		}
		return catalog.Entry{}, withCode(ExitInvalidArgs, err)
	}
	return entries[idx], nil
}

// saveRun records the run when history is enabled. It runs after
// cancellation too, so it does not use the run context.
func saveRun(appCtx *app.Context, sum *report.Summary) {
	if appCtx.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := appCtx.Store.SaveRun(ctx, sum); err != nil {
		appCtx.Logger.Warn("Could not record run %s: %v", sum.RunID, err)
		return
	}
	appCtx.Logger.Debug("Recorded run %s", sum.RunID)
}

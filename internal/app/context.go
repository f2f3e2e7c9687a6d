package app

import (
	"context"

	"github.com/datallboy/dltool/internal/infra/config"
	"github.com/datallboy/dltool/internal/infra/logger"
	"github.com/datallboy/dltool/internal/progress"
	"github.com/datallboy/dltool/internal/report"
	"github.com/datallboy/dltool/internal/store"
)

type HistoryStore interface {
	// This allows the CLI and API to use history without caring about the database
	SaveRun(ctx context.Context, sum *report.Summary) error
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	GetRun(ctx context.Context, id string) (*store.Run, error)
	Outcomes(ctx context.Context, runID string) ([]store.Outcome, error)
	Missing(ctx context.Context, runID string) ([]string, error)
	Close() error
}

type ProgressSource interface {
	Snapshot() progress.Snapshot
}

// Context holds the configuration and shared resources of one dltool process.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// Store is nil when history is disabled
	Store HistoryStore
	// Progress is nil until a download run starts
	Progress ProgressSource
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}

// OpenStore connects the history store when one is configured.
func (c *Context) OpenStore(ctx context.Context) error {
	if c.Config.Store.DSN == "" {
		return nil
	}

	s, err := store.Open(ctx, c.Config.Store.DSN)
	if err != nil {
		return err
	}
	c.Store = s
	return nil
}

func (c *Context) Close() error {
	var err error
	if c.Store != nil {
		err = c.Store.Close()
	}
	if cerr := c.Logger.Close(); err == nil {
		err = cerr
	}
	return err
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inEmptyDir keeps Load from picking up a dltool.yaml lying around.
func inEmptyDir(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("out", "o", "", "")
	fs.IntP("task-count", "t", runtime.NumCPU(), "")
	fs.String("chunk-size", "1MiB", "")
	fs.String("rate-limit", "", "")
	fs.Int("retries", 5, "")
	fs.String("log", "warning", "")
	fs.String("history-db", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, runtime.NumCPU(), cfg.Download.Concurrency)
	assert.Equal(t, 1<<20, cfg.Download.ChunkBytes)
	assert.Zero(t, cfg.Download.RateLimitBytes)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, time.Second, cfg.Retry.MinDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "https://myrient.erista.me/files/", cfg.Catalog.BaseURL)
	assert.Equal(t, "warning", cfg.Log.Level)
	assert.Empty(t, cfg.Store.DSN)
	assert.Empty(t, cfg.Status.Addr)
}

func TestLoadFile(t *testing.T) {
	inEmptyDir(t)

	path := filepath.Join(t.TempDir(), "dltool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
download:
  out_dir: /data/roms
  concurrency: 3
  chunk_size: 256KiB
  rate_limit: 2MB
retry:
  attempts: 7
  max_delay: 20s
http:
  idle_timeout: 1m
store:
  dsn: postgres://dltool@localhost/history
`), 0644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/roms", cfg.Download.OutDir)
	assert.Equal(t, 3, cfg.Download.Concurrency)
	assert.Equal(t, 256*1024, cfg.Download.ChunkBytes)
	assert.Equal(t, int64(2_000_000), cfg.Download.RateLimitBytes)
	assert.Equal(t, 7, cfg.Retry.Attempts)
	assert.Equal(t, 20*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, time.Minute, cfg.HTTP.IdleTimeout)
	assert.Equal(t, "postgres://dltool@localhost/history", cfg.Store.DSN)
}

func TestLoadDiscoversFileInWorkingDir(t *testing.T) {
	inEmptyDir(t)
	require.NoError(t, os.WriteFile("dltool.yaml", []byte("retry:\n  attempts: 2\n"), 0644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Retry.Attempts)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	inEmptyDir(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvAndFlagPrecedence(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("DLTOOL_RETRY_ATTEMPTS", "3")
	t.Setenv("DLTOOL_DOWNLOAD_CONCURRENCY", "6")
	t.Setenv("DLTOOL_LOG_LEVEL", "debug")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"-t", "2", "-o", "/tmp/roms"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retry.Attempts, "env beats default")
	assert.Equal(t, 2, cfg.Download.Concurrency, "flag beats env")
	assert.Equal(t, "debug", cfg.Log.Level, "unset flag does not hide env")
	assert.Equal(t, "/tmp/roms", cfg.Download.OutDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero concurrency", map[string]string{"DLTOOL_DOWNLOAD_CONCURRENCY": "0"}},
		{"bad chunk size", map[string]string{"DLTOOL_DOWNLOAD_CHUNK_SIZE": "lots"}},
		{"huge chunk size", map[string]string{"DLTOOL_DOWNLOAD_CHUNK_SIZE": "1GiB"}},
		{"bad rate limit", map[string]string{"DLTOOL_DOWNLOAD_RATE_LIMIT": "fast"}},
		{"zero attempts", map[string]string{"DLTOOL_RETRY_ATTEMPTS": "0"}},
		{"inverted delays", map[string]string{"DLTOOL_RETRY_MIN_DELAY": "10s", "DLTOOL_RETRY_MAX_DELAY": "1s"}},
		{"bad log level", map[string]string{"DLTOOL_LOG_LEVEL": "trace"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inEmptyDir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", nil)
			assert.Error(t, err)
		})
	}
}

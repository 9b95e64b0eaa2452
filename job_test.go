package entitymine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/entitymine/config"
	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture holds the input files of a small end-to-end job.
type fixture struct {
	dir       string
	aliases   string
	redirects string
	phrases   string
	index     string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newFixture builds an index where "barack obama" appears in 25 documents:
// 20 link the article with the exact phrase, 2 link a redirect with another
// label and 3 have no links.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:       dir,
		aliases:   filepath.Join(dir, "aliases.tsv"),
		redirects: filepath.Join(dir, "redirects.tsv.gz"),
		phrases:   filepath.Join(dir, "phrases.txt"),
		index:     filepath.Join(dir, "index"),
	}

	writeFile(t, f.aliases, "WikiDataID\tenwiki\n"+
		"Q76\tBarack Obama\n"+
		"Q1\tUniverse\n")

	// redirects are gzip compressed to exercise transparent decompression
	rf, err := os.Create(f.redirects)
	require.NoError(t, err)
	zw := gzip.NewWriter(rf)
	_, err = io.WriteString(zw, "enwiki:Obama\tenwiki:President Obama\n"+
		"enwiki:President Obama\tenwiki:Barack Obama\n")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, rf.Close())

	writeFile(t, f.phrases, "barack obama\ncategory barack obama\nrare phrase\n")

	var docs strings.Builder
	for i := range 20 {
		fmt.Fprintf(&docs, "enwiki:Speech %d\tPresident Barack Obama spoke today\tenwiki:Barack Obama\tBarack Obama\n", i)
	}
	for i := range 2 {
		fmt.Fprintf(&docs, "enwiki:Profile %d\tBarack Obama was born in Hawaii\tenwiki:Obama\tObama\n", i)
	}
	for i := range 3 {
		fmt.Fprintf(&docs, "enwiki:Mention %d\tA quote from Barack Obama\n", i)
	}
	fmt.Fprintf(&docs, "enwiki:Other\tObama Barack reversed\tenwiki:Universe\tuniverse\n")
	input := filepath.Join(dir, "docs.tsv")
	writeFile(t, input, docs.String())

	added, err := BuildIndex(context.Background(), input, f.index, testLogger())
	require.NoError(t, err)
	require.Equal(t, 26, added)
	return f
}

func (f *fixture) config(opts ...config.ConfigOption) *config.Config {
	base := []config.ConfigOption{
		config.WithAliases(f.aliases),
		config.WithRedirects(f.redirects),
		config.WithPhrases(f.phrases),
		config.WithIndex(f.index),
		config.WithReport(filepath.Join(f.dir, "report.tsv")),
		config.WithParallelism(2),
	}
	return config.NewConfig(append(base, opts...)...)
}

func TestNewJob(t *testing.T) {
	t.Run("requires config", func(t *testing.T) {
		_, err := NewJob(nil)
		assert.ErrorIs(t, err, ErrConfigRequired)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewJob(config.NewConfig())
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("rejects zero parallelism", func(t *testing.T) {
		cfg := config.NewConfig(
			config.WithAliases("a"), config.WithRedirects("r"), config.WithIndex("i"),
			config.WithParallelism(0))
		_, err := NewJob(cfg)
		assert.ErrorIs(t, err, core.ErrInvalidParallelism)
	})
}

func TestResolveAliases(t *testing.T) {
	f := newFixture(t)

	dm, stats, err := ResolveAliases(f.aliases, f.redirects, testLogger())
	require.NoError(t, err)

	assert.Equal(t, core.CanonicalID("Q76:Barack Obama"), dm["enwiki:Obama"])
	assert.Equal(t, core.CanonicalID("Q76:Barack Obama"), dm["enwiki:President Obama"])
	assert.Equal(t, 2, stats.Redirects)
	assert.Equal(t, 2, stats.Resolved)
}

func TestResolveAliases_MissingFile(t *testing.T) {
	_, _, err := ResolveAliases(filepath.Join(t.TempDir(), "missing.tsv"), "x", testLogger())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJob_Run(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()

	job, err := NewJob(cfg, WithLogger(testLogger()))
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	report, err := os.ReadFile(cfg.Report)
	require.NoError(t, err)
	assert.Equal(t, "barack obama\t25\t22\tQ76:Barack Obama:22:20:100%\n", string(report))
}

func TestJob_Run_CompressedReport(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(config.WithReport(filepath.Join(f.dir, "report.tsv.gz")))

	job, err := NewJob(cfg, WithLogger(testLogger()))
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	rf, err := os.Open(cfg.Report)
	require.NoError(t, err)
	defer rf.Close()
	zr, err := gzip.NewReader(rf)
	require.NoError(t, err)
	report, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "barack obama\t25\t22\tQ76:Barack Obama:22:20:100%\n", string(report))
}

func TestJob_Run_MinimumMentions(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(config.WithMinimumMentions(26))

	job, err := NewJob(cfg, WithLogger(testLogger()))
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	report, err := os.ReadFile(cfg.Report)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestJob_Run_MissingIndex(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(config.WithIndex(filepath.Join(f.dir, "no-index")))

	job, err := NewJob(cfg, WithLogger(testLogger()))
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

// countingMonitor records how many lines a run reported.
type countingMonitor struct {
	mu      sync.Mutex
	written int
	summary pipeline.Summary
}

func (m *countingMonitor) Start(_ string, _ int)                  {}
func (m *countingMonitor) Enqueued(_ string, _ int)               {}
func (m *countingMonitor) Backpressure(_ string)                  {}
func (m *countingMonitor) Scored(_ core.Outcome, _ time.Duration) {}
func (m *countingMonitor) WorkerFailed(_ error)                   {}

func (m *countingMonitor) Written(_ *core.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written++
}

func (m *countingMonitor) Finish(summary pipeline.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = summary
}

func TestJob_Run_MonitorWithMetrics(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(config.WithMetricsAddr("127.0.0.1:0"))
	monitor := &countingMonitor{}

	job, err := NewJob(cfg, WithLogger(testLogger()), WithMonitor(monitor))
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, monitor.written)
	assert.Equal(t, 3, monitor.summary.Read)
	assert.Equal(t, 1, monitor.summary.Written)
}

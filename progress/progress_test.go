package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTracker_ReportsEveryN(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(newTestLogger(&buf), "closure", 100, 10, time.Hour)
	tracker.Start()

	for i := 0; i < 25; i++ {
		tracker.Increment(1)
	}

	// First call, then calls 11 and 21.
	assert.Equal(t, 3, strings.Count(buf.String(), "msg=progress"))
	assert.Equal(t, 25, tracker.Current())
}

func TestTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(newTestLogger(&buf), "closure", 10, 1, time.Hour)

	tracker.Increment(5)
	tracker.Finish()

	assert.Zero(t, tracker.Current())
	assert.Zero(t, tracker.Elapsed())
	assert.Empty(t, buf.String())
}

func TestTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(newTestLogger(&buf), "closure", 10, 1, time.Hour)
	tracker.Start()

	tracker.Increment(50)
	assert.Equal(t, 10, tracker.Current())
}

func TestTracker_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(newTestLogger(&buf), "scoring", 0, 1, time.Hour)
	tracker.Start()

	tracker.Increment(50)
	tracker.Finish()

	assert.Equal(t, 50, tracker.Current())
	assert.NotContains(t, buf.String(), "percent")
	assert.Contains(t, buf.String(), "msg=finished")
}

func TestTracker_ConcurrentIncrements(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(newTestLogger(&buf), "scoring", 0, 1000, time.Hour)
	tracker.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Increment(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, tracker.Current())
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

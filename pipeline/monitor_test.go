package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/entitymine/core"
)

func TestNewMultiMonitor(t *testing.T) {
	t.Run("no monitors", func(t *testing.T) {
		assert.IsType(t, &noopMonitor{}, NewMultiMonitor(nil, nil))
	})

	t.Run("single monitor returned as is", func(t *testing.T) {
		m := newRecordingMonitor()
		assert.Same(t, m, NewMultiMonitor(nil, m))
	})

	t.Run("forwards every hook", func(t *testing.T) {
		a, b := newRecordingMonitor(), newRecordingMonitor()
		mm := NewMultiMonitor(a, nil, b)

		mm.Start("run-1", 2)
		mm.Enqueued(workQueue, 1)
		mm.Backpressure(orderQueue)
		mm.Scored(core.OutcomeMatched, time.Millisecond)
		mm.WorkerFailed(errors.New("boom"))
		mm.Written(core.NewCandidate("x"))
		mm.Finish(Summary{RunID: "run-1", Written: 1})

		for _, m := range []*recordingMonitor{a, b} {
			assert.Equal(t, "run-1", m.runID)
			assert.Equal(t, 1, m.backpressure)
			assert.Equal(t, 1, m.outcomes[core.OutcomeMatched])
			assert.Equal(t, 1, m.failures)
			assert.Equal(t, 1, m.written)
			assert.Equal(t, 1, m.summary.Written)
		}
	})
}

func TestRun_MultiMonitorSeesWholeRun(t *testing.T) {
	in, _ := phrases(25)
	a, b := newRecordingMonitor(), newRecordingMonitor()
	p := newTestPipeline(t, &testScorer{}, WithParallelism(2), WithMonitor(NewMultiMonitor(a, b)))

	var out bytes.Buffer
	require.NoError(t, p.Run(context.Background(), strings.NewReader(in), &out))

	assert.Equal(t, a.runID, b.runID)
	assert.Equal(t, 25, a.written)
	assert.Equal(t, 25, b.written)
	assert.Equal(t, a.summary, b.summary)
}

package aliases

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/entitymine/core"
	"github.com/stretchr/testify/assert"
)

func captureLogger(buf *bytes.Buffer) ResolveOption {
	return WithResolveLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestResolve_SingleHop(t *testing.T) {
	dm := DataMap{"X": "Q1"}
	rm := RedirectMap{"Y": "X"}

	stats := Resolve(dm, rm)

	assert.Equal(t, core.CanonicalID("Q1"), dm["Y"])
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, RedirectMap{"Y": "X"}, rm, "redirects are read-only")
}

func TestResolve_Chain(t *testing.T) {
	dm := DataMap{"c": "X"}
	rm := RedirectMap{"a": "b", "b": "c"}

	stats := Resolve(dm, rm)

	assert.Equal(t, core.CanonicalID("X"), dm["a"])
	assert.Equal(t, core.CanonicalID("X"), dm["b"])
	assert.Equal(t, 2, stats.Resolved)
	assert.Zero(t, stats.Cycles)
}

func TestResolve_LongChainMatchesManualWalk(t *testing.T) {
	dm := DataMap{"n0": "Q42"}
	rm := RedirectMap{}
	for i := 1; i <= 50; i++ {
		rm[fmt.Sprintf("n%d", i)] = fmt.Sprintf("n%d", i-1)
	}

	Resolve(dm, rm)

	for i := 1; i <= 50; i++ {
		key := fmt.Sprintf("n%d", i)
		hop := key
		for hop != "n0" {
			hop = rm[hop]
		}
		assert.Equal(t, dm[hop], dm[key], key)
	}
}

func TestResolve_Cycle(t *testing.T) {
	var buf bytes.Buffer
	dm := DataMap{"other": "Q9"}
	rm := RedirectMap{"a": "b", "b": "a"}

	stats := Resolve(dm, rm, captureLogger(&buf))

	_, hasA := dm["a"]
	_, hasB := dm["b"]
	assert.False(t, hasA)
	assert.False(t, hasB)
	assert.Equal(t, 2, stats.Cycles)
	assert.Contains(t, buf.String(), ErrCycleDetected.Error())
	assert.Len(t, dm, 1)
}

func TestResolve_SelfRedirect(t *testing.T) {
	var buf bytes.Buffer
	dm := DataMap{}
	rm := RedirectMap{"a": "a"}

	stats := Resolve(dm, rm, captureLogger(&buf))

	assert.Empty(t, dm)
	assert.Equal(t, 1, stats.Cycles)
	assert.Contains(t, buf.String(), "source=a")
}

func TestResolve_CycleBehindChain(t *testing.T) {
	dm := DataMap{}
	rm := RedirectMap{"s": "b", "b": "c", "c": "b"}

	stats := Resolve(dm, rm)

	assert.Empty(t, dm)
	assert.Equal(t, 3, stats.Cycles)
}

func TestResolve_DeadEndLeftUnresolved(t *testing.T) {
	var buf bytes.Buffer
	dm := DataMap{}
	rm := RedirectMap{"a": "b", "b": "nowhere"}

	stats := Resolve(dm, rm, captureLogger(&buf))

	assert.Empty(t, dm)
	assert.Equal(t, 2, stats.Unresolved)
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestResolve_AnomalousSourcePropagates(t *testing.T) {
	var buf bytes.Buffer
	dm := DataMap{"src": "Q1"}
	rm := RedirectMap{"src": "t1", "t1": "t2"}

	stats := Resolve(dm, rm, captureLogger(&buf))

	assert.Equal(t, core.CanonicalID("Q1"), dm["t1"])
	assert.Equal(t, core.CanonicalID("Q1"), dm["t2"])
	assert.Equal(t, core.CanonicalID("Q1"), dm["src"])
	assert.GreaterOrEqual(t, stats.Anomalous, 1)
	assert.Contains(t, buf.String(), ErrAnomalousRedirect.Error())
}

func TestResolve_AnomalousStopsAtConvergedHop(t *testing.T) {
	dm := DataMap{"src": "Q1", "t1": "Q1", "t2": "Q2"}
	rm := RedirectMap{"src": "t1", "t1": "t2"}

	// t1 already holds Q1, so nothing past it is touched by src; t1 itself
	// is mapped and therefore propagates Q1 onwards when its own pair runs.
	Resolve(dm, rm)

	assert.Equal(t, core.CanonicalID("Q1"), dm["t1"])
	assert.Equal(t, core.CanonicalID("Q1"), dm["t2"])
}

func TestResolve_AnomalousCycleTerminates(t *testing.T) {
	dm := DataMap{"a": "Q1"}
	rm := RedirectMap{"a": "b", "b": "a"}

	Resolve(dm, rm)

	assert.Equal(t, core.CanonicalID("Q1"), dm["a"])
	assert.Equal(t, core.CanonicalID("Q1"), dm["b"])
}

func TestResolve_ProgressLogged(t *testing.T) {
	var buf bytes.Buffer
	dm := DataMap{"x": "Q1"}
	rm := RedirectMap{}
	for i := 0; i < 10; i++ {
		rm[fmt.Sprintf("r%d", i)] = "x"
	}

	stats := Resolve(dm, rm, captureLogger(&buf), WithReportEvery(5))

	assert.Equal(t, 10, stats.Resolved)
	assert.GreaterOrEqual(t, strings.Count(buf.String(), "msg=progress"), 2)
	assert.Contains(t, buf.String(), "computed redirect closure")
}

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveRecords(120)
	r.ObserveRecords(30)
	r.ObserveGraph(40, 150, 1453684323)
	r.ObserveRun(nil)
	r.ObserveRun(errors.New("boom"))

	assert.Equal(t, 150.0, testutil.ToFloat64(r.recordsLoaded))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.actors))
	assert.Equal(t, 150.0, testutil.ToFloat64(r.edges))
	assert.Equal(t, 1453684323.0, testutil.ToFloat64(r.lastTransaction))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("error")))
}

func TestRecorder_ConcurrentPropagations(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			r.ObservePropagation(i, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(n), testutil.ToFloat64(r.propagations))
	assert.Equal(t, 1, testutil.CollectAndCount(r.propagationDuration))
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	t.Parallel()

	a, b := NewRecorder(), NewRecorder()
	a.ObserveRecords(5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.recordsLoaded))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveRecords(3)
	r.ObservePropagation(1, 2*time.Millisecond)

	path := filepath.Join(t.TempDir(), "trustprop.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "trustprop_records_loaded_total 3"), text)
	assert.Contains(t, text, "trustprop_propagation_duration_seconds_bucket")
}

func TestNilRecorder_NoOp(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.ObserveRecords(1)
	r.ObserveGraph(1, 1, 1)
	r.ObservePropagation(1, time.Second)
	r.ObserveRun(nil)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

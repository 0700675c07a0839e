package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

// Embedded timeseries store for service counters and gauges. A nil
// storage (InitMetrics never called, e.g. in unit tests) turns every
// operation into a no-op.
var (
	storage tstorage.Storage

	counterMu sync.Mutex
	counters  = map[string]int64{}
)

// InitMetrics opens the embedded timeseries storage under workdir.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

func insert(name string, value float64) {
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
		},
	})
	if err != nil {
		zap.S().Warnf("metrics insert %s error %s", name, err.Error())
	}
}

// SetGauge records an instantaneous value for name.
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// IncrCounter adds delta to the cumulative counter name and records the
// new total.
func IncrCounter(name string, delta int64) {
	counterMu.Lock()
	counters[name] += delta
	total := counters[name]
	counterMu.Unlock()
	insert(name, float64(total))
}

// CounterValue returns the in-process cumulative value of name.
func CounterValue(name string) int64 {
	counterMu.Lock()
	defer counterMu.Unlock()
	return counters[name]
}

// QueryRange returns the datapoints of name between start and end (unix
// seconds).
func QueryRange(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	if storage == nil {
		return nil, nil
	}
	points, err := storage.Select(name, nil, start, end)
	if err == tstorage.ErrNoDataPoints {
		return nil, nil
	}
	return points, err
}

// Close flushes and closes the underlying storage.
func Close() error {
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

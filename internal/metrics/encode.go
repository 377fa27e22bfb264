// Package metrics provides Prometheus metrics for encode runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/ffjob/internal/events"
)

var (
	encodeFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "frames",
		Help:      "Frames encoded so far",
	}, []string{"run_id"})

	encodeTotalFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "total_frames",
		Help:      "Expected frame total, -1 when unknown",
	}, []string{"run_id"})

	encodeFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "fps",
		Help:      "Current encoding FPS",
	}, []string{"run_id"})

	encodeSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "processing_speed",
		Help:      "Encoding speed multiplier relative to realtime",
	}, []string{"run_id"})

	encodeDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "dropped_frames_total",
		Help:      "Total dropped frames",
	}, []string{"run_id"})

	encodeDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "duplicate_frames_total",
		Help:      "Total duplicate frames",
	}, []string{"run_id"})

	encodeRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "running",
		Help:      "1 while the encoder process is alive",
	}, []string{"run_id"})

	encodeExitCode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffjob",
		Subsystem: "encode",
		Name:      "exit_code",
		Help:      "Exit code of the finished encoder",
	}, []string{"run_id"})

	cache   = make(map[string]*EncodeMetrics)
	cacheMu sync.RWMutex
)

// EncodeMetrics holds current metric values for a run.
type EncodeMetrics struct {
	Frames          int64
	TotalFrames     int64
	FPS             float64
	Speed           float64
	DroppedFrames   int64
	DuplicateFrames int64
	Running         bool
	Finished        bool
	ExitCode        int
}

// Attach updates the gauges from encode events on bus and returns a
// function that detaches them.
func Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.EncodeStartedEvent) { RecordStarted(e) }),
		bus.Subscribe(func(e events.FrameProgressEvent) { RecordProgress(e) }),
		bus.Subscribe(func(e events.EncodeFinishedEvent) { RecordFinished(e) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// RecordStarted marks a run as running.
func RecordStarted(e events.EncodeStartedEvent) {
	encodeRunning.WithLabelValues(e.RunID).Set(1)
	encodeTotalFrames.WithLabelValues(e.RunID).Set(float64(e.TotalFrames))
	encodeFrames.WithLabelValues(e.RunID).Set(0)
	updateCache(e.RunID, func(m *EncodeMetrics) {
		m.Running = true
		m.TotalFrames = e.TotalFrames
	})
}

// RecordProgress applies one progress block.
func RecordProgress(e events.FrameProgressEvent) {
	encodeFrames.WithLabelValues(e.RunID).Set(float64(e.Frame))
	encodeFPS.WithLabelValues(e.RunID).Set(e.FPS)
	encodeSpeed.WithLabelValues(e.RunID).Set(e.Speed)
	encodeDroppedFrames.WithLabelValues(e.RunID).Set(float64(e.DropFrames))
	encodeDuplicateFrames.WithLabelValues(e.RunID).Set(float64(e.DupFrames))
	updateCache(e.RunID, func(m *EncodeMetrics) {
		m.Frames = e.Frame
		m.FPS = e.FPS
		m.Speed = e.Speed
		m.DroppedFrames = e.DropFrames
		m.DuplicateFrames = e.DupFrames
	})
}

// RecordFinished marks a run as finished with its exit code.
func RecordFinished(e events.EncodeFinishedEvent) {
	encodeRunning.WithLabelValues(e.RunID).Set(0)
	encodeExitCode.WithLabelValues(e.RunID).Set(float64(e.ExitCode))
	encodeFrames.WithLabelValues(e.RunID).Set(float64(e.Frames))
	updateCache(e.RunID, func(m *EncodeMetrics) {
		m.Running = false
		m.Finished = true
		m.ExitCode = e.ExitCode
		m.Frames = e.Frames
	})
}

// DeleteEncodeMetrics removes all metrics for a run.
func DeleteEncodeMetrics(runID string) {
	for _, g := range []*prometheus.GaugeVec{
		encodeFrames, encodeTotalFrames, encodeFPS, encodeSpeed,
		encodeDroppedFrames, encodeDuplicateFrames, encodeRunning, encodeExitCode,
	} {
		g.DeleteLabelValues(runID)
	}

	cacheMu.Lock()
	delete(cache, runID)
	cacheMu.Unlock()
}

// GetEncodeMetrics returns current metric values for a run.
func GetEncodeMetrics(runID string) *EncodeMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if m, ok := cache[runID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

func updateCache(runID string, update func(*EncodeMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	m, ok := cache[runID]
	if !ok {
		m = &EncodeMetrics{}
		cache[runID] = m
	}
	update(m)
}

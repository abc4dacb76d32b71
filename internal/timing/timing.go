// Package timing writes build stage timings as JSON lines.
package timing

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/robert-at-pretension-io/sim-build/internal/build"
)

// EnvPath names a timings file when --timings is not given.
const EnvPath = "SIM_BUILD_TIMING_JSONL"

// Event is one line of the timings file. Offsets are relative to the
// recorder start.
type Event struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Status     string  `json:"status,omitempty"`
	Files      int     `json:"files,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// Recorder collects stage timings. A Recorder built with an empty path is
// disabled and every method is a no-op, as is a nil Recorder.
type Recorder struct {
	enabled bool
	start   time.Time
	now     func() time.Time
	mu      sync.Mutex
	events  []Event
	file    *os.File
	enc     *json.Encoder
	err     error
}

// New opens path for writing. Errors are kept and reported by Err so a
// broken timings file never stops a build.
func New(start time.Time, path string) *Recorder {
	r := &Recorder{start: start, now: time.Now}
	if path == "" {
		return r
	}
	f, err := os.Create(path)
	if err != nil {
		r.err = err
		return r
	}
	r.enabled = true
	r.file = f
	r.enc = json.NewEncoder(f)
	return r
}

// ResolvePath picks the timings file: the flag value first, then EnvPath.
func ResolvePath(flag string, lookup func(string) (string, bool)) string {
	if flag != "" {
		return flag
	}
	if lookup == nil {
		return ""
	}
	if v, ok := lookup(EnvPath); ok {
		return v
	}
	return ""
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() {
	if r == nil || r.file == nil {
		return
	}
	_ = r.file.Close()
}

// OnEvent records finished build stages. Started events carry no duration
// and are ignored.
func (r *Recorder) OnEvent(evt build.Event) {
	if evt.Status == build.StatusWorking {
		return
	}
	end := r.clock()
	r.record(string(evt.Stage), "stage", string(evt.Status), len(evt.Files), end.Add(-evt.Elapsed), evt.Elapsed)
}

// RecordTotal records the whole run from the recorder start until now.
func (r *Recorder) RecordTotal(status string) {
	if r == nil {
		return
	}
	r.record("total", "stage", status, 0, r.start, r.clock().Sub(r.start))
}

func (r *Recorder) clock() time.Time {
	if r == nil || r.now == nil {
		return time.Now()
	}
	return r.now()
}

func (r *Recorder) record(phase, kind, status string, files int, start time.Time, duration time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	startMS := durationToMS(start.Sub(r.start))
	durationMS := durationToMS(duration)
	event := Event{
		Phase:      phase,
		Kind:       kind,
		Status:     status,
		Files:      files,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	if r.enc != nil {
		_ = r.enc.Encode(event)
	}
	r.mu.Unlock()
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}

// Tee fans one event out to several sinks.
func Tee(sinks ...build.ProgressSink) build.ProgressSink {
	return build.SinkFunc(func(evt build.Event) {
		for _, s := range sinks {
			if s != nil {
				s.OnEvent(evt)
			}
		}
	})
}

package build

import "time"

// Stage describes one step of an artifact build.
type Stage string

const (
	// StageTestbench renders the testbench wrapper.
	StageTestbench Stage = "testbench"
	// StageExtension renders the VPI extension bundle.
	StageExtension Stage = "extension"
	// StageExport writes the target definition.
	StageExport Stage = "export"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusWorking indicates the stage has started.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusError indicates the stage failed and the build stopped.
	StatusError Status = "error"
)

// Event reports progress for one stage.
type Event struct {
	Stage   Stage
	Status  Status
	Files   []string
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) {
	if f == nil {
		return
	}
	f(evt)
}

// Artifacts lists what a build wrote.
type Artifacts struct {
	Testbench        string
	Extension        []string
	TargetDefinition string
}

// All returns every written path in build order.
func (a Artifacts) All() []string {
	out := make([]string, 0, len(a.Extension)+2)
	if a.Testbench != "" {
		out = append(out, a.Testbench)
	}
	out = append(out, a.Extension...)
	if a.TargetDefinition != "" {
		out = append(out, a.TargetDefinition)
	}
	return out
}

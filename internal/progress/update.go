package progress

import "time"

// Update is one progress sample reported by a stage.
type Update struct {
	// Label is a human-readable description of the current activity.
	Label string
	// Progress is the completed fraction of the current item, in [0,1].
	Progress float64
	// Step is the zero-based position of the current item within the stage.
	Step int
	ETA  time.Duration
}

// Sink receives a stage's progress in emission order.
type Sink interface {
	Progress(Update)
	// Done is called once after the stage's last item finished.
	Done()
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Progress(Update) {}
func (discard) Done()           {}

// Recorder is a Sink that keeps every update. It is safe for use by one
// producer and is mostly useful in tests.
type Recorder struct {
	Updates []Update
	Dones   int
}

func (r *Recorder) Progress(u Update) { r.Updates = append(r.Updates, u) }
func (r *Recorder) Done()             { r.Dones++ }

package pipeline

import (
	"log/slog"

	"ripline/internal/logging"
	"ripline/internal/progress"
	"ripline/internal/services"
)

// Conn is the job's duplex client connection. *websocket.Conn satisfies it.
// WriteJSON is only ever called from one goroutine and ReadMessage from one
// other.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
}

// Event is one message sent to the client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ProgressPayload accompanies <stage>_progress events. ETA is in seconds.
type ProgressPayload struct {
	Label    string  `json:"label"`
	Progress float64 `json:"progress"`
	Step     int     `json:"step"`
	ETA      float64 `json:"eta"`
}

// ErrorPayload accompanies <stage>_error events.
type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type stage struct {
	name     string
	progress string
	done     string
}

// Event type names. The upload stage's progress and done names differ on
// purpose; clients depend on both.
var (
	stageRipping      = stage{name: "ripping", progress: "ripping_progress", done: "ripping_done"}
	stageEncoding     = stage{name: "encoding", progress: "encoding_progress", done: "encoding_done"}
	stageUploading    = stage{name: "uploading", progress: "upload_progress", done: "uploading_done"}
	stageRegistration = stage{name: "registration"}
	stageJob          = stage{name: "job"}
)

func (s stage) errorType() string { return s.name + "_error" }

func errorEvent(s stage, err error) Event {
	return Event{Type: s.errorType(), Payload: ErrorPayload{Message: err.Error(), Kind: services.Kind(err)}}
}

const eventBuffer = 256

// eventWriter forwards events to the connection in send order from a single
// goroutine. After the first write failure later events are dropped so
// producers never block on a dead client.
type eventWriter struct {
	conn   Conn
	events chan Event
	done   chan struct{}
	logger *slog.Logger
}

func newEventWriter(conn Conn, logger *slog.Logger) *eventWriter {
	w := &eventWriter{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go w.loop()
	return w
}

func (w *eventWriter) loop() {
	defer close(w.done)
	failed := false
	for ev := range w.events {
		if failed {
			continue
		}
		if err := w.conn.WriteJSON(ev); err != nil {
			failed = true
			w.logger.Info("client connection lost; dropping further events", logging.Error(err))
		}
	}
}

func (w *eventWriter) send(ev Event) {
	w.events <- ev
}

// close flushes pending events and stops the writer.
func (w *eventWriter) close() {
	close(w.events)
	<-w.done
}

// stageSink turns a stage's progress updates into client events.
type stageSink struct {
	stage   stage
	events  *eventWriter
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	step    int
}

func newStageSink(s stage, events *eventWriter, logger *slog.Logger) *stageSink {
	return &stageSink{stage: s, events: events, logger: logger, sampler: logging.NewProgressSampler(10)}
}

func (s *stageSink) Progress(u progress.Update) {
	s.events.send(Event{Type: s.stage.progress, Payload: ProgressPayload{
		Label:    u.Label,
		Progress: u.Progress,
		Step:     u.Step,
		ETA:      u.ETA.Seconds(),
	}})
	if u.Step != s.step {
		s.step = u.Step
		s.sampler.Reset()
	}
	if s.sampler.ShouldLog(u.Progress*100, u.Label) {
		s.logger.Debug("stage progress",
			logging.String("label", u.Label),
			logging.Int("step", u.Step),
			logging.Float64("progress", u.Progress),
			logging.Duration("eta", u.ETA),
		)
	}
}

func (s *stageSink) Done() {
	s.events.send(Event{Type: s.stage.done})
}

package drapto

import (
	draptolib "github.com/five82/drapto"
)

// reporter forwards the progress-bearing Drapto callbacks and drops the
// summaries ripline has no use for.
type reporter struct {
	callback func(ProgressUpdate)
}

func newReporter(callback func(ProgressUpdate)) *reporter {
	return &reporter{callback: callback}
}

func (r *reporter) Hardware(draptolib.HardwareSummary) {}

func (r *reporter) Initialization(s draptolib.InitializationSummary) {
	r.callback(ProgressUpdate{Stage: "initialization", Message: s.InputFile})
}

func (r *reporter) StageProgress(s draptolib.StageProgress) {
	update := ProgressUpdate{
		Percent: float64(s.Percent),
		Stage:   s.Stage,
		Message: s.Message,
	}
	if s.ETA != nil {
		update.ETA = *s.ETA
	}
	r.callback(update)
}

func (r *reporter) CropResult(draptolib.CropSummary) {}

func (r *reporter) EncodingConfig(draptolib.EncodingConfigSummary) {}

func (r *reporter) EncodingStarted(uint64) {
	r.callback(ProgressUpdate{Stage: "encoding"})
}

func (r *reporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.callback(ProgressUpdate{
		Percent: float64(s.Percent),
		Stage:   "encoding",
		ETA:     s.ETA,
	})
}

func (r *reporter) ValidationComplete(draptolib.ValidationSummary) {}

func (r *reporter) EncodingComplete(draptolib.EncodingOutcome) {
	r.callback(ProgressUpdate{Percent: 100, Stage: "complete"})
}

func (r *reporter) Warning(message string) {
	r.callback(ProgressUpdate{Stage: "warning", Warning: message})
}

func (r *reporter) Error(draptolib.ReporterError) {}

func (r *reporter) OperationComplete(string) {}

func (r *reporter) BatchStarted(draptolib.BatchStartInfo) {}

func (r *reporter) FileProgress(draptolib.FileProgressContext) {}

func (r *reporter) BatchComplete(draptolib.BatchSummary) {}

var _ draptolib.Reporter = (*reporter)(nil)

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"ripline/internal/api"
	"ripline/internal/encoding"
)

const defaultWidth = 80

var stageLabels = map[string]string{
	"ripping":   "Ripping",
	"encoding":  "Encoding",
	"upload":    "Uploading",
	"uploading": "Uploading",
}

// progressRenderer prints job events. On a terminal it redraws one line per
// stage; otherwise it prints a line per step and per 10% bucket.
type progressRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	tty   bool
	width int

	stage  string
	step   int
	bucket int
	open   bool
}

func newProgressRenderer(out io.Writer) *progressRenderer {
	r := &progressRenderer{out: out, width: defaultWidth, step: -1, bucket: -1}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

func (r *progressRenderer) handle(ev api.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stage, kind := splitEventType(ev.Type)
	switch kind {
	case "progress":
		p, ok := ev.Progress()
		if !ok {
			return
		}
		r.progress(stage, p.Label, p.Step, p.Progress, time.Duration(p.ETA*float64(time.Second)))
	case "done":
		r.endLine()
		fmt.Fprintf(r.out, "%s complete\n", label(stage))
		r.stage, r.step, r.bucket = "", -1, -1
	case "error":
		failure, _ := ev.Failure()
		r.endLine()
		fmt.Fprintf(r.out, "%s failed: %s\n", label(stage), failure.Message)
	}
}

func (r *progressRenderer) progress(stage, text string, step int, fraction float64, eta time.Duration) {
	fraction = math.Max(0, math.Min(1, fraction))
	line := formatProgressLine(label(stage), text, step, fraction, eta)
	if r.tty {
		fmt.Fprintf(r.out, "\r%-*s", r.width-1, truncate(line, r.width-1))
		r.open = true
		r.stage, r.step = stage, step
		return
	}
	bucket := int(fraction * 10)
	if stage == r.stage && step == r.step && bucket == r.bucket {
		return
	}
	r.stage, r.step, r.bucket = stage, step, bucket
	fmt.Fprintln(r.out, line)
}

// cancelling notes that a cancel request was sent.
func (r *progressRenderer) cancelling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endLine()
	fmt.Fprintln(r.out, "Cancelling; waiting for the daemon to clean up...")
}

func (r *progressRenderer) finishLine() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endLine()
}

func (r *progressRenderer) endLine() {
	if r.open {
		fmt.Fprintln(r.out)
		r.open = false
	}
}

func formatProgressLine(stage, text string, step int, fraction float64, eta time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s #%d] %5.1f%%", stage, step+1, fraction*100)
	if formatted := encoding.FormatETA(eta); formatted != "" {
		b.WriteString("  ETA ")
		b.WriteString(formatted)
	}
	if text = strings.TrimSpace(text); text != "" {
		b.WriteString("  ")
		b.WriteString(text)
	}
	return b.String()
}

func splitEventType(eventType string) (string, string) {
	idx := strings.LastIndex(eventType, "_")
	if idx < 0 {
		return eventType, ""
	}
	return eventType[:idx], eventType[idx+1:]
}

func label(stage string) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return stage
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

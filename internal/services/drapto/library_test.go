package drapto

import (
	"context"
	"testing"
	"time"

	draptolib "github.com/five82/drapto"
)

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/rips/Movie_t00.mkv", "/rips/encoding/"); got != "/rips/encoding/Movie_t00.mkv" {
		t.Fatalf("OutputPath = %q", got)
	}
	if got := OutputPath("/rips/raw", "/out"); got != "/out/raw.mkv" {
		t.Fatalf("OutputPath without extension = %q", got)
	}
}

func TestEncodeValidatesArguments(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Encode(context.Background(), "", "/out", nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := lib.Encode(context.Background(), "/in.mkv", " ", nil); err == nil {
		t.Fatal("expected error for empty output directory")
	}
}

func TestReporterForwardsProgress(t *testing.T) {
	var got []ProgressUpdate
	rep := newReporter(func(u ProgressUpdate) { got = append(got, u) })

	eta := 90 * time.Second
	rep.StageProgress(draptolib.StageProgress{Stage: "analysis", Percent: 10, Message: "crop detection", ETA: &eta})
	rep.EncodingProgress(draptolib.ProgressSnapshot{Percent: 42, ETA: 5 * time.Minute})
	rep.Warning("audio downmixed")
	rep.Hardware(draptolib.HardwareSummary{})

	if len(got) != 3 {
		t.Fatalf("expected 3 forwarded updates, got %d", len(got))
	}
	if got[0].Stage != "analysis" || got[0].ETA != eta {
		t.Fatalf("unexpected stage update %+v", got[0])
	}
	if got[1].Percent != 42 || got[1].ETA != 5*time.Minute {
		t.Fatalf("unexpected encoding update %+v", got[1])
	}
	if got[2].Warning != "audio downmixed" {
		t.Fatalf("unexpected warning update %+v", got[2])
	}
}

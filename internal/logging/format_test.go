package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value slog.Value
		want  string
	}{
		{slog.StringValue("A1_t03.mkv"), "A1_t03.mkv"},
		{slog.StringValue("Disc 1"), `"Disc 1"`},
		{slog.StringValue(""), `""`},
		{slog.Float64Value(0.4567), "0.46"},
		{slog.DurationValue(83*time.Second + 400*time.Millisecond), "1m23s"},
		{slog.DurationValue(250 * time.Millisecond), "250ms"},
		{slog.AnyValue(errors.New("exit status 1")), `"exit status 1"`},
		{slog.IntValue(3), "3"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.value); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestAttrStringDoesNotQuote(t *testing.T) {
	if got := attrString(slog.StringValue("job queue")); got != "job queue" {
		t.Fatalf("attrString = %q", got)
	}
	if got := formatTimestamp(time.Time{}); got != "" {
		t.Fatalf("zero timestamp = %q", got)
	}
}

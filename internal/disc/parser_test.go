package disc

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"empty line", "", []string{""}},
		{"trailing comma", "a,", []string{"a", ""}},
		{"unterminated quote", `TINFO:0,2,0,"open, still open`, []string{"TINFO:0", "2", "0", "open, still open"}},
		{"drive record", `DRV:0,2,999,1,"BD-RE HL-DT-ST","MY_DISC","/dev/sr0"`,
			[]string{"DRV:0", "2", "999", "1", "BD-RE HL-DT-ST", "MY_DISC", "/dev/sr0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	got, err := ParseDuration("01:23:45")
	if err != nil {
		t.Fatalf("ParseDuration: %v", err)
	}
	if got != 5025 {
		t.Fatalf("ParseDuration = %d, want 5025", got)
	}

	for _, bad := range []string{"", "1:23", "01-23-45", "01:xx:45", "1:2:3:4", "-1:00:00"} {
		if _, err := ParseDuration(bad); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("ParseDuration(%q) err = %v, want ErrInvalidDuration", bad, err)
		}
	}
}

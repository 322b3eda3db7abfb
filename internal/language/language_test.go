package language

import (
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"EN", "eng"},
		{"eng", "eng"},
		{"ger", "deu"},
		{"deu", "deu"},
		{"de", "deu"},
		{"fre", "fra"},
		{"chi", "zho"},
		{"cze", "ces"},
		{"english", "eng"},
		{"GERMAN", "deu"},
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Canonical(tt.input); got != tt.expected {
				t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"eng", "en"},
		{"ger", "de"},
		{"dut", "nl"},
		{"French", "fr"},
		{"xy", "xy"},
		{"xyz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"eng", "English"},
		{"ger", "German"},
		{"deu", "German"},
		{"fre", "French"},
		{"", "Unknown"},
		{"xyz", "XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil", nil, nil},
		{"empty", []string{}, nil},
		{"dedup across forms", []string{"en", "eng", "english"}, []string{"eng"}},
		{"bibliographic codes", []string{"ger", "fre"}, []string{"deu", "fra"}},
		{"strips whitespace", []string{" eng ", " "}, []string{"eng"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeList(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("NormalizeList(%v) = %v, want %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("NormalizeList(%v)[%d] = %q, want %q", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSetContains(t *testing.T) {
	set := NewSet([]string{"eng", "de"})
	for _, code := range []string{"eng", "en", "ger", "deu"} {
		if !set.Contains(code) {
			t.Errorf("expected %q to be allowed", code)
		}
	}
	for _, code := range []string{"fra", "", "jpn"} {
		if set.Contains(code) {
			t.Errorf("expected %q to be rejected", code)
		}
	}
}

func TestValidTag(t *testing.T) {
	if !ValidTag("en-US") {
		t.Fatal("expected en-US to be valid")
	}
	if ValidTag("not a tag!") {
		t.Fatal("expected garbage to be rejected")
	}
}

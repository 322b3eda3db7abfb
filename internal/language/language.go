package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

type entry struct {
	code2   string   // ISO 639-1
	code3   string   // ISO 639-2/T
	alt3    string   // ISO 639-2/B when it differs
	display string   // Human-readable name
	words   []string // Full word forms
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"cs", "ces", "cze", "Czech", []string{"czech"}},
	{"el", "ell", "gre", "Greek", []string{"greek"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}},
	{"th", "tha", "", "Thai", []string{"thai"}},
	{"ro", "ron", "rum", "Romanian", []string{"romanian"}},
	{"sk", "slk", "slo", "Slovak", []string{"slovak"}},
	{"is", "isl", "ice", "Icelandic", []string{"icelandic"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Canonical returns the ISO 639-2/T code for any recognized code or word.
// Codes outside the built-in table are resolved through the CLDR data in
// x/text; anything still unknown is returned lowercased and trimmed.
func Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if base, err := xlanguage.ParseBase(code); err == nil {
		if iso3 := base.ISO3(); iso3 != "" {
			return iso3
		}
	}
	return code
}

// ToISO2 converts any recognized language code or word to ISO 639-1.
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList deduplicates and canonicalizes a list of language codes.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		canonical := Canonical(lang)
		if canonical == "" {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		normalized = append(normalized, canonical)
	}
	return normalized
}

// Set is a canonicalized allow-list.
type Set map[string]struct{}

// NewSet canonicalizes codes into a Set.
func NewSet(codes []string) Set {
	set := make(Set, len(codes))
	for _, code := range NormalizeList(codes) {
		set[code] = struct{}{}
	}
	return set
}

// Contains reports whether code, once canonicalized, is in the set.
func (s Set) Contains(code string) bool {
	canonical := Canonical(code)
	if canonical == "" {
		return false
	}
	_, ok := s[canonical]
	return ok
}

// ValidTag reports whether value parses as a BCP 47 tag such as "en-US".
func ValidTag(value string) bool {
	_, err := xlanguage.Parse(strings.TrimSpace(value))
	return err == nil
}

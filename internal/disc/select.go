package disc

import "ripline/internal/language"

// SelectFeatures returns a copy of d narrowed to main-feature candidates:
// titles with at least one audio stream in an allowed language whose
// duration is within 10% (inclusive) of any reference runtime. Runtimes are
// in seconds. d is not modified.
func SelectFeatures(d *Disc, runtimes []int, languages []string) *Disc {
	if d == nil {
		return nil
	}
	allowed := language.NewSet(languages)
	out := d.Clone()
	out.Titles = out.Titles[:0]
	for _, title := range d.Titles {
		if !hasAllowedAudio(title, allowed) || !matchesRuntime(title.Duration, runtimes) {
			continue
		}
		out.Titles = append(out.Titles, title.Clone())
	}
	return out
}

// RuntimesFromMinutes converts metadata runtimes to seconds, dropping
// unknown (zero) entries.
func RuntimesFromMinutes(minutes ...int) []int {
	out := make([]int, 0, len(minutes))
	for _, m := range minutes {
		if m > 0 {
			out = append(out, m*60)
		}
	}
	return out
}

func hasAllowedAudio(title Title, allowed language.Set) bool {
	for _, stream := range title.Audio {
		if allowed.Contains(stream.LangCode) {
			return true
		}
	}
	return false
}

func matchesRuntime(duration int, runtimes []int) bool {
	for _, runtime := range runtimes {
		if runtime <= 0 {
			continue
		}
		if 10*duration >= 9*runtime && 10*duration <= 11*runtime {
			return true
		}
	}
	return false
}

// Package language normalizes language codes from MakeMKV stream records,
// TMDB requests, and user-supplied allow-lists into one canonical form.
//
// MakeMKV reports ISO 639-2/B codes ("ger", "fre"); users tend to type
// ISO 639-1 codes or ISO 639-2/T codes. Canonical returns the ISO 639-2/T code
// so both sides compare equal.
package language

// Package handbrake wraps HandBrakeCLI and the preset catalogue it encodes
// with.
//
// Profiles live in a directory holding an index.json catalogue plus the
// exported preset files it references. The CLI client encodes ripped files
// into the encoding/ subdirectory of the output directory, translating
// HandBrake's --json progress blocks into progress updates.
package handbrake

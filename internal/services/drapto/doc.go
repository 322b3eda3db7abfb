// Package drapto runs the Drapto AV1 encoder in-process as an alternative to
// HandBrakeCLI.
//
// The Library client calls the drapto Go module directly and adapts its
// Reporter callbacks into ProgressUpdate values.
package drapto

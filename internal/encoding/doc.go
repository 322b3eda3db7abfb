// Package encoding picks the encoder that turns ripped MKVs into the files
// that get uploaded.
//
// HandBrakeCLI is the default engine and encodes with a preset from the
// profiles catalogue. The drapto engine ignores the profile and runs the
// in-process AV1 encoder instead. Both write into <output_dir>/encoding
// using the ripped file's base name, so later stages do not need to know
// which engine ran.
package encoding

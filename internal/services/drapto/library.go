package drapto

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	draptolib "github.com/five82/drapto"
)

// ProgressUpdate is the subset of Drapto reporter output ripline surfaces.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
	ETA     time.Duration
	Warning string
}

// Library encodes through the Drapto Go module.
type Library struct{}

// NewLibrary constructs a Library client.
func NewLibrary() *Library {
	return &Library{}
}

// OutputPath is the file Drapto writes for inputPath inside outputDir.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}

// Encode encodes inputPath into outputDir and returns the output path.
// Cancelling ctx stops the encode.
func (l *Library) Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error) {
	if inputPath == "" {
		return "", errors.New("input path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", errors.New("output directory required")
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", err
	}

	var rep draptolib.Reporter
	if progress != nil {
		rep = newReporter(progress)
	}
	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep); err != nil {
		return "", err
	}
	return OutputPath(inputPath, outputDir), nil
}

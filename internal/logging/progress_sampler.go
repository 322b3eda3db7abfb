package logging

import "strings"

// ProgressSampler suppresses repetitive per-line progress logs from the rip,
// encode, and upload stages. It emits when the label changes or the percent
// crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastLabel  string
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 5).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress update should be logged. Percent can be
// negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(percent float64, label string) bool {
	if s == nil {
		return true
	}
	label = strings.TrimSpace(label)
	emit := false
	if label != "" && label != s.lastLabel {
		s.lastLabel = label
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state, e.g. when the next title starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastLabel = ""
	s.lastBucket = -1
}

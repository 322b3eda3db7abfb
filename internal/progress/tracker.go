// Package progress derives a stable ETA from the bursty progress ticks that
// makemkvcon and the SFTP uploader produce.
//
// A Tracker keeps a five second trailing window of (time, fraction) samples,
// computes an instantaneous estimate from the window endpoints, averages the
// last five estimates, and only publishes a new value every three seconds.
package progress

import (
	"sync"
	"time"
)

const (
	sampleWindow    = 5 * time.Second
	historySize     = 5
	publishInterval = 3 * time.Second
	resetThreshold  = 0.01
)

type sample struct {
	at       time.Time
	fraction float64
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker is a windowed, smoothed ETA estimator. It is safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	now         func() time.Time
	started     time.Time
	fraction    float64
	samples     []sample
	history     []float64
	lastPublish time.Time
	eta         time.Duration
}

// New returns a Tracker whose stopwatch starts now.
func New(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.started = t.now()
	t.lastPublish = t.started
	return t
}

// Update records progress as current out of total. A non-positive total is ignored.
func (t *Tracker) Update(current, total float64) {
	if total <= 0 {
		return
	}
	fraction := current / total
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if fraction < resetThreshold {
		// New file in a multi-file job: samples from the previous file would
		// produce a negative delta.
		if t.fraction >= resetThreshold {
			t.samples = t.samples[:0]
		}
		t.started = now
	}
	t.fraction = fraction

	t.samples = append(t.samples, sample{at: now, fraction: fraction})
	cutoff := now.Add(-sampleWindow)
	drop := 0
	for drop < len(t.samples) && t.samples[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		t.samples = append(t.samples[:0], t.samples[drop:]...)
	}

	if len(t.samples) >= 2 {
		first := t.samples[0]
		last := t.samples[len(t.samples)-1]
		delta := last.fraction - first.fraction
		elapsed := last.at.Sub(first.at).Seconds()
		if delta > 0 && elapsed > 0 {
			remaining := elapsed / delta * (1 - fraction)
			t.history = append(t.history, remaining)
			if len(t.history) > historySize {
				t.history = t.history[len(t.history)-historySize:]
			}
		}
	}

	if now.Sub(t.lastPublish) > publishInterval && len(t.history) > 0 {
		var sum float64
		for _, v := range t.history {
			sum += v
		}
		t.eta = time.Duration(sum / float64(len(t.history)) * float64(time.Second))
		t.lastPublish = now
	}
}

// ETA returns the last published estimate, zero until the first publish.
func (t *Tracker) ETA() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eta
}

// Fraction returns the most recent progress fraction in [0,1].
func (t *Tracker) Fraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fraction
}

// Elapsed returns the time since the stopwatch was last started.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Sub(t.started)
}

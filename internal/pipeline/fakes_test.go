package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ripline/internal/disc"
	"ripline/internal/history"
	"ripline/internal/progress"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/servarr"
	"ripline/internal/upload"
)

var errConnClosed = errors.New("connection closed")

// fakeConn is an in-memory client connection. Written events are decoded
// into maps so tests can assert on the wire shape.
type fakeConn struct {
	mu       sync.Mutex
	written  []map[string]any
	incoming chan []byte
	closed   chan struct{}
	onWrite  func(ev map[string]any)
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 4), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.incoming:
		return 1, msg, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var ev map[string]any
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, ev)
	hook := c.onWrite
	c.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return nil
}

func (c *fakeConn) send(msg string) { c.incoming <- []byte(msg) }

func (c *fakeConn) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, ev := range c.written {
		out[i], _ = ev["type"].(string)
	}
	return out
}

func (c *fakeConn) events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.written...)
}

type fakeProber struct {
	disc *disc.Disc
	err  error
}

func (p *fakeProber) Probe(context.Context, string) (*disc.Disc, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.disc.Clone(), nil
}

// fakeRipper writes an output file per title and reports two updates each.
// When waitForCancel is set it blocks after the first update until the job
// is cancelled, mimicking a long running makemkvcon.
type fakeRipper struct {
	waitForCancel bool
	err           error
	calls         int
	sawCancel     bool
}

func (r *fakeRipper) Rip(_ context.Context, _ string, ids []int, outputDir string, sink progress.Sink, cancelled func() bool) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	for step, id := range ids {
		name := filepath.Join(outputDir, titleFile(id))
		if err := os.WriteFile(name, []byte("partial"), 0o644); err != nil {
			return err
		}
		sink.Progress(progress.Update{Label: "Saving to MKV file", Progress: 0.5, Step: step, ETA: 90 * time.Second})
		if r.waitForCancel {
			deadline := time.Now().Add(5 * time.Second)
			for !cancelled() {
				if time.Now().After(deadline) {
					return errors.New("cancel never observed")
				}
				time.Sleep(time.Millisecond)
			}
			r.sawCancel = true
			return nil
		}
		sink.Progress(progress.Update{Label: "Saving to MKV file", Progress: 1, Step: step})
	}
	sink.Done()
	return nil
}

type fakeEncoder struct {
	err     error
	calls   int
	inputs  []string
	profile string
}

func (e *fakeEncoder) Encode(_ context.Context, files []string, outputDir, profile string, sink progress.Sink, _ func() bool) ([]string, error) {
	e.calls++
	e.inputs = files
	e.profile = profile
	if e.err != nil {
		return nil, e.err
	}
	outputs := make([]string, 0, len(files))
	for step, file := range files {
		out := filepath.Join(outputDir, encodingDirName, filepath.Base(file))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return outputs, err
		}
		if err := os.WriteFile(out, []byte("encoded"), 0o644); err != nil {
			return outputs, err
		}
		sink.Progress(progress.Update{Label: "Encoding", Progress: 1, Step: step, ETA: 2 * time.Second})
		outputs = append(outputs, out)
	}
	sink.Done()
	return outputs, nil
}

type fakeUploader struct {
	calls int
	files []upload.File
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, files []upload.File, sink progress.Sink, _ func() bool) error {
	u.calls++
	u.files = files
	if u.err != nil {
		return u.err
	}
	for step := range files {
		sink.Progress(progress.Update{Label: "Uploading", Progress: 1, Step: step})
	}
	sink.Done()
	return nil
}

type fakeMovies struct {
	movie       servarr.Movie
	createErr   error
	renameErr   error
	created     []int64
	scanRenamed []int
}

func (m *fakeMovies) CreateMovie(_ context.Context, tmdbID int64, _ string, _ int, _ string) (servarr.Movie, error) {
	m.created = append(m.created, tmdbID)
	return m.movie, m.createErr
}

func (m *fakeMovies) ScanRename(_ context.Context, id int) error {
	m.scanRenamed = append(m.scanRenamed, id)
	return m.renameErr
}

type fakeSeries struct {
	series      servarr.Series
	seriesType  string
	scanRenamed []int
}

func (s *fakeSeries) CreateSeries(_ context.Context, _ int64, _ string, seriesType string, _ int, _ string) (servarr.Series, error) {
	s.seriesType = seriesType
	return s.series, nil
}

func (s *fakeSeries) ScanRename(_ context.Context, id int) error {
	s.scanRenamed = append(s.scanRenamed, id)
	return nil
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type finishCall struct {
	id, status, stage string
	cause             error
}

type fakeHistory struct {
	mu       sync.Mutex
	started  []history.Record
	finished []finishCall
}

func (h *fakeHistory) Start(_ context.Context, rec history.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, rec)
	return nil
}

func (h *fakeHistory) Finish(_ context.Context, id, status, stage string, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, finishCall{id: id, status: status, stage: stage, cause: cause})
	return nil
}

func titleFile(id int) string {
	return "title_t0" + string(rune('0'+id)) + ".mkv"
}

func testDisc() *disc.Disc {
	title := func(id, seconds int) disc.Title {
		return disc.Title{
			ID:             id,
			Duration:       seconds,
			OutputFileName: titleFile(id),
			Audio:          []disc.AudioStream{{LangCode: "eng"}},
		}
	}
	return &disc.Disc{Name: "HEAT", Titles: []disc.Title{title(0, 1200), title(1, 6000), title(2, 6010)}}
}

type harness struct {
	t        *testing.T
	out      string
	conn     *fakeConn
	ripper   *fakeRipper
	encoder  *fakeEncoder
	uploader *fakeUploader
	movies   *fakeMovies
	series   *fakeSeries
	refresh  *fakeRefresher
	history  *fakeHistory
	runner   *Runner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		out:      t.TempDir(),
		conn:     newFakeConn(),
		ripper:   &fakeRipper{},
		encoder:  &fakeEncoder{},
		uploader: &fakeUploader{},
		movies:   &fakeMovies{movie: servarr.Movie{ID: 12, Path: "/movies/Heat (1995)"}},
		series:   &fakeSeries{series: servarr.Series{ID: 30, Path: "/tv/Show"}},
		refresh:  &fakeRefresher{},
		history:  &fakeHistory{},
	}
	h.runner = NewRunner(h.out, Dependencies{
		Prober:  &fakeProber{disc: testDisc()},
		Ripper:  h.ripper,
		Encoder: h.encoder,
		Profiles: func() ([]handbrake.Profile, error) {
			return []handbrake.Profile{{ID: "hq", Label: "High quality"}}, nil
		},
		Uploader:  h.uploader,
		Movies:    h.movies,
		Series:    h.series,
		Refresher: h.refresh,
		History:   h.history,
	}, nil)
	h.runner.newID = func() string { return "job-1" }
	h.runner.refreshed = make(chan struct{})
	t.Cleanup(h.conn.Close)
	return h
}

func (h *harness) run(params Params) error {
	h.t.Helper()
	err := h.runner.Run(context.Background(), h.conn, params)
	h.conn.Close()
	return err
}

func movieParams(titles ...int) Params {
	return Params{
		Device:          "/dev/sr0",
		Titles:          titles,
		EncodingProfile: "hq",
		QualityProfile:  4,
		RootFolder:      "/movies",
		MediaType:       MediaMovie,
		Metadata:        `{"tmdb_id":949,"title":"Heat"}`,
	}
}

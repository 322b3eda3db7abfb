package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ripline/internal/progress"
	"ripline/internal/services"
)

type memFile struct {
	fs   *memFS
	path string
	buf  bytes.Buffer
}

func (f *memFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.buf.Write(p)
	f.fs.files[f.path] = append([]byte(nil), f.buf.Bytes()...)
	return len(p), nil
}

func (f *memFile) Close() error { return nil }

type memFS struct {
	mu        sync.Mutex
	files     map[string][]byte
	dirs      []string
	removed   []string
	closed    bool
	removeErr error
}

func newMemFS() *memFS { return &memFS{files: map[string][]byte{}} }

func (m *memFS) MkdirAll(dir string) error {
	m.dirs = append(m.dirs, dir)
	return nil
}

func (m *memFS) Create(path string) (io.WriteCloser, error) {
	m.files[path] = nil
	return &memFile{fs: m, path: path}, nil
}

func (m *memFS) Remove(path string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.files, path)
	m.removed = append(m.removed, path)
	return nil
}

func (m *memFS) Close() error {
	m.closed = true
	return nil
}

type memDialer struct {
	fs    *memFS
	dials int
	err   error
}

func (d *memDialer) Dial(context.Context) (Session, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.fs, nil
}

func writeLocal(t *testing.T, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Movie_t00.mkv")
	if err := os.WriteFile(p, bytes.Repeat([]byte{'x'}, size), 0o644); err != nil {
		t.Fatalf("write local: %v", err)
	}
	return p
}

func TestUploadStreamsInChunks(t *testing.T) {
	local := writeLocal(t, ChunkSize*2+10)
	fs := newMemFS()
	dialer := &memDialer{fs: fs}
	rec := &progress.Recorder{}

	remote := MoviePath("/media/movies/Example (2020)", local)
	err := New(dialer, nil).Upload(context.Background(), []File{{Local: local, Remote: remote}}, rec, nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := len(fs.files[remote]); got != ChunkSize*2+10 {
		t.Fatalf("remote size = %d", got)
	}
	if len(rec.Updates) != 3 || rec.Dones != 1 {
		t.Fatalf("updates=%d dones=%d", len(rec.Updates), rec.Dones)
	}
	if rec.Updates[2].Progress != 1 || rec.Updates[0].Label != StageLabel {
		t.Fatalf("unexpected updates %+v", rec.Updates)
	}
	if fs.dirs[0] != "/media/movies/Example (2020)" || !fs.closed || dialer.dials != 1 {
		t.Fatalf("dirs=%v closed=%v dials=%d", fs.dirs, fs.closed, dialer.dials)
	}
}

func TestUploadUsesOneSessionForManyFiles(t *testing.T) {
	a, b := writeLocal(t, 10), writeLocal(t, 20)
	fs := newMemFS()
	dialer := &memDialer{fs: fs}
	rec := &progress.Recorder{}
	files := []File{
		{Local: a, Remote: EpisodePath("/tv/Show", 1, 3, a)},
		{Local: b, Remote: EpisodePath("/tv/Show", 1, 4, b)},
	}
	if err := New(dialer, nil).Upload(context.Background(), files, rec, nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if dialer.dials != 1 {
		t.Fatalf("dials = %d, want 1", dialer.dials)
	}
	if rec.Updates[1].Step != 1 {
		t.Fatalf("second file step = %d", rec.Updates[1].Step)
	}
}

func TestUploadCancelRemovesPartialFile(t *testing.T) {
	local := writeLocal(t, ChunkSize*4)
	fs := newMemFS()
	rec := &progress.Recorder{}
	remote := "/media/movies/X/[Bluray-1080p]_Movie_t00.mkv"
	cancelled := func() bool { return len(rec.Updates) >= 2 }

	err := New(&memDialer{fs: fs}, nil).Upload(context.Background(), []File{{Local: local, Remote: remote}}, rec, cancelled)
	if err != nil {
		t.Fatalf("cancellation must not be an error: %v", err)
	}
	if _, ok := fs.files[remote]; ok {
		t.Fatal("partial remote file was not removed")
	}
	if len(fs.removed) != 1 || rec.Dones != 0 {
		t.Fatalf("removed=%v dones=%d", fs.removed, rec.Dones)
	}
}

func TestUploadContextEndIsAnError(t *testing.T) {
	local := writeLocal(t, ChunkSize*4)
	fs := newMemFS()
	remote := "/media/movies/X/[Bluray-1080p]_Movie_t00.mkv"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &progress.Recorder{}
	sink := progressFunc(func(u progress.Update) {
		rec.Progress(u)
		if len(rec.Updates) == 2 {
			cancel()
		}
	})

	err := New(&memDialer{fs: fs}, nil).Upload(ctx, []File{{Local: local, Remote: remote}}, sink, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, ok := fs.files[remote]; ok {
		t.Fatal("partial remote file was not removed")
	}
	if rec.Dones != 0 {
		t.Fatalf("dones = %d", rec.Dones)
	}
}

type progressFunc func(progress.Update)

func (f progressFunc) Progress(u progress.Update) { f(u) }
func (progressFunc) Done()                        {}

func TestUploadCancelRemoveFailureStillReturnsNil(t *testing.T) {
	local := writeLocal(t, ChunkSize*2)
	fs := newMemFS()
	fs.removeErr = errors.New("permission denied")
	err := New(&memDialer{fs: fs}, nil).Upload(context.Background(), []File{{Local: local, Remote: "/r/f.mkv"}}, nil, func() bool { return true })
	if err != nil {
		t.Fatalf("Upload returned %v", err)
	}
}

func TestUploadErrors(t *testing.T) {
	if err := New(nil, nil).Upload(context.Background(), nil, nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil dialer err = %v", err)
	}
	dialErr := services.Wrap(services.ErrExternalService, "upload", "dial", "host", errors.New("refused"))
	if err := New(&memDialer{err: dialErr}, nil).Upload(context.Background(), nil, nil, nil); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("dial err = %v", err)
	}
	missing := []File{{Local: "/nonexistent/file.mkv", Remote: "/r/file.mkv"}}
	if err := New(&memDialer{fs: newMemFS()}, nil).Upload(context.Background(), missing, nil, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing local err = %v", err)
	}
}

func TestRemotePaths(t *testing.T) {
	if got := MoviePath("/movies/Heat (1995)", "/out/encoding/Heat_t00.mkv"); got != "/movies/Heat (1995)/[Bluray-1080p]_Heat_t00.mkv" {
		t.Fatalf("MoviePath = %q", got)
	}
	if got := EpisodePath("/tv/Lost", 2, 7, "/out/encoding/Lost_t03.mkv"); got != "/tv/Lost/Season 02/[Bluray-1080p]_S02E07_Lost_t03.mkv" {
		t.Fatalf("EpisodePath = %q", got)
	}
}

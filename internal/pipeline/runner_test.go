package pipeline

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripline/internal/history"
	"ripline/internal/progress"
	"ripline/internal/services"
	"ripline/internal/services/handbrake"
	"ripline/internal/upload"
)

func waitRefresh(t *testing.T, h *harness) {
	t.Helper()
	select {
	case <-h.runner.refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("library refresh was not triggered")
	}
}

func TestRunMovieSuccess(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(movieParams(1, 2)))
	waitRefresh(t, h)

	assert.Equal(t, []string{
		"ripping_progress", "ripping_progress", "ripping_progress", "ripping_progress", "ripping_done",
		"encoding_progress", "encoding_progress", "encoding_done",
		"upload_progress", "upload_progress", "uploading_done",
	}, h.conn.types())

	first := h.conn.events()[0]
	payload, ok := first["payload"].(map[string]any)
	require.True(t, ok, "progress events carry a payload")
	assert.Equal(t, "Saving to MKV file", payload["label"])
	assert.Equal(t, 0.5, payload["progress"])
	assert.Equal(t, float64(0), payload["step"])
	assert.Equal(t, float64(90), payload["eta"])
	_, hasPayload := h.conn.events()[4]["payload"]
	assert.False(t, hasPayload, "done events have no payload")

	assert.Equal(t, []string{
		filepath.Join(h.out, "title_t01.mkv"),
		filepath.Join(h.out, "title_t02.mkv"),
	}, h.encoder.inputs)
	assert.Equal(t, "hq", h.encoder.profile)
	assert.Equal(t, []upload.File{
		{Local: filepath.Join(h.out, "encoding", "title_t01.mkv"), Remote: "/movies/Heat (1995)/[Bluray-1080p]_title_t01.mkv"},
		{Local: filepath.Join(h.out, "encoding", "title_t02.mkv"), Remote: "/movies/Heat (1995)/[Bluray-1080p]_title_t02.mkv"},
	}, h.uploader.files)
	assert.Equal(t, []int64{949}, h.movies.created)
	assert.Equal(t, []int{12}, h.movies.scanRenamed)
	assert.Equal(t, 1, h.refresh.calls)

	require.Len(t, h.history.started, 1)
	assert.Equal(t, "Heat", h.history.started[0].Title)
	assert.Equal(t, []int{1, 2}, h.history.started[0].Titles)
	require.Len(t, h.history.finished, 1)
	assert.Equal(t, finishCall{id: "job-1", status: history.StatusCompleted}, h.history.finished[0])
}

func TestRunTVMapsEpisodesToTitles(t *testing.T) {
	h := newHarness(t)
	params := movieParams(2, 1)
	params.MediaType = MediaTVShow
	params.RootFolder = "/tv"
	params.Metadata = `{"tvdb_id":121361,"title":"Show","series_type":"anime","season":2,"episodes":[5,6]}`

	require.NoError(t, h.run(params))
	waitRefresh(t, h)

	assert.Equal(t, "anime", h.series.seriesType)
	require.Len(t, h.uploader.files, 2)
	assert.Equal(t, "/tv/Show/Season 02/[Bluray-1080p]_S02E05_title_t02.mkv", h.uploader.files[0].Remote)
	assert.Equal(t, "/tv/Show/Season 02/[Bluray-1080p]_S02E06_title_t01.mkv", h.uploader.files[1].Remote)
	assert.Equal(t, []int{30}, h.series.scanRenamed)
}

func TestRunCancelMidRip(t *testing.T) {
	h := newHarness(t)
	h.ripper.waitForCancel = true

	// Partial outputs for every selected title, raw and encoded.
	require.NoError(t, os.MkdirAll(filepath.Join(h.out, "encoding"), 0o755))
	var leftovers []string
	for _, name := range []string{"title_t01.mkv", "title_t02.mkv"} {
		for _, dir := range []string{h.out, filepath.Join(h.out, "encoding")} {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
			leftovers = append(leftovers, path)
		}
	}
	unrelated := filepath.Join(h.out, "title_t00.mkv")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o644))

	h.conn.onWrite = func(ev map[string]any) {
		if ev["type"] == "ripping_progress" {
			h.conn.send("hello")
			h.conn.send("cancel")
		}
	}

	require.NoError(t, h.run(movieParams(1, 2)), "cancellation is not an error")

	assert.True(t, h.ripper.sawCancel)
	assert.Equal(t, []string{"ripping_progress"}, h.conn.types(), "nothing follows a cancelled rip")
	assert.Zero(t, h.encoder.calls)
	assert.Zero(t, h.uploader.calls)
	assert.Empty(t, h.movies.scanRenamed)
	for _, path := range leftovers {
		_, err := os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist), "expected %s to be removed", path)
	}
	_, err := os.Stat(unrelated)
	assert.NoError(t, err, "unselected titles are left alone")

	require.Len(t, h.history.finished, 1)
	assert.Equal(t, history.StatusCancelled, h.history.finished[0].status)
	assert.Zero(t, h.refresh.calls)
}

// shutdownRipper writes a partial file, then the daemon context ends and the
// killed tool surfaces the context error.
type shutdownRipper struct {
	cancel context.CancelFunc
}

func (r *shutdownRipper) Rip(ctx context.Context, _ string, ids []int, outputDir string, _ progress.Sink, _ func() bool) error {
	if err := os.WriteFile(filepath.Join(outputDir, titleFile(ids[0])), []byte("partial"), 0o644); err != nil {
		return err
	}
	r.cancel()
	<-ctx.Done()
	return services.Wrap(services.ErrExternalTool, "makemkv", "rip", "makemkvcon killed", ctx.Err())
}

func TestRunShutdownMidRipRemovesPartials(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.runner.deps.Ripper = &shutdownRipper{cancel: cancel}

	err := h.runner.Run(ctx, h.conn, movieParams(1))
	h.conn.Close()
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(h.out, titleFile(1)))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "partial rip output should be removed")
	assert.Zero(t, h.encoder.calls)
	require.Len(t, h.history.finished, 1)
	assert.Equal(t, "ripping", h.history.finished[0].stage)
}

func TestRunUnknownTitle(t *testing.T) {
	h := newHarness(t)

	err := h.run(movieParams(1, 9))
	require.ErrorIs(t, err, services.ErrNotFound)

	events := h.conn.events()
	require.Len(t, events, 1)
	assert.Equal(t, "job_error", events[0]["type"])
	payload := events[0]["payload"].(map[string]any)
	assert.Equal(t, services.KindNotFound, payload["kind"])
	assert.Contains(t, payload["message"], "title 9")
	assert.Zero(t, h.ripper.calls)
	assert.Empty(t, h.history.started)
}

func TestRunUnknownProfileFailsBeforeRip(t *testing.T) {
	h := newHarness(t)
	params := movieParams(1)
	params.EncodingProfile = "archive"

	err := h.run(params)
	require.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, []string{"job_error"}, h.conn.types())
	assert.Zero(t, h.ripper.calls)
	assert.Zero(t, h.encoder.calls)
	assert.Empty(t, h.history.started)
}

func TestRunProfileListFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.deps.Profiles = func() ([]handbrake.Profile, error) {
		return nil, services.Wrap(services.ErrConfiguration, "handbrake", "profiles", "index.json missing", nil)
	}

	err := h.run(movieParams(1))
	require.ErrorIs(t, err, services.ErrConfiguration)
	assert.Equal(t, []string{"job_error"}, h.conn.types())
	assert.Zero(t, h.ripper.calls)
}

func TestRunEncodeFailureStopsPipeline(t *testing.T) {
	h := newHarness(t)
	h.encoder.err = services.Wrap(services.ErrExternalTool, "handbrake", "encode", "exit status 2", nil)

	err := h.run(movieParams(1))
	require.ErrorIs(t, err, services.ErrExternalTool)

	types := h.conn.types()
	assert.Equal(t, "encoding_error", types[len(types)-1])
	assert.Contains(t, types, "ripping_done", "earlier stages are not rolled back")
	assert.Zero(t, h.uploader.calls)
	require.Len(t, h.history.finished, 1)
	assert.Equal(t, history.StatusFailed, h.history.finished[0].status)
	assert.Equal(t, "encoding", h.history.finished[0].stage)
}

func TestRunRegistrationFailure(t *testing.T) {
	h := newHarness(t)
	h.movies.createErr = services.Wrap(services.ErrExternalService, "radarr", "movie", "returned 500", nil)

	err := h.run(movieParams(1))
	require.ErrorIs(t, err, services.ErrExternalService)
	assert.Equal(t, []string{"registration_error"}, h.conn.types())
	assert.Zero(t, h.ripper.calls)
}

func TestRunMissingLibraryClient(t *testing.T) {
	h := newHarness(t)
	h.runner.deps.Movies = nil

	err := h.run(movieParams(1))
	require.ErrorIs(t, err, services.ErrConfiguration)
	assert.Equal(t, []string{"registration_error"}, h.conn.types())
}

func TestParseParams(t *testing.T) {
	q := url.Values{}
	q.Set("device", "/dev/sr0")
	q.Set("titles", "3, 1,")
	q.Set("encoding_profile", "hq")
	q.Set("quality_profile", "4")
	q.Set("root_folder", "/tv")
	q.Set("media_type", "tv_show")
	q.Set("metadata", `{"tvdb_id":1,"title":"Show","series_type":"standard","season":1,"episodes":[1,2]}`)

	params, err := ParseParams(q)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, params.Titles)
	assert.Equal(t, 4, params.QualityProfile)
	assert.Equal(t, MediaTVShow, params.MediaType)

	q.Set("encoding_profile", " ")
	_, err = ParseParams(q)
	assert.ErrorIs(t, err, services.ErrValidation, "blank encoding profile")
	q.Set("encoding_profile", "hq")

	q.Set("metadata", `{"tvdb_id":1,"season":1,"episodes":[1]}`)
	_, err = ParseParams(q)
	assert.ErrorIs(t, err, services.ErrValidation, "fewer episodes than titles")

	q.Set("media_type", "podcast")
	_, err = ParseParams(q)
	assert.ErrorIs(t, err, services.ErrValidation)

	q.Set("media_type", "movie")
	q.Set("titles", "a")
	_, err = ParseParams(q)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestParamsValuesRoundTrip(t *testing.T) {
	params := Params{
		Device:          "/dev/sr0",
		Titles:          []int{2, 0},
		EncodingProfile: "hq",
		QualityProfile:  4,
		RootFolder:      "/movies",
		MediaType:       MediaMovie,
		Metadata:        `{"tmdb_id":7,"title":"Heat"}`,
	}
	parsed, err := ParseParams(params.Values())
	require.NoError(t, err)
	assert.Equal(t, params, parsed)
}

func TestCancelFlagSetsOnce(t *testing.T) {
	var flag CancelFlag
	assert.False(t, flag.Cancelled())
	assert.True(t, flag.Cancel())
	assert.False(t, flag.Cancel())
	assert.True(t, flag.Cancelled())
}

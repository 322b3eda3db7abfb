package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ripline/internal/api"
	"ripline/internal/disc"
	"ripline/internal/history"
	"ripline/internal/pipeline"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/makemkv"
	"ripline/internal/services/servarr"
	"ripline/internal/tmdb"
)

type stubTMDB struct{}

func (stubTMDB) SearchMovie(context.Context, string, string) (*tmdb.Response[tmdb.MovieResult], error) {
	return &tmdb.Response[tmdb.MovieResult]{Page: 1, Results: []tmdb.MovieResult{{ID: 949, Title: "Heat", ReleaseDate: "1995-12-15"}}}, nil
}

func (stubTMDB) SearchTV(context.Context, string, string) (*tmdb.Response[tmdb.TVResult], error) {
	return &tmdb.Response[tmdb.TVResult]{Page: 1}, nil
}

func (stubTMDB) Movie(_ context.Context, id int64, _ string) (*tmdb.Movie, error) {
	return &tmdb.Movie{ID: id, Title: "Heat", Runtime: 170}, nil
}

func (stubTMDB) TV(_ context.Context, id int64, _ string) (*tmdb.Series, error) {
	series := &tmdb.Series{ID: id, Name: "Columbo"}
	series.ExternalIDs.TVDBID = 78176
	return series, nil
}

type stubDrives struct{}

func (stubDrives) Devices(context.Context) ([]makemkv.Device, error) {
	return []makemkv.Device{{Name: "HEAT", Description: "BD-RE HL-DT-ST", Path: "/dev/sr0"}}, nil
}

func (stubDrives) Probe(context.Context, string) (*disc.Disc, error) {
	eng := []disc.AudioStream{{LangCode: "eng"}}
	return &disc.Disc{Name: "HEAT", Titles: []disc.Title{
		{ID: 0, Name: "Heat", Duration: 10200, ChapterCount: 32, Audio: eng},
		{ID: 1, Name: "Trailer", Duration: 150, Audio: eng},
	}}, nil
}

type stubLibrary struct{}

func (stubLibrary) QualityProfiles(context.Context) ([]servarr.QualityProfile, error) {
	return []servarr.QualityProfile{{ID: 4, Name: "HD-1080p"}}, nil
}

func (stubLibrary) RootFolders(context.Context) ([]servarr.RootFolder, error) {
	return []servarr.RootFolder{{ID: 1, Path: "/data/movies", FreeSpace: 3 << 40}}, nil
}

type stubHistory struct{}

func (stubHistory) List(context.Context, int) ([]history.Record, error) {
	return []history.Record{{ID: "job-1", Title: "Heat", MediaKind: "movie", Profile: "hq", Status: history.StatusCompleted}}, nil
}

type recordingJobs struct {
	mu     sync.Mutex
	params []pipeline.Params
	events []pipeline.Event
}

func (j *recordingJobs) Run(_ context.Context, conn pipeline.Conn, params pipeline.Params) error {
	j.mu.Lock()
	j.params = append(j.params, params)
	j.mu.Unlock()
	for _, ev := range j.events {
		if err := conn.WriteJSON(ev); err != nil {
			return err
		}
	}
	return nil
}

func (j *recordingJobs) last() pipeline.Params {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.params) == 0 {
		return pipeline.Params{}
	}
	return j.params[len(j.params)-1]
}

type cliTestEnv struct {
	server *httptest.Server
	jobs   *recordingJobs
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	jobs := &recordingJobs{}
	srv := api.NewServer(api.Dependencies{
		TMDB:   stubTMDB{},
		Drives: stubDrives{},
		Profiles: func() ([]handbrake.Profile, error) {
			return []handbrake.Profile{{ID: "hq", Label: "High Quality", PresetName: "HQ 1080p"}}, nil
		},
		Movies:  stubLibrary{},
		History: stubHistory{},
		Jobs:    jobs,
	}, api.Options{Languages: []string{"eng"}}, nil)
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return &cliTestEnv{server: server, jobs: jobs}
}

func runCLI(t *testing.T, args []string, server, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if server != "" {
		flags = append(flags, "--server", server)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a minimal config rooted in a temp dir and returns
// its path.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
state_dir = %q
api_bind = "127.0.0.1:1"

[handbrake]
profiles_path = %q

[tmdb]
api_key = "test-key"
%s`,
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"),
		filepath.Join(base, "profiles"),
		extra,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"ripline/internal/api"
	"ripline/internal/disc"
	"ripline/internal/pipeline"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/servarr"
	"ripline/internal/tmdb"
)

type fakeLookup struct {
	tvdbID   int64
	tvTitles []disc.Title
	profiles []handbrake.Profile
	episodes []int
}

func (f *fakeLookup) Movie(context.Context, int64, string) (*tmdb.Movie, error) {
	return &tmdb.Movie{Title: "Heat"}, nil
}

func (f *fakeLookup) TV(context.Context, int64, string) (*tmdb.Series, error) {
	s := &tmdb.Series{Name: "Columbo"}
	s.ExternalIDs.TVDBID = f.tvdbID
	return s, nil
}

func (f *fakeLookup) MovieTitles(context.Context, string, int64, []string) (*disc.Disc, error) {
	return &disc.Disc{}, nil
}

func (f *fakeLookup) TVTitles(_ context.Context, _ string, _ int64, _ int, episodes []int, _ []string) (*disc.Disc, error) {
	f.episodes = episodes
	return &disc.Disc{Titles: f.tvTitles}, nil
}

func (f *fakeLookup) Profiles(context.Context) ([]handbrake.Profile, error) {
	return f.profiles, nil
}

func (f *fakeLookup) QualityProfiles(context.Context, pipeline.MediaKind) ([]servarr.QualityProfile, error) {
	return []servarr.QualityProfile{{ID: 1, Name: "Any"}, {ID: 6, Name: "HD-720p"}}, nil
}

func (f *fakeLookup) RootFolders(context.Context, pipeline.MediaKind) ([]servarr.RootFolder, error) {
	return []servarr.RootFolder{{ID: 2, Path: "/data/tv"}}, nil
}

type scriptedChooser struct {
	selects []string
	asked   []string
}

func (s *scriptedChooser) Select(title string, _ []choice) (string, error) {
	s.asked = append(s.asked, title)
	value := s.selects[0]
	s.selects = s.selects[1:]
	return value, nil
}

func (s *scriptedChooser) MultiSelect(title string, _ []choice, preselected []string) ([]string, error) {
	s.asked = append(s.asked, title)
	return preselected, nil
}

func TestPlanTVResolvesEverything(t *testing.T) {
	lookup := &fakeLookup{
		tvdbID:   78176,
		tvTitles: []disc.Title{{ID: 1, Duration: 4400}, {ID: 2, Duration: 4500}, {ID: 5, Duration: 4450}},
		profiles: []handbrake.Profile{{ID: "fast", Label: "Fast"}, {ID: "hq", Label: "HQ"}},
	}
	chooser := &scriptedChooser{selects: []string{"hq", "6"}}
	params, err := ripPlanner{lookup: lookup, choose: chooser}.plan(context.Background(), ripRequest{
		kind:       pipeline.MediaTVShow,
		device:     "/dev/sr1",
		tmdbID:     1300,
		seriesType: "standard",
		season:     2,
		episodes:   []int{3, 4},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if got := params.Titles; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("titles = %v, want first title per episode", got)
	}
	if params.EncodingProfile != "hq" || params.QualityProfile != 6 || params.RootFolder != "/data/tv" {
		t.Fatalf("params = %+v", params)
	}
	if strings.Join(chooser.asked, "|") != "Titles to rip|Encoding profile|Quality profile" {
		t.Fatalf("asked = %v", chooser.asked)
	}
	var meta pipeline.TVMetadata
	if err := json.Unmarshal([]byte(params.Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.TVDBID != 78176 || meta.Title != "Columbo" || meta.Season != 2 || len(meta.Episodes) != 2 {
		t.Fatalf("meta = %+v", meta)
	}
	if len(lookup.episodes) != 2 {
		t.Fatalf("episodes passed to lookup = %v", lookup.episodes)
	}
	if _, err := pipeline.ParseParams(params.Values()); err != nil {
		t.Fatalf("planned params do not parse: %v", err)
	}
}

func TestPlanRequiresTVDBID(t *testing.T) {
	lookup := &fakeLookup{}
	_, err := ripPlanner{lookup: lookup, choose: flagsOnly{}}.plan(context.Background(), ripRequest{
		kind: pipeline.MediaTVShow, tmdbID: 1, episodes: []int{1},
	})
	if err == nil || !strings.Contains(err.Error(), "--tvdb-id") {
		t.Fatalf("expected tvdb id error, got %v", err)
	}
}

func TestPlanMovieWithoutMatches(t *testing.T) {
	_, err := ripPlanner{lookup: &fakeLookup{}, choose: flagsOnly{}}.plan(context.Background(), ripRequest{
		kind: pipeline.MediaMovie, tmdbID: 949,
	})
	if err == nil || !strings.Contains(err.Error(), "--titles") {
		t.Fatalf("expected no-match error, got %v", err)
	}
}

func TestFlagsOnlyRefusesToGuess(t *testing.T) {
	_, err := ripPlanner{lookup: &fakeLookup{}, choose: flagsOnly{}}.pick("Quality profile", []choice{{Value: "1"}, {Value: "2"}})
	if err == nil || !strings.Contains(err.Error(), "pass the value as a flag") {
		t.Fatalf("err = %v", err)
	}
}

func TestProgressRendererPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	r := newProgressRenderer(&buf)
	send := func(eventType string, payload any) {
		var raw json.RawMessage
		if payload != nil {
			raw, _ = json.Marshal(payload)
		}
		r.handle(api.StreamEvent{Type: eventType, Payload: raw})
	}
	send("encoding_progress", pipeline.ProgressPayload{Label: "title_t00.mkv", Progress: 0.11, Step: 0})
	send("encoding_progress", pipeline.ProgressPayload{Label: "title_t00.mkv", Progress: 0.12, Step: 0})
	send("encoding_progress", pipeline.ProgressPayload{Label: "title_t00.mkv", Progress: 0.25, Step: 0})
	send("encoding_done", nil)
	send("upload_progress", pipeline.ProgressPayload{Label: "Heat.mkv", Progress: 1, Step: 0})
	send("uploading_error", pipeline.ErrorPayload{Message: "permission denied", Kind: "external_service"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"[Encoding #1]  11.0%  title_t00.mkv",
		"[Encoding #1]  25.0%  title_t00.mkv",
		"Encoding complete",
		"[Uploading #1] 100.0%  Heat.mkv",
		"Uploading failed: permission denied",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("output:\n%s\nwant:\n%s", buf.String(), strings.Join(want, "\n"))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}

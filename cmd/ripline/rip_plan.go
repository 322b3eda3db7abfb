package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"ripline/internal/disc"
	"ripline/internal/pipeline"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/servarr"
	"ripline/internal/tmdb"
)

// ripLookup is the daemon surface the planner needs to fill in missing flags.
type ripLookup interface {
	Movie(ctx context.Context, id int64, language string) (*tmdb.Movie, error)
	TV(ctx context.Context, id int64, language string) (*tmdb.Series, error)
	MovieTitles(ctx context.Context, device string, tmdbID int64, langs []string) (*disc.Disc, error)
	TVTitles(ctx context.Context, device string, tmdbID int64, season int, episodes []int, langs []string) (*disc.Disc, error)
	Profiles(ctx context.Context) ([]handbrake.Profile, error)
	QualityProfiles(ctx context.Context, kind pipeline.MediaKind) ([]servarr.QualityProfile, error)
	RootFolders(ctx context.Context, kind pipeline.MediaKind) ([]servarr.RootFolder, error)
}

// ripRequest is the rip command's flag set.
type ripRequest struct {
	kind           pipeline.MediaKind
	device         string
	tmdbID         int64
	title          string
	titles         []int
	profile        string
	qualityProfile int
	rootFolder     string
	langs          []string

	// tv only
	tvdbID     int64
	seriesType string
	season     int
	episodes   []int
}

type ripPlanner struct {
	lookup ripLookup
	choose chooser
}

// plan resolves every unset field and returns the job parameters.
func (p ripPlanner) plan(ctx context.Context, req ripRequest) (pipeline.Params, error) {
	if req.tmdbID <= 0 {
		return pipeline.Params{}, errors.New("--tmdb-id is required")
	}
	metadata, err := p.metadata(ctx, &req)
	if err != nil {
		return pipeline.Params{}, err
	}
	if len(req.titles) == 0 {
		if req.titles, err = p.titles(ctx, req); err != nil {
			return pipeline.Params{}, err
		}
	}
	if req.profile == "" {
		if req.profile, err = p.profile(ctx); err != nil {
			return pipeline.Params{}, err
		}
	}
	if req.qualityProfile <= 0 {
		if req.qualityProfile, err = p.qualityProfile(ctx, req.kind); err != nil {
			return pipeline.Params{}, err
		}
	}
	if req.rootFolder == "" {
		if req.rootFolder, err = p.rootFolder(ctx, req.kind); err != nil {
			return pipeline.Params{}, err
		}
	}
	return pipeline.Params{
		Device:          req.device,
		Titles:          req.titles,
		EncodingProfile: req.profile,
		QualityProfile:  req.qualityProfile,
		RootFolder:      req.rootFolder,
		MediaType:       req.kind,
		Metadata:        metadata,
	}, nil
}

func (p ripPlanner) metadata(ctx context.Context, req *ripRequest) (string, error) {
	var payload any
	switch req.kind {
	case pipeline.MediaMovie:
		if req.title == "" {
			movie, err := p.lookup.Movie(ctx, req.tmdbID, "")
			if err != nil {
				return "", fmt.Errorf("look up movie %d: %w", req.tmdbID, err)
			}
			req.title = movie.Title
		}
		payload = pipeline.MovieMetadata{TMDBID: req.tmdbID, Title: req.title}
	case pipeline.MediaTVShow:
		if len(req.episodes) == 0 {
			return "", errors.New("--episodes is required for tv rips")
		}
		if req.title == "" || req.tvdbID <= 0 {
			series, err := p.lookup.TV(ctx, req.tmdbID, "")
			if err != nil {
				return "", fmt.Errorf("look up show %d: %w", req.tmdbID, err)
			}
			if req.title == "" {
				req.title = series.Name
			}
			if req.tvdbID <= 0 {
				req.tvdbID = series.ExternalIDs.TVDBID
			}
		}
		if req.tvdbID <= 0 {
			return "", fmt.Errorf("show %d has no TVDB id; pass --tvdb-id", req.tmdbID)
		}
		payload = pipeline.TVMetadata{
			TVDBID:     req.tvdbID,
			Title:      req.title,
			SeriesType: req.seriesType,
			Season:     req.season,
			Episodes:   req.episodes,
		}
	default:
		return "", fmt.Errorf("unknown media type %q", req.kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// titles suggests the matching titles: the first match for a movie and one
// per episode, in disc order, for a show.
func (p ripPlanner) titles(ctx context.Context, req ripRequest) ([]int, error) {
	var (
		found *disc.Disc
		err   error
		want  = 1
	)
	if req.kind == pipeline.MediaTVShow {
		found, err = p.lookup.TVTitles(ctx, req.device, req.tmdbID, req.season, req.episodes, req.langs)
		want = len(req.episodes)
	} else {
		found, err = p.lookup.MovieTitles(ctx, req.device, req.tmdbID, req.langs)
	}
	if err != nil {
		return nil, err
	}
	if found == nil || len(found.Titles) == 0 {
		return nil, errors.New("no disc titles match the TMDB runtime; pass --titles")
	}
	options := make([]choice, 0, len(found.Titles))
	var preselected []string
	for i, t := range found.Titles {
		id := strconv.Itoa(t.ID)
		options = append(options, choice{Label: fmt.Sprintf("%s  %s  %s", id, formatRuntime(t.Duration), t.Name), Value: id})
		if i < want {
			preselected = append(preselected, id)
		}
	}
	values, err := p.choose.MultiSelect("Titles to rip", options, preselected)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid title id %q", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p ripPlanner) profile(ctx context.Context) (string, error) {
	profiles, err := p.lookup.Profiles(ctx)
	if err != nil {
		return "", err
	}
	options := make([]choice, 0, len(profiles))
	for _, pr := range profiles {
		options = append(options, choice{Label: pr.Label, Value: pr.ID})
	}
	return p.pick("Encoding profile", options)
}

func (p ripPlanner) qualityProfile(ctx context.Context, kind pipeline.MediaKind) (int, error) {
	profiles, err := p.lookup.QualityProfiles(ctx, kind)
	if err != nil {
		return 0, err
	}
	options := make([]choice, 0, len(profiles))
	for _, qp := range profiles {
		options = append(options, choice{Label: qp.Name, Value: strconv.Itoa(qp.ID)})
	}
	value, err := p.pick("Quality profile", options)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

func (p ripPlanner) rootFolder(ctx context.Context, kind pipeline.MediaKind) (string, error) {
	folders, err := p.lookup.RootFolders(ctx, kind)
	if err != nil {
		return "", err
	}
	options := make([]choice, 0, len(folders))
	for _, f := range folders {
		options = append(options, choice{Label: fmt.Sprintf("%s (%s free)", f.Path, formatBytes(f.FreeSpace)), Value: f.Path})
	}
	return p.pick("Root folder", options)
}

// pick returns the only option without asking.
func (p ripPlanner) pick(title string, options []choice) (string, error) {
	switch len(options) {
	case 0:
		return "", fmt.Errorf("%s: nothing to choose from", title)
	case 1:
		return options[0].Value, nil
	default:
		return p.choose.Select(title, options)
	}
}

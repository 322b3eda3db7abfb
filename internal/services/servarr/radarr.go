package servarr

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"ripline/internal/config"
	"ripline/internal/logging"
	"ripline/internal/services"
)

// Radarr registers movies and renames their files.
type Radarr struct {
	*Client
}

// NewRadarr builds a Radarr client from configuration.
func NewRadarr(cfg config.Servarr, opts ...Option) (*Radarr, error) {
	client, err := NewClient("radarr", cfg.URL, cfg.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Radarr{Client: client}, nil
}

// CreateMovie adds the movie tagged "original". When Radarr rejects the add
// (usually because the movie already exists) the existing record is fetched
// by TMDB id instead.
func (r *Radarr) CreateMovie(ctx context.Context, tmdbID int64, title string, qualityProfileID int, rootFolder string) (Movie, error) {
	tag, err := r.UpsertTag(ctx, OriginalTag)
	if err != nil {
		return Movie{}, err
	}
	body := createMovieBody{
		Title:               title,
		TMDBID:              tmdbID,
		QualityProfileID:    qualityProfileID,
		RootFolderPath:      rootFolder,
		Monitored:           true,
		MinimumAvailability: "announced",
		Tags:                []int{tag.ID},
	}
	var movie Movie
	createErr := r.do(ctx, http.MethodPost, "movie", nil, body, &movie)
	if createErr == nil {
		return movie, nil
	}
	r.logger.Info("radarr add rejected; looking up existing movie",
		logging.Int64("tmdb_id", tmdbID),
		logging.Error(createErr),
	)
	movie, err = r.MovieByTMDB(ctx, tmdbID)
	if err != nil {
		return Movie{}, errors.Join(createErr, err)
	}
	return movie, nil
}

// MovieByTMDB returns the library record with the given TMDB id.
func (r *Radarr) MovieByTMDB(ctx context.Context, tmdbID int64) (Movie, error) {
	query := url.Values{}
	query.Set("tmdbId", strconv.FormatInt(tmdbID, 10))
	var movies []Movie
	if err := r.do(ctx, http.MethodGet, "movie", query, nil, &movies); err != nil {
		return Movie{}, err
	}
	if len(movies) == 0 {
		return Movie{}, services.Wrap(services.ErrNotFound, r.name, "movie", "no movie with tmdb id "+strconv.FormatInt(tmdbID, 10), nil)
	}
	return movies[len(movies)-1], nil
}

// ScanRename rescans the movie folder, then renames any files Radarr
// reports as misnamed. Each command is awaited.
func (r *Radarr) ScanRename(ctx context.Context, movieID int) error {
	id, err := r.command(ctx, commandBody{Name: "RescanMovie", MovieID: movieID})
	if err != nil {
		return err
	}
	if err := r.AwaitCommand(ctx, id); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("movieId", strconv.Itoa(movieID))
	var renames []movieRename
	if err := r.do(ctx, http.MethodGet, "rename", query, nil, &renames); err != nil {
		return err
	}
	files := make([]int, 0, len(renames))
	for _, rename := range renames {
		files = append(files, rename.MovieFileID)
	}
	if len(files) == 0 {
		r.logger.Debug("radarr rename skipped; nothing to rename", logging.Int("movie_id", movieID))
		return nil
	}
	id, err = r.command(ctx, commandBody{Name: "RenameFiles", MovieID: movieID, Files: files})
	if err != nil {
		return err
	}
	return r.AwaitCommand(ctx, id)
}

package servarr

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ripline/internal/config"
	"ripline/internal/logging"
	"ripline/internal/services"
)

// Sonarr series types.
const (
	SeriesStandard = "standard"
	SeriesDaily    = "daily"
	SeriesAnime    = "anime"
)

// Sonarr registers series and renames episode files.
type Sonarr struct {
	*Client
}

// NewSonarr builds a Sonarr client from configuration.
func NewSonarr(cfg config.Servarr, opts ...Option) (*Sonarr, error) {
	client, err := NewClient("sonarr", cfg.URL, cfg.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Sonarr{Client: client}, nil
}

// CreateSeries adds the series tagged "original" with season folders and
// all episodes monitored, falling back to the existing record by TVDB id.
func (s *Sonarr) CreateSeries(ctx context.Context, tvdbID int64, title, seriesType string, qualityProfileID int, rootFolder string) (Series, error) {
	tag, err := s.UpsertTag(ctx, OriginalTag)
	if err != nil {
		return Series{}, err
	}
	seriesType = strings.ToLower(strings.TrimSpace(seriesType))
	if seriesType == "" {
		seriesType = SeriesStandard
	}
	body := createSeriesBody{
		Title:            title,
		TVDBID:           tvdbID,
		QualityProfileID: qualityProfileID,
		RootFolderPath:   rootFolder,
		SeriesType:       seriesType,
		SeasonFolder:     true,
		Monitored:        true,
		Tags:             []int{tag.ID},
		AddOptions:       addOptions{Monitor: "all"},
	}
	var series Series
	createErr := s.do(ctx, http.MethodPost, "series", nil, body, &series)
	if createErr == nil {
		return series, nil
	}
	s.logger.Info("sonarr add rejected; looking up existing series",
		logging.Int64("tvdb_id", tvdbID),
		logging.Error(createErr),
	)
	series, err = s.SeriesByTVDB(ctx, tvdbID)
	if err != nil {
		return Series{}, errors.Join(createErr, err)
	}
	return series, nil
}

// SeriesByTVDB returns the library record with the given TVDB id.
func (s *Sonarr) SeriesByTVDB(ctx context.Context, tvdbID int64) (Series, error) {
	query := url.Values{}
	query.Set("tvdbId", strconv.FormatInt(tvdbID, 10))
	var list []Series
	if err := s.do(ctx, http.MethodGet, "series", query, nil, &list); err != nil {
		return Series{}, err
	}
	if len(list) == 0 {
		return Series{}, services.Wrap(services.ErrNotFound, s.name, "series", "no series with tvdb id "+strconv.FormatInt(tvdbID, 10), nil)
	}
	return list[len(list)-1], nil
}

// ScanRename refreshes the series, then renames misnamed episode files.
func (s *Sonarr) ScanRename(ctx context.Context, seriesID int) error {
	id, err := s.command(ctx, commandBody{Name: "RefreshSeries", SeriesID: seriesID})
	if err != nil {
		return err
	}
	if err := s.AwaitCommand(ctx, id); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("seriesId", strconv.Itoa(seriesID))
	var renames []episodeRename
	if err := s.do(ctx, http.MethodGet, "rename", query, nil, &renames); err != nil {
		return err
	}
	files := make([]int, 0, len(renames))
	for _, rename := range renames {
		files = append(files, rename.EpisodeFileID)
	}
	if len(files) == 0 {
		s.logger.Debug("sonarr rename skipped; nothing to rename", logging.Int("series_id", seriesID))
		return nil
	}
	id, err = s.command(ctx, commandBody{Name: "RenameFiles", SeriesID: seriesID, Files: files})
	if err != nil {
		return err
	}
	return s.AwaitCommand(ctx, id)
}

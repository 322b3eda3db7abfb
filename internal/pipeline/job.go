package pipeline

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"ripline/internal/disc"
	"ripline/internal/services"
)

// MediaKind distinguishes movies from TV shows.
type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaTVShow MediaKind = "tv_show"
)

// ParseMediaKind validates a media_type value.
func ParseMediaKind(value string) (MediaKind, error) {
	switch kind := MediaKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case MediaMovie, MediaTVShow:
		return kind, nil
	default:
		return "", services.Wrap(services.ErrValidation, "pipeline", "params", fmt.Sprintf("unknown media type %q", value), nil)
	}
}

// MovieMetadata identifies the movie being ripped.
type MovieMetadata struct {
	TMDBID int64  `json:"tmdb_id"`
	Title  string `json:"title"`
}

// TVMetadata identifies the series and the episode each title holds:
// Episodes[i] is the episode number of the i-th selected title.
type TVMetadata struct {
	TVDBID     int64  `json:"tvdb_id"`
	Title      string `json:"title"`
	SeriesType string `json:"series_type"`
	Season     int    `json:"season"`
	Episodes   []int  `json:"episodes"`
}

// Params is the client's job request.
type Params struct {
	Device          string
	Titles          []int
	EncodingProfile string
	QualityProfile  int
	RootFolder      string
	MediaType       MediaKind
	// Metadata is the JSON encoding of MovieMetadata or TVMetadata.
	Metadata string
}

// ParseParams reads job parameters from a query string.
func ParseParams(q url.Values) (Params, error) {
	p := Params{
		Device:          strings.TrimSpace(q.Get("device")),
		EncodingProfile: strings.TrimSpace(q.Get("encoding_profile")),
		RootFolder:      strings.TrimSpace(q.Get("root_folder")),
		Metadata:        q.Get("metadata"),
	}
	titles, err := ParseIntList(q.Get("titles"))
	if err != nil {
		return Params{}, services.Wrap(services.ErrValidation, "pipeline", "params", "titles", err)
	}
	p.Titles = titles
	if raw := strings.TrimSpace(q.Get("quality_profile")); raw != "" {
		p.QualityProfile, err = strconv.Atoi(raw)
		if err != nil {
			return Params{}, services.Wrap(services.ErrValidation, "pipeline", "params", "quality_profile", err)
		}
	}
	if p.MediaType, err = ParseMediaKind(q.Get("media_type")); err != nil {
		return Params{}, err
	}
	return p, p.validate()
}

// Values encodes p as the query string ParseParams reads.
func (p Params) Values() url.Values {
	q := url.Values{}
	q.Set("device", p.Device)
	titles := make([]string, len(p.Titles))
	for i, id := range p.Titles {
		titles[i] = strconv.Itoa(id)
	}
	q.Set("titles", strings.Join(titles, ","))
	q.Set("encoding_profile", p.EncodingProfile)
	q.Set("quality_profile", strconv.Itoa(p.QualityProfile))
	q.Set("root_folder", p.RootFolder)
	q.Set("media_type", string(p.MediaType))
	q.Set("metadata", p.Metadata)
	return q
}

// ParseIntList parses a comma separated list of non-negative integers.
// Empty entries are skipped.
func ParseIntList(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative number %d", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func (p Params) validate() error {
	invalid := func(msg string) error {
		return services.Wrap(services.ErrValidation, "pipeline", "params", msg, nil)
	}
	switch {
	case p.Device == "":
		return invalid("device required")
	case len(p.Titles) == 0:
		return invalid("at least one title required")
	case strings.TrimSpace(p.EncodingProfile) == "":
		return invalid("encoding_profile required")
	case p.RootFolder == "":
		return invalid("root_folder required")
	case p.QualityProfile <= 0:
		return invalid("quality_profile required")
	}
	_, _, err := p.decodeMetadata()
	return err
}

func (p Params) decodeMetadata() (*MovieMetadata, *TVMetadata, error) {
	invalid := func(msg string, err error) error {
		return services.Wrap(services.ErrValidation, "pipeline", "metadata", msg, err)
	}
	switch p.MediaType {
	case MediaMovie:
		var meta MovieMetadata
		if err := json.Unmarshal([]byte(p.Metadata), &meta); err != nil {
			return nil, nil, invalid("decode movie metadata", err)
		}
		if meta.TMDBID <= 0 {
			return nil, nil, invalid("tmdb_id required", nil)
		}
		return &meta, nil, nil
	case MediaTVShow:
		var meta TVMetadata
		if err := json.Unmarshal([]byte(p.Metadata), &meta); err != nil {
			return nil, nil, invalid("decode tv metadata", err)
		}
		if meta.TVDBID <= 0 {
			return nil, nil, invalid("tvdb_id required", nil)
		}
		if meta.Season < 0 {
			return nil, nil, invalid("season must not be negative", nil)
		}
		if len(meta.Episodes) < len(p.Titles) {
			return nil, nil, invalid(fmt.Sprintf("%d titles but only %d episodes", len(p.Titles), len(meta.Episodes)), nil)
		}
		return nil, &meta, nil
	default:
		return nil, nil, invalid(fmt.Sprintf("unknown media type %q", p.MediaType), nil)
	}
}

// Job is one pipeline run. Titles and metadata are read-only once built.
type Job struct {
	ID             string
	Device         string
	Titles         []disc.Title
	Profile        string
	QualityProfile int
	RootFolder     string
	Kind           MediaKind
	Movie          *MovieMetadata
	TV             *TVMetadata
	Cancel         *CancelFlag
}

// NewJob resolves the requested title ids against a probed disc.
func NewJob(id string, params Params, d *disc.Disc) (*Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	movie, tv, _ := params.decodeMetadata()
	titles := make([]disc.Title, 0, len(params.Titles))
	for _, titleID := range params.Titles {
		title, ok := d.TitleByID(titleID)
		if !ok {
			return nil, services.Wrap(services.ErrNotFound, "pipeline", "titles", fmt.Sprintf("title %d not on disc", titleID), nil)
		}
		if strings.TrimSpace(title.OutputFileName) == "" {
			return nil, services.Wrap(services.ErrMalformed, "pipeline", "titles", fmt.Sprintf("title %d has no output file name", titleID), nil)
		}
		titles = append(titles, title)
	}
	return &Job{
		ID:             id,
		Device:         params.Device,
		Titles:         titles,
		Profile:        params.EncodingProfile,
		QualityProfile: params.QualityProfile,
		RootFolder:     params.RootFolder,
		Kind:           params.MediaType,
		Movie:          movie,
		TV:             tv,
		Cancel:         &CancelFlag{},
	}, nil
}

// DisplayTitle is the movie or series title.
func (j *Job) DisplayTitle() string {
	switch {
	case j.Movie != nil:
		return j.Movie.Title
	case j.TV != nil:
		return j.TV.Title
	default:
		return ""
	}
}

// TitleIDs returns the selected title ids in order.
func (j *Job) TitleIDs() []int {
	ids := make([]int, len(j.Titles))
	for i, t := range j.Titles {
		ids[i] = t.ID
	}
	return ids
}

// RippedFiles are the rip stage outputs, one per title.
func (j *Job) RippedFiles(outputDir string) []string {
	files := make([]string, len(j.Titles))
	for i, t := range j.Titles {
		files[i] = filepath.Join(outputDir, t.OutputFileName)
	}
	return files
}

// EncodedFiles are the encode stage outputs, one per title.
func (j *Job) EncodedFiles(outputDir string) []string {
	files := make([]string, len(j.Titles))
	for i, t := range j.Titles {
		files[i] = filepath.Join(outputDir, encodingDirName, t.OutputFileName)
	}
	return files
}

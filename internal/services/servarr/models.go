package servarr

// QualityProfile is a quality profile defined in Radarr or Sonarr.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a library root folder.
type RootFolder struct {
	ID        int    `json:"id"`
	Path      string `json:"path"`
	FreeSpace int64  `json:"freeSpace"`
}

// Tag is a Servarr tag.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Movie is the part of a Radarr movie record the pipeline needs.
type Movie struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	TMDBID int64  `json:"tmdbId"`
	Path   string `json:"path"`
}

// Series is the part of a Sonarr series record the pipeline needs.
type Series struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	TVDBID int64  `json:"tvdbId"`
	Path   string `json:"path"`
}

type createMovieBody struct {
	Title               string `json:"title"`
	TMDBID              int64  `json:"tmdbId"`
	QualityProfileID    int    `json:"qualityProfileId"`
	RootFolderPath      string `json:"rootFolderPath"`
	Monitored           bool   `json:"monitored"`
	MinimumAvailability string `json:"minimumAvailability"`
	Tags                []int  `json:"tags"`
}

type createSeriesBody struct {
	Title            string     `json:"title"`
	TVDBID           int64      `json:"tvdbId"`
	QualityProfileID int        `json:"qualityProfileId"`
	RootFolderPath   string     `json:"rootFolderPath"`
	SeriesType       string     `json:"seriesType"`
	SeasonFolder     bool       `json:"seasonFolder"`
	Monitored        bool       `json:"monitored"`
	Tags             []int      `json:"tags"`
	AddOptions       addOptions `json:"addOptions"`
}

type addOptions struct {
	Monitor string `json:"monitor"`
}

type movieRename struct {
	MovieID     int    `json:"movieId"`
	MovieFileID int    `json:"movieFileId"`
	NewPath     string `json:"newPath"`
}

type episodeRename struct {
	SeriesID      int    `json:"seriesId"`
	EpisodeFileID int    `json:"episodeFileId"`
	NewPath       string `json:"newPath"`
}

type commandBody struct {
	Name     string `json:"name"`
	MovieID  int    `json:"movieId,omitempty"`
	SeriesID int    `json:"seriesId,omitempty"`
	Files    []int  `json:"files,omitempty"`
}

type commandStatus struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

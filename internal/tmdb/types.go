package tmdb

// Response models the TMDB paginated search response.
type Response[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// MovieResult is a single movie search match.
type MovieResult struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	OriginalLanguage string  `json:"original_language"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
}

// TVResult is a single TV search match.
type TVResult struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	OriginalLanguage string  `json:"original_language"`
	FirstAirDate     string  `json:"first_air_date"`
	PosterPath       string  `json:"poster_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
}

// Movie holds movie details. Runtime is in minutes; zero means unknown.
type Movie struct {
	ID               int64   `json:"id"`
	IMDBID           string  `json:"imdb_id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	OriginalLanguage string  `json:"original_language"`
	ReleaseDate      string  `json:"release_date"`
	Runtime          int     `json:"runtime"`
	Status           string  `json:"status"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
}

// Episode describes a single TMDB episode entry. Runtime is in minutes.
type Episode struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	EpisodeNumber int     `json:"episode_number"`
	EpisodeType   string  `json:"episode_type"`
	SeasonNumber  int     `json:"season_number"`
	Runtime       int     `json:"runtime"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
}

// Season captures a TMDB season payload, episodes included.
type Season struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview"`
	AirDate      string    `json:"air_date"`
	SeasonNumber int       `json:"season_number"`
	PosterPath   string    `json:"poster_path"`
	VoteAverage  float64   `json:"vote_average"`
	Episodes     []Episode `json:"episodes"`
}

// Series holds TV show details. Seasons is filled by Client.TV with the full
// season payloads for seasons 1 through the season of the last aired episode.
type Series struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	Overview         string   `json:"overview"`
	Homepage         string   `json:"homepage"`
	Status           string   `json:"status"`
	FirstAirDate     string   `json:"first_air_date"`
	LastAirDate      string   `json:"last_air_date"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	Popularity       float64  `json:"popularity"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	NumberOfSeasons  int      `json:"number_of_seasons"`
	LastEpisodeToAir *Episode `json:"last_episode_to_air"`
	ExternalIDs      struct {
		TVDBID int64 `json:"tvdb_id"`
	} `json:"external_ids"`
	Seasons []Season `json:"seasons"`
}

// Episode returns the episode with the given season and number.
func (s *Series) Episode(season, number int) (Episode, bool) {
	if s == nil {
		return Episode{}, false
	}
	for _, se := range s.Seasons {
		if se.SeasonNumber != season {
			continue
		}
		for _, ep := range se.Episodes {
			if ep.EpisodeNumber == number {
				return ep, true
			}
		}
	}
	return Episode{}, false
}

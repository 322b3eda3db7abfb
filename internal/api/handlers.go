package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"ripline/internal/disc"
	"ripline/internal/pipeline"
	"ripline/internal/services"
)

const defaultHistoryLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearchMovie(w http.ResponseWriter, r *http.Request) {
	if s.deps.TMDB == nil {
		s.fail(w, r, "search movie", unconfigured("search movie", "tmdb not configured"))
		return
	}
	q := r.URL.Query()
	results, err := s.deps.TMDB.SearchMovie(r.Context(), q.Get("query"), q.Get("lang"))
	if err != nil {
		s.fail(w, r, "search movie", err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchTV(w http.ResponseWriter, r *http.Request) {
	if s.deps.TMDB == nil {
		s.fail(w, r, "search tv", unconfigured("search tv", "tmdb not configured"))
		return
	}
	q := r.URL.Query()
	results, err := s.deps.TMDB.SearchTV(r.Context(), q.Get("query"), q.Get("lang"))
	if err != nil {
		s.fail(w, r, "search tv", err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	if s.deps.TMDB == nil {
		s.fail(w, r, "movie details", unconfigured("movie details", "tmdb not configured"))
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.fail(w, r, "movie details", invalid("movie details", "invalid movie id"))
		return
	}
	movie, err := s.deps.TMDB.Movie(r.Context(), id, r.URL.Query().Get("lang"))
	if err != nil {
		s.fail(w, r, "movie details", err)
		return
	}
	s.writeJSON(w, http.StatusOK, movie)
}

func (s *Server) handleTVDetails(w http.ResponseWriter, r *http.Request) {
	if s.deps.TMDB == nil {
		s.fail(w, r, "tv details", unconfigured("tv details", "tmdb not configured"))
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.fail(w, r, "tv details", invalid("tv details", "invalid show id"))
		return
	}
	series, err := s.deps.TMDB.TV(r.Context(), id, r.URL.Query().Get("lang"))
	if err != nil {
		s.fail(w, r, "tv details", err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleEncodingPresets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		s.fail(w, r, "encoding presets", unconfigured("encoding presets", "encoding profiles not configured"))
		return
	}
	profiles, err := s.deps.Profiles()
	if err != nil {
		s.fail(w, r, "encoding presets", err)
		return
	}
	s.writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.deps.Drives.Devices(r.Context())
	if err != nil {
		s.fail(w, r, "devices", err)
		return
	}
	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleMovieTitles(w http.ResponseWriter, r *http.Request) {
	const op = "movie titles"
	q := r.URL.Query()
	device, tmdbID, err := deviceAndTMDBID(op, q)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	if s.deps.TMDB == nil {
		s.fail(w, r, op, unconfigured(op, "tmdb not configured"))
		return
	}
	movie, err := s.deps.TMDB.Movie(r.Context(), tmdbID, q.Get("lang"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.writeFilteredTitles(w, r, op, device, disc.RuntimesFromMinutes(movie.Runtime), q)
}

func (s *Server) handleTVTitles(w http.ResponseWriter, r *http.Request) {
	const op = "tv titles"
	q := r.URL.Query()
	device, tmdbID, err := deviceAndTMDBID(op, q)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	season, err := strconv.Atoi(strings.TrimSpace(q.Get("season")))
	if err != nil || season < 0 {
		s.fail(w, r, op, invalid(op, "season must be a non-negative number"))
		return
	}
	episodes, err := pipeline.ParseIntList(strings.Join(q["episodes"], ","))
	if err != nil {
		s.fail(w, r, op, services.Wrap(services.ErrValidation, "api", op, "episodes", err))
		return
	}
	if len(episodes) == 0 {
		s.fail(w, r, op, invalid(op, "at least one episode required"))
		return
	}
	if s.deps.TMDB == nil {
		s.fail(w, r, op, unconfigured(op, "tmdb not configured"))
		return
	}
	series, err := s.deps.TMDB.TV(r.Context(), tmdbID, q.Get("lang"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	minutes := make([]int, 0, len(episodes))
	for _, number := range episodes {
		episode, ok := series.Episode(season, number)
		if !ok {
			s.fail(w, r, op, services.Wrap(services.ErrNotFound, "api", op, "unknown episode S"+strconv.Itoa(season)+"E"+strconv.Itoa(number), nil))
			return
		}
		minutes = append(minutes, episode.Runtime)
	}
	s.writeFilteredTitles(w, r, op, device, disc.RuntimesFromMinutes(minutes...), q)
}

func (s *Server) writeFilteredTitles(w http.ResponseWriter, r *http.Request, op, device string, runtimes []int, q url.Values) {
	probed, err := s.deps.Drives.Probe(r.Context(), device)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.writeJSON(w, http.StatusOK, disc.SelectFeatures(probed, runtimes, s.languages(q)))
}

func (s *Server) languages(q url.Values) []string {
	var out []string
	for _, value := range q["langs"] {
		for _, code := range strings.Split(value, ",") {
			if code = strings.TrimSpace(code); code != "" {
				out = append(out, code)
			}
		}
	}
	if len(out) == 0 {
		return s.opts.Languages
	}
	return out
}

func deviceAndTMDBID(op string, q url.Values) (string, int64, error) {
	device := strings.TrimSpace(q.Get("device"))
	if device == "" {
		return "", 0, invalid(op, "device required")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(q.Get("tmdb_id")), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, invalid(op, "tmdb_id must be a positive number")
	}
	return device, id, nil
}

func (s *Server) library(op string, q url.Values) (Library, error) {
	kind, err := pipeline.ParseMediaKind(q.Get("media_type"))
	if err != nil {
		return nil, err
	}
	var lib Library
	name := "radarr"
	if kind == pipeline.MediaMovie {
		lib = s.deps.Movies
	} else {
		lib, name = s.deps.Series, "sonarr"
	}
	if lib == nil {
		return nil, unconfigured(op, name+" not configured")
	}
	return lib, nil
}

func (s *Server) handleQualityProfiles(w http.ResponseWriter, r *http.Request) {
	lib, err := s.library("quality profiles", r.URL.Query())
	if err != nil {
		s.fail(w, r, "quality profiles", err)
		return
	}
	profiles, err := lib.QualityProfiles(r.Context())
	if err != nil {
		s.fail(w, r, "quality profiles", err)
		return
	}
	s.writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleRootFolders(w http.ResponseWriter, r *http.Request) {
	lib, err := s.library("root folders", r.URL.Query())
	if err != nil {
		s.fail(w, r, "root folders", err)
		return
	}
	folders, err := lib.RootFolders(r.Context())
	if err != nil {
		s.fail(w, r, "root folders", err)
		return
	}
	s.writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.fail(w, r, "history", unconfigured("history", "job history disabled"))
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(w, r, "history", invalid("history", "limit must be a positive number"))
			return
		}
		limit = n
	}
	records, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, "history", err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

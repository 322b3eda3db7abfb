// Package tmdb provides the TMDB v3 client used to look up titles and the
// runtimes that drive main-feature selection.
//
// Requests authenticate with either a v4 read access token (sent as a bearer
// header) or a classic v3 api key (sent as the api_key query parameter). Search
// always excludes adult results. TV details are expanded with every aired
// season so callers can read per-episode runtimes without extra round trips.
package tmdb

// Package api serves ripline's HTTP surface: TMDB lookups, drive and title
// discovery, encoding profiles, Radarr/Sonarr listings, job history and the
// websocket endpoint that runs a rip job.
//
// # Routing
//
// Routes are registered on a gorilla/mux router under /api, mirroring the
// upstream services they front:
//
//	/api/tmdb/...        search and detail lookups
//	/api/handbrake/...   encoding profiles
//	/api/makemkv/...     devices, filtered titles, rip websocket
//	/api/management/...  quality profiles and root folders
//	/api/history         recent jobs
//
// /healthz and /metrics sit outside /api and skip request metrics.
//
// # Errors
//
// Every failure is answered with {"error": "..."}. The status is derived from
// the services error kind: not_found maps to 404, validation to 400,
// configuration to 503, timeout to 504 and external tool or service failures
// to 502.
//
// # Rip websocket
//
// Job parameters are validated before the upgrade so a bad request gets a
// plain JSON error. After the upgrade the connection belongs to the pipeline
// runner until the job ends, then the handler closes it.
package api

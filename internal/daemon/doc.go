// Package daemon coordinates the long-running riplined process.
//
// It serves the HTTP API, announces disc insertions picked up by the udev
// netlink monitor, and holds a flock so only one instance drives the
// optical hardware. Startup logs dependency and preflight results but never
// refuses to start on them: a missing Jellyfin should not block ripping.
//
// Jobs themselves run inside the API's websocket handlers; the daemon only
// owns their base context so stopping it cancels every running job.
package daemon

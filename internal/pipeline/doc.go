// Package pipeline runs one rip → encode → upload job over a client
// connection.
//
// A Runner builds the Job from a fresh disc probe, registers the title with
// Radarr or Sonarr to learn its library path, then drives the three stages
// in order. Progress from each stage is forwarded to the connection through a
// single writer goroutine so events reach the client in emission order. The
// connection's receive side is watched for a literal "cancel"; when it
// arrives the shared CancelFlag is set, partial outputs are deleted, and the
// remaining stages are skipped without reporting an error.
//
// After a successful upload the library item is rescanned and renamed and a
// Jellyfin refresh is fired without waiting for it.
package pipeline

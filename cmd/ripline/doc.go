// Command ripline is the operator CLI for a running riplined daemon.
//
// Query commands (devices, titles, profiles, quality-profiles, root-folders,
// history, search) call the daemon's HTTP API and print tables or, with
// --json, the raw response. The rip command opens the job websocket, renders
// progress for each stage and sends a cancel request on Ctrl-C. status and
// test-notify run locally against the configuration file.
package main

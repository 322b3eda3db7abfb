// Package preflight provides readiness checks for the binaries, directories
// and services ripline depends on.
//
// These checks run in two contexts:
//   - riplined logs RunAll and CheckSystemDeps at startup so a broken
//     install is visible before the first job.
//   - The CLI "ripline status" command renders the same results as a table.
//
// Each service check is gated by its config section: unconfigured services
// are skipped.
package preflight

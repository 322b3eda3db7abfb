// Package history keeps an audit log of pipeline jobs in SQLite.
//
// A row is written when a job starts and updated when it ends. The table is
// read by the API and CLI only; nothing resumes a job from it.
package history

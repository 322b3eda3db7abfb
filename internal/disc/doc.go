// Package disc models what MakeMKV reports about an optical disc and turns
// its robot-mode output into that model.
//
// ParseLine tokenizes one robot-mode record, BuildDisc folds CINFO, TINFO,
// and SINFO records into a Disc, and SelectFeatures narrows a Disc to the
// titles that look like the main feature. The drive helpers query tray state
// directly so the daemon can wait for a freshly inserted disc to spin up.
package disc

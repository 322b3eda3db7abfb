package preflight

import (
	"context"

	"ripline/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.HandBrake.ProfilesPath != "" && cfg.Encoding.Engine == config.EngineHandBrake {
		results = append(results, CheckDirectoryAccess("Encoding profiles", cfg.HandBrake.ProfilesPath))
	}

	if cfg.Radarr.URL != "" {
		results = append(results, CheckServarr(ctx, "Radarr", cfg.Radarr))
	}
	if cfg.Sonarr.URL != "" {
		results = append(results, CheckServarr(ctx, "Sonarr", cfg.Sonarr))
	}
	if cfg.Jellyfin.Enabled {
		results = append(results, CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

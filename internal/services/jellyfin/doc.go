// Package jellyfin triggers Jellyfin library rescans once uploaded media has
// been registered and renamed.
//
// NewConfiguredService returns a no-op service when the integration is
// disabled or missing credentials, so callers never need to branch on
// configuration.
package jellyfin

// Package servarr talks to the Radarr and Sonarr v3 APIs.
//
// Both applications share the same request envelope (X-Api-Key auth, JSON
// bodies, command/status polling), implemented by Client. Radarr and Sonarr
// wrap it with the create-or-fetch, rescan and rename flows used after an
// upload lands in the library.
package servarr

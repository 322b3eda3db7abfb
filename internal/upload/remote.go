package upload

import (
	"fmt"
	"path"
	"path/filepath"
)

// QualityTag prefixes uploaded file names so Radarr and Sonarr import them
// with the right quality.
const QualityTag = "[Bluray-1080p]"

// MoviePath is the remote path for a movie file inside the Radarr movie folder.
func MoviePath(movieDir, localFile string) string {
	return path.Join(movieDir, fmt.Sprintf("%s_%s", QualityTag, filepath.Base(localFile)))
}

// EpisodePath is the remote path for one episode file inside the Sonarr
// series folder.
func EpisodePath(seriesDir string, season, episode int, localFile string) string {
	seasonDir := fmt.Sprintf("Season %02d", season)
	name := fmt.Sprintf("%s_S%02dE%02d_%s", QualityTag, season, episode, filepath.Base(localFile))
	return path.Join(seriesDir, seasonDir, name)
}

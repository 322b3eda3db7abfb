// Package upload copies encoded files to the media server over SFTP.
//
// Every Upload call opens one SSH session, streams each file in 128 KiB
// chunks, and reports progress through a progress.Tracker. Remote paths
// follow the Radarr/Sonarr import layout built by MoviePath and EpisodePath.
package upload

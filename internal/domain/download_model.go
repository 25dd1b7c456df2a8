package domain

import "time"

// ViaDirect marks a download that bypassed the pool and went out over the
// process's own address.
const ViaDirect = "direct"

// DownloadRecord is the snapshot of the most recently completed download.
// A single instance exists per process and is overwritten on every success.
type DownloadRecord struct {
	Filename     string    `json:"filename"`
	VersionName  string    `json:"version_name"`
	Loaders      []string  `json:"loaders"`
	GameVersions []string  `json:"game_versions"`
	Size         int64     `json:"size"`
	Via          string    `json:"via"`
	CompletedAt  time.Time `json:"completed_at"`
}

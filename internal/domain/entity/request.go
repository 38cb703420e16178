package entity

import (
	"path/filepath"
	"strings"
)

type SyncMode string

const (
	// SyncModeMovie matches one audio file against one or more video files.
	SyncModeMovie SyncMode = "movie"
	// SyncModeSeries pairs files from a video folder and an audio folder.
	SyncModeSeries SyncMode = "series"
)

// DefaultSegmentDuration is applied when a request omits segment_duration.
const DefaultSegmentDuration = 300.0

// SyncRequest is the job description written once to the worker's stdin.
// Field names are fixed by the worker's input protocol.
type SyncRequest struct {
	Mode            SyncMode `json:"mode"`
	VideoFolder     string   `json:"video_folder,omitempty"`
	AudioFolder     string   `json:"audio_folder,omitempty"`
	AudioFile       string   `json:"audio_file,omitempty"`
	VideoFiles      []string `json:"video_files,omitempty"`
	SegmentDuration float64  `json:"segment_duration"`
	MatchPattern    string   `json:"match_pattern,omitempty"`
}

// videoExtensions are the containers considered video input in movie mode.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
	".mov":  {},
}

// IsVideoFile reports whether the path has a recognized video extension.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := videoExtensions[ext]
	return ok
}

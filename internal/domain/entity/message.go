package entity

import "github.com/google/uuid"

// SyncJobMessage is the inbound message from the sync.jobs queue. Media is
// referenced by object key; the worker pipeline downloads it before running.
type SyncJobMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	UserID          string    `json:"user_id"`
	Mode            SyncMode  `json:"mode"`
	VideoKeys       []string  `json:"video_keys,omitempty"`
	AudioKey        string    `json:"audio_key,omitempty"`
	AudioKeys       []string  `json:"audio_keys,omitempty"`
	SegmentDuration float64   `json:"segment_duration,omitempty"`
	MatchPattern    string    `json:"match_pattern,omitempty"`
	UserEmail       string    `json:"user_email,omitempty"`
}

// SyncStatusMessage is the outbound message published to the sync.status queue.
type SyncStatusMessage struct {
	JobID        uuid.UUID    `json:"job_id"`
	UserID       string       `json:"user_id"`
	Status       JobStatus    `json:"status"`
	Mode         SyncMode     `json:"mode"`
	PairCount    int          `json:"pair_count,omitempty"`
	Results      []SyncResult `json:"results,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Attempt      int          `json:"attempt"`
	MaxAttempts  int          `json:"max_attempts"`
}

// CancelMessage asks the service to stop the currently running job. The
// request is idempotent; a stale or unmatched job id is acknowledged and
// ignored.
type CancelMessage struct {
	JobID uuid.UUID `json:"job_id,omitempty"`
}

package entity

// SyncResult is the per file-pair outcome of a synchronization job. Delays
// are in the worker's native time unit (milliseconds); a per-item failure is
// carried in Error and does not stop the batch.
//
// The JSON shape mirrors the worker's result lines exactly, so the same type
// decodes both incremental "result" events and the final "done" list.
type SyncResult struct {
	VideoFile  string   `json:"videoFile"`
	AudioFile  string   `json:"audioFile"`
	StartDelay *float64 `json:"startDelay"`
	EndDelay   *float64 `json:"endDelay"`
	Error      *string  `json:"error"`
	ElapsedMs  *int64   `json:"elapsed_ms"`
}

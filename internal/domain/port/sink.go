package port

import "github.com/AdkHex/AudioSyncMaster/internal/domain/entity"

// EventSink receives decoded bridge events, one notification per event in
// arrival order. OnLog additionally carries forwarded stderr lines and
// internal diagnostics (decode failures, locator strategy, spawn failures).
//
// Delivery is fire-and-forget from the session's point of view: a sink must
// not block indefinitely, and its failures never abort the job.
type EventSink interface {
	OnProgress(ev entity.ProgressEvent)
	OnFileStart(ev entity.FileStartEvent)
	OnFileEnd(ev entity.FileEndEvent)
	OnFileProgress(ev entity.FileProgressEvent)
	OnResult(ev entity.ResultEvent)
	OnDone(ev entity.DoneEvent)
	OnLog(message string)
}

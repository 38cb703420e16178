package entity

// EventType is the tag discriminator on each worker stdout line.
type EventType string

const (
	EventTypeProgress     EventType = "progress"
	EventTypeFileStart    EventType = "file_start"
	EventTypeFileEnd      EventType = "file_end"
	EventTypeFileProgress EventType = "file_progress"
	EventTypeLog          EventType = "log"
	EventTypeResult       EventType = "result"
	EventTypeDone         EventType = "done"
)

// BridgeEvent is one decoded unit of the worker's output protocol.
type BridgeEvent interface {
	Type() EventType
}

// ProgressEvent reports batch-level progress.
type ProgressEvent struct {
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Current   *string `json:"current"`
}

// FileStartEvent marks an item beginning processing.
type FileStartEvent struct {
	File string `json:"file"`
}

// FileEndEvent marks an item finishing, with its elapsed wall time.
type FileEndEvent struct {
	File      string `json:"file"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// FileProgressEvent reports percent-complete for one item, in [0,100].
type FileProgressEvent struct {
	File    string `json:"file"`
	Percent int    `json:"percent"`
}

// LogEvent carries free-text diagnostics from the worker.
type LogEvent struct {
	Message string `json:"message"`
}

// ResultEvent delivers one completed comparison incrementally.
type ResultEvent struct {
	SyncResult
}

// DoneEvent carries the authoritative final result list. It supersedes any
// results accumulated incrementally.
type DoneEvent struct {
	Results []SyncResult `json:"results"`
}

func (ProgressEvent) Type() EventType     { return EventTypeProgress }
func (FileStartEvent) Type() EventType    { return EventTypeFileStart }
func (FileEndEvent) Type() EventType      { return EventTypeFileEnd }
func (FileProgressEvent) Type() EventType { return EventTypeFileProgress }
func (LogEvent) Type() EventType          { return EventTypeLog }
func (ResultEvent) Type() EventType       { return EventTypeResult }
func (DoneEvent) Type() EventType         { return EventTypeDone }

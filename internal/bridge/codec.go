package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
)

// ErrBlankLine marks a line skipped silently, as opposed to a decode failure.
var ErrBlankLine = fmt.Errorf("blank line")

// DecodeError reports a line that could not be decoded as any known event
// variant. Recoverable: the session logs it and the stream continues.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid bridge message %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeRequest serializes the job request to the worker's input encoding.
func EncodeRequest(req entity.SyncRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}
	return payload, nil
}

// DecodeEvent decodes one worker stdout line into a bridge event by
// tag-dispatch on the "type" discriminator. Surrounding whitespace is
// trimmed; blank lines return ErrBlankLine. An unknown tag or invalid JSON
// returns a *DecodeError.
func DecodeEvent(line string) (entity.BridgeEvent, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrBlankLine
	}

	var envelope struct {
		Type entity.EventType `json:"type"`
	}
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}

	var (
		ev  entity.BridgeEvent
		err error
	)
	switch envelope.Type {
	case entity.EventTypeProgress:
		ev, err = decodeAs[entity.ProgressEvent](line)
	case entity.EventTypeFileStart:
		ev, err = decodeAs[entity.FileStartEvent](line)
	case entity.EventTypeFileEnd:
		ev, err = decodeAs[entity.FileEndEvent](line)
	case entity.EventTypeFileProgress:
		ev, err = decodeAs[entity.FileProgressEvent](line)
	case entity.EventTypeLog:
		ev, err = decodeAs[entity.LogEvent](line)
	case entity.EventTypeResult:
		ev, err = decodeAs[entity.ResultEvent](line)
	case entity.EventTypeDone:
		ev, err = decodeAs[entity.DoneEvent](line)
	default:
		return nil, &DecodeError{Line: line, Err: fmt.Errorf("unknown event type %q", envelope.Type)}
	}
	if err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}
	return ev, nil
}

func decodeAs[T entity.BridgeEvent](line string) (entity.BridgeEvent, error) {
	var ev T
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

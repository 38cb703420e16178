package port

import (
	"context"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
)

// SyncRunner drives one worker process for one job and returns the final
// result list. A canceled job is reported as a distinct error, never as a
// generic failure.
type SyncRunner interface {
	Run(ctx context.Context, req entity.SyncRequest, sink EventSink) ([]entity.SyncResult, error)
}

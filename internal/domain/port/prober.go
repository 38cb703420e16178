package port

import "context"

type MediaProbe struct {
	HasAudio bool
	HasVideo bool
	Duration *float64
}

// MediaProber inspects a media file on disk. A probe failure is a hard error
// for that single file only.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*MediaProbe, error)
}

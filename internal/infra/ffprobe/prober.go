package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/port"
)

// Prober inspects media files by invoking ffprobe and parsing its JSON
// output. A probe failure is a hard error for that single file, never for
// the job as a whole.
type Prober struct {
	binary string
}

func NewProber() *Prober {
	return &Prober{binary: "ffprobe"}
}

func (p *Prober) Probe(ctx context.Context, path string) (*port.MediaProbe, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_streams",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeOutput(output)
}

type probePayload struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(output []byte) (*port.MediaProbe, error) {
	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	probe := &port.MediaProbe{}
	for _, stream := range payload.Streams {
		switch stream.CodecType {
		case "audio":
			probe.HasAudio = true
		case "video":
			probe.HasVideo = true
		}
	}

	if payload.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil {
			probe.Duration = &duration
		}
	}
	return probe, nil
}

package bridge

import (
	"encoding/json"
	"testing"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	req := entity.SyncRequest{
		Mode:            entity.SyncModeMovie,
		VideoFiles:      []string{"a.mp4"},
		AudioFile:       "a.wav",
		SegmentDuration: 5.0,
	}

	payload, err := EncodeRequest(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "movie", decoded["mode"])
	assert.Equal(t, "a.wav", decoded["audio_file"])
	assert.Equal(t, []any{"a.mp4"}, decoded["video_files"])
	assert.Equal(t, 5.0, decoded["segment_duration"])
	assert.NotContains(t, decoded, "video_folder")
	assert.NotContains(t, decoded, "match_pattern")
}

func TestDecodeEventVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
		want entity.BridgeEvent
	}{
		{
			name: "progress",
			line: `{"type":"progress","processed":2,"total":5,"current":"ep01.mkv"}`,
			want: entity.ProgressEvent{Processed: 2, Total: 5, Current: ptr("ep01.mkv")},
		},
		{
			name: "progress without current",
			line: `{"type":"progress","processed":1,"total":1}`,
			want: entity.ProgressEvent{Processed: 1, Total: 1},
		},
		{
			name: "file_start",
			line: `{"type":"file_start","file":"a.mp4"}`,
			want: entity.FileStartEvent{File: "a.mp4"},
		},
		{
			name: "file_end",
			line: `{"type":"file_end","file":"a.mp4","elapsed_ms":842}`,
			want: entity.FileEndEvent{File: "a.mp4", ElapsedMs: 842},
		},
		{
			name: "file_progress",
			line: `{"type":"file_progress","file":"a.mp4","percent":50}`,
			want: entity.FileProgressEvent{File: "a.mp4", Percent: 50},
		},
		{
			name: "log",
			line: `{"type":"log","message":"Movie mode: 1 video files queued."}`,
			want: entity.LogEvent{Message: "Movie mode: 1 video files queued."},
		},
		{
			name: "surrounding whitespace trimmed",
			line: "  {\"type\":\"file_start\",\"file\":\"b.mkv\"}\r\n",
			want: entity.FileStartEvent{File: "b.mkv"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := DecodeEvent(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestDecodeResultEvent(t *testing.T) {
	line := `{"type":"result","videoFile":"a.mp4","audioFile":"a.wav","startDelay":120.5,"endDelay":-30.0,"elapsed_ms":842}`

	ev, err := DecodeEvent(line)
	require.NoError(t, err)

	res, ok := ev.(entity.ResultEvent)
	require.True(t, ok)
	assert.Equal(t, "a.mp4", res.VideoFile)
	assert.Equal(t, "a.wav", res.AudioFile)
	require.NotNil(t, res.StartDelay)
	assert.Equal(t, 120.5, *res.StartDelay)
	require.NotNil(t, res.EndDelay)
	assert.Equal(t, -30.0, *res.EndDelay)
	require.NotNil(t, res.ElapsedMs)
	assert.Equal(t, int64(842), *res.ElapsedMs)
	assert.Nil(t, res.Error)
}

func TestDecodeDoneEvent(t *testing.T) {
	line := `{"type":"done","results":[{"videoFile":"a.mp4","audioFile":"a.wav","startDelay":120.5,"endDelay":-30.0,"elapsed_ms":842}]}`

	ev, err := DecodeEvent(line)
	require.NoError(t, err)

	done, ok := ev.(entity.DoneEvent)
	require.True(t, ok)
	require.Len(t, done.Results, 1)
	assert.Equal(t, "a.mp4", done.Results[0].VideoFile)
	require.NotNil(t, done.Results[0].ElapsedMs)
	assert.Equal(t, int64(842), *done.Results[0].ElapsedMs)
}

func TestDecodeBlankLines(t *testing.T) {
	for _, line := range []string{"", "   ", "\t\r\n"} {
		_, err := DecodeEvent(line)
		assert.ErrorIs(t, err, ErrBlankLine)
	}
}

func TestDecodeMalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", "not json"},
		{"unknown tag", `{"type":"telemetry","x":1}`},
		{"missing tag", `{"file":"a.mp4"}`},
		{"wrong field type", `{"type":"file_end","file":"a.mp4","elapsed_ms":"soon"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := DecodeEvent(tc.line)
			assert.Nil(t, ev)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Contains(t, decodeErr.Error(), "invalid bridge message")
		})
	}
}

func ptr[T any](v T) *T { return &v }

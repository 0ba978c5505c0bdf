package httpexec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSSE_UnnamedDataFrames(t *testing.T) {
	raw := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\ndata: [DONE]\n\n"
	var frames []sseFrame
	err := scanSSE(strings.NewReader(raw), func(f sseFrame) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, `{"a":1}`, string(frames[0].data))
	assert.Equal(t, `{"a":2}`, string(frames[1].data))
	assert.True(t, frames[2].done)
}

func TestScanSSE_NamedEventFrames(t *testing.T) {
	raw := "event: message_start\ndata: {\"type\":\"message_start\"}\n\n" +
		"event: ping\ndata: {}\n\n"
	var frames []sseFrame
	err := scanSSE(strings.NewReader(raw), func(f sseFrame) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "message_start", frames[0].event)
	assert.Equal(t, "ping", frames[1].event)
}

func TestScanSSE_SkipsComments(t *testing.T) {
	raw := ": keep-alive\n\ndata: {\"x\":1}\n\n"
	var frames []sseFrame
	err := scanSSE(strings.NewReader(raw), func(f sseFrame) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, `{"x":1}`, string(frames[0].data))
}

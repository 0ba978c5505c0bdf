// Package streamconv incrementally maps provider SSE frames into unified
// ChatStreamEvent values, with stateful per-stream boundary tracking (§4.4).
package streamconv

import "github.com/siumai/siumai"

// Frame is one parsed SSE frame: an optional named event plus its data
// payload. Anthropic names events (message_start, content_block_delta, ...);
// OpenAI-family and Gemini frames carry only `data:` lines, so Event is
// empty and the frame's own JSON shape discriminates.
type Frame struct {
	Event string
	Data  []byte
}

// Converter is a stateful, single-stream SSE-frame-to-unified-event mapper.
// A new Converter is constructed per HTTP stream; it must never be shared
// across streams (§9's "single-reader lock on the stream object").
type Converter interface {
	// Convert consumes one frame and returns zero or more unified events.
	Convert(frame Frame) ([]siumai.ChatStreamEvent, error)

	// Finalize is called when the underlying transport closes without a
	// clean terminal frame (e.g. mid-tool-call). Per §8's boundary
	// behavior, this must produce a synthetic StreamEnd, not an error.
	Finalize() []siumai.ChatStreamEvent
}

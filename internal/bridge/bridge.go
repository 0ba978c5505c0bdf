// Package bridge re-encodes a unified ChatStreamEvent sequence as a
// provider-shaped SSE byte stream (§4.10). It owns its own per-stream
// state and maps unified events into the target dialect's wire shapes,
// preserving tool-call ids across re-encoding.
package bridge

import (
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/siumai/siumai"
)

// Target names the provider-shaped dialect the bridge re-encodes into.
type Target int

const (
	TargetOpenAIChat Target = iota
	TargetOpenAIResponses
	TargetAnthropic
)

// UnsupportedPartPolicy controls what happens when the unified event has no
// equivalent in the target dialect (e.g. a tool-result in Chat Completions,
// which has no assistant-visible tool-result event at all).
type UnsupportedPartPolicy int

const (
	PolicyAsText UnsupportedPartPolicy = iota
	PolicySkip
)

type Config struct {
	Target Target
	Policy UnsupportedPartPolicy
}

type toolState struct {
	index     int
	name      string
	startSent bool
}

// Bridge re-encodes one unified stream into one target dialect's SSE
// frames. Not safe for concurrent use by multiple goroutines; one Bridge
// per in-flight stream.
type Bridge struct {
	cfg Config

	started      bool
	messageID    string
	model        string
	textBlockOpen bool
	nextBlockIdx int

	toolsByID   map[string]*toolState
	nextToolIdx int
}

func New(cfg Config) *Bridge {
	return &Bridge{cfg: cfg, toolsByID: make(map[string]*toolState)}
}

// Encode converts one unified event into zero or more raw SSE frames
// ("event: ...\ndata: ...\n\n" or bare "data: ...\n\n", matching the target
// dialect's own convention).
func (b *Bridge) Encode(event siumai.ChatStreamEvent) ([][]byte, error) {
	switch b.cfg.Target {
	case TargetAnthropic:
		return b.encodeAnthropic(event)
	case TargetOpenAIResponses:
		return b.encodeResponses(event)
	default:
		return b.encodeChatCompletions(event)
	}
}

func formatSSE(eventType string, jsonPayload string) []byte {
	if eventType == "" {
		return []byte(fmt.Sprintf("data: %s\n\n", jsonPayload))
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, jsonPayload))
}

func doneFrame() []byte { return []byte("data: [DONE]\n\n") }

// ---- Anthropic Messages SSE ----

func (b *Bridge) encodeAnthropic(event siumai.ChatStreamEvent) ([][]byte, error) {
	switch e := event.(type) {
	case siumai.StreamStartEvent:
		b.messageID, b.model = e.Metadata.ID, e.Metadata.Model
		payload := `{"type":"message_start","message":{"id":"","type":"message","role":"assistant","model":"","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":0,"output_tokens":0}}}`
		payload, _ = sjson.Set(payload, "message.id", b.messageID)
		payload, _ = sjson.Set(payload, "message.model", b.model)
		b.started = true
		return [][]byte{formatSSE("message_start", payload)}, nil

	case siumai.ContentDeltaEvent:
		var frames [][]byte
		if !b.textBlockOpen {
			start := fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"text","text":""}}`, e.Index)
			frames = append(frames, formatSSE("content_block_start", start))
			b.textBlockOpen = true
		}
		delta := `{"type":"content_block_delta","delta":{"type":"text_delta","text":""}}`
		delta, _ = sjson.Set(delta, "index", e.Index)
		delta, _ = sjson.Set(delta, "delta.text", e.Delta)
		frames = append(frames, formatSSE("content_block_delta", delta))
		return frames, nil

	case siumai.ThinkingDeltaEvent:
		delta := `{"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":""}}`
		delta, _ = sjson.Set(delta, "delta.thinking", e.Delta)
		return [][]byte{formatSSE("content_block_delta", delta)}, nil

	case siumai.ToolCallDeltaEvent:
		var frames [][]byte
		ts, ok := b.toolsByID[e.ID]
		if !ok {
			ts = &toolState{index: b.nextBlockIndex(), name: e.FunctionName}
			b.toolsByID[e.ID] = ts
		}
		if !ts.startSent {
			start := `{"type":"content_block_start","content_block":{"type":"tool_use","id":"","name":""}}`
			start, _ = sjson.Set(start, "index", ts.index)
			start, _ = sjson.Set(start, "content_block.id", e.ID)
			start, _ = sjson.Set(start, "content_block.name", e.FunctionName)
			frames = append(frames, formatSSE("content_block_start", start))
			ts.startSent = true
		}
		if e.ArgumentsDelta != "" {
			delta := `{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":""}}`
			delta, _ = sjson.Set(delta, "index", ts.index)
			delta, _ = sjson.Set(delta, "delta.partial_json", e.ArgumentsDelta)
			frames = append(frames, formatSSE("content_block_delta", delta))
		}
		return frames, nil

	case siumai.StreamEndEvent:
		stop := anthropicStopReason(e.Response.FinishReason)
		msgDelta := `{"type":"message_delta","delta":{"stop_reason":null},"usage":{"output_tokens":0}}`
		msgDelta, _ = sjson.Set(msgDelta, "delta.stop_reason", stop)
		if e.Response.Usage != nil {
			msgDelta, _ = sjson.Set(msgDelta, "usage.output_tokens", e.Response.Usage.CompletionTokens)
		}
		stopFrame := formatSSE("message_stop", `{"type":"message_stop"}`)
		return [][]byte{formatSSE("message_delta", msgDelta), stopFrame}, nil

	case siumai.ErrorEvent:
		payload := `{"type":"error","error":{"type":"api_error","message":""}}`
		payload, _ = sjson.Set(payload, "error.message", e.Err.Error())
		return [][]byte{formatSSE("error", payload)}, nil

	default:
		return b.unsupported(event)
	}
}

func anthropicStopReason(fr *siumai.FinishReason) string {
	if fr == nil {
		return "end_turn"
	}
	switch fr.Kind {
	case siumai.FinishToolCalls:
		return "tool_use"
	case siumai.FinishLength:
		return "max_tokens"
	default:
		return "end_turn"
	}
}

func (b *Bridge) nextBlockIndex() int {
	idx := b.nextBlockIdx
	b.nextBlockIdx++
	return idx
}

// ---- OpenAI Chat Completions SSE ----

func (b *Bridge) encodeChatCompletions(event siumai.ChatStreamEvent) ([][]byte, error) {
	switch e := event.(type) {
	case siumai.StreamStartEvent:
		b.messageID, b.model = e.Metadata.ID, e.Metadata.Model
		b.started = true
		chunk := b.chatChunkSkeleton()
		chunk, _ = sjson.Set(chunk, "choices.0.delta.role", "assistant")
		return [][]byte{formatSSE("", chunk)}, nil

	case siumai.ContentDeltaEvent:
		chunk := b.chatChunkSkeleton()
		chunk, _ = sjson.Set(chunk, "choices.0.delta.content", e.Delta)
		return [][]byte{formatSSE("", chunk)}, nil

	case siumai.ToolCallDeltaEvent:
		ts, ok := b.toolsByID[e.ID]
		if !ok {
			ts = &toolState{index: b.nextToolIdx, name: e.FunctionName}
			b.toolsByID[e.ID] = ts
			b.nextToolIdx++
		}
		chunk := b.chatChunkSkeleton()
		chunk, _ = sjson.Set(chunk, "choices.0.delta.tool_calls.0.index", ts.index)
		chunk, _ = sjson.Set(chunk, "choices.0.delta.tool_calls.0.id", e.ID)
		chunk, _ = sjson.Set(chunk, "choices.0.delta.tool_calls.0.type", "function")
		if e.FunctionName != "" {
			chunk, _ = sjson.Set(chunk, "choices.0.delta.tool_calls.0.function.name", e.FunctionName)
		}
		chunk, _ = sjson.Set(chunk, "choices.0.delta.tool_calls.0.function.arguments", e.ArgumentsDelta)
		return [][]byte{formatSSE("", chunk)}, nil

	case siumai.ThinkingDeltaEvent:
		chunk := b.chatChunkSkeleton()
		chunk, _ = sjson.Set(chunk, "choices.0.delta.reasoning_content", e.Delta)
		return [][]byte{formatSSE("", chunk)}, nil

	case siumai.StreamEndEvent:
		chunk := b.chatChunkSkeleton()
		chunk, _ = sjson.Set(chunk, "choices.0.delta", map[string]any{})
		chunk, _ = sjson.Set(chunk, "choices.0.finish_reason", chatFinishReason(e.Response.FinishReason))
		if e.Response.Usage != nil {
			chunk, _ = sjson.Set(chunk, "usage.prompt_tokens", e.Response.Usage.PromptTokens)
			chunk, _ = sjson.Set(chunk, "usage.completion_tokens", e.Response.Usage.CompletionTokens)
			chunk, _ = sjson.Set(chunk, "usage.total_tokens", e.Response.Usage.TotalTokens)
		}
		return [][]byte{formatSSE("", chunk), doneFrame()}, nil

	case siumai.ErrorEvent:
		payload := `{"error":{"message":"","type":"api_error"}}`
		payload, _ = sjson.Set(payload, "error.message", e.Err.Error())
		return [][]byte{formatSSE("", payload)}, nil

	default:
		return b.unsupported(event)
	}
}

func (b *Bridge) chatChunkSkeleton() string {
	chunk := `{"object":"chat.completion.chunk","id":"","model":"","choices":[{"index":0,"delta":{}}]}`
	chunk, _ = sjson.Set(chunk, "id", b.messageID)
	chunk, _ = sjson.Set(chunk, "model", b.model)
	return chunk
}

func chatFinishReason(fr *siumai.FinishReason) string {
	if fr == nil {
		return "stop"
	}
	switch fr.Kind {
	case siumai.FinishToolCalls:
		return "tool_calls"
	case siumai.FinishLength:
		return "length"
	case siumai.FinishContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}

// ---- OpenAI Responses SSE ----

func (b *Bridge) encodeResponses(event siumai.ChatStreamEvent) ([][]byte, error) {
	switch e := event.(type) {
	case siumai.StreamStartEvent:
		b.messageID, b.model = e.Metadata.ID, e.Metadata.Model
		b.started = true
		payload := `{"type":"response.created","response":{"id":"","model":""}}`
		payload, _ = sjson.Set(payload, "response.id", b.messageID)
		payload, _ = sjson.Set(payload, "response.model", b.model)
		return [][]byte{formatSSE("response.created", payload)}, nil

	case siumai.ContentDeltaEvent:
		payload := fmt.Sprintf(`{"type":"response.output_text.delta","output_index":%d,"delta":""}`, e.Index)
		payload, _ = sjson.Set(payload, "delta", e.Delta)
		return [][]byte{formatSSE("response.output_text.delta", payload)}, nil

	case siumai.ThinkingDeltaEvent:
		payload := `{"type":"response.reasoning_summary_text.delta","delta":""}`
		payload, _ = sjson.Set(payload, "delta", e.Delta)
		return [][]byte{formatSSE("response.reasoning_summary_text.delta", payload)}, nil

	case siumai.ToolCallDeltaEvent:
		ts, ok := b.toolsByID[e.ID]
		if !ok {
			ts = &toolState{index: b.nextToolIdx, name: e.FunctionName}
			b.toolsByID[e.ID] = ts
			b.nextToolIdx++
		}
		payload := `{"type":"response.function_call_arguments.delta","item_id":"","output_index":0,"delta":""}`
		payload, _ = sjson.Set(payload, "item_id", e.ID)
		payload, _ = sjson.Set(payload, "output_index", ts.index)
		payload, _ = sjson.Set(payload, "delta", e.ArgumentsDelta)
		return [][]byte{formatSSE("response.function_call_arguments.delta", payload)}, nil

	case siumai.StreamEndEvent:
		payload := `{"type":"response.completed","response":{"id":"","model":"","status":"completed","output":[]}}`
		payload, _ = sjson.Set(payload, "response.id", b.messageID)
		payload, _ = sjson.Set(payload, "response.model", b.model)
		payload, _ = sjson.Set(payload, "response.status", responsesStatus(e.Response.FinishReason))
		if text := e.Response.Text(); text != "" {
			payload, _ = sjson.SetRaw(payload, "response.output.0",
				fmt.Sprintf(`{"type":"message","content":[{"type":"output_text","text":%q}]}`, text))
		}
		if e.Response.Usage != nil {
			payload, _ = sjson.Set(payload, "response.usage.input_tokens", e.Response.Usage.PromptTokens)
			payload, _ = sjson.Set(payload, "response.usage.output_tokens", e.Response.Usage.CompletionTokens)
			payload, _ = sjson.Set(payload, "response.usage.total_tokens", e.Response.Usage.TotalTokens)
		}
		return [][]byte{formatSSE("response.completed", payload)}, nil

	case siumai.ErrorEvent:
		payload := `{"type":"error","message":""}`
		payload, _ = sjson.Set(payload, "message", e.Err.Error())
		return [][]byte{formatSSE("error", payload)}, nil

	default:
		return b.unsupported(event)
	}
}

func responsesStatus(fr *siumai.FinishReason) string {
	if fr == nil {
		return "completed"
	}
	switch fr.Kind {
	case siumai.FinishLength:
		return "incomplete"
	default:
		return "completed"
	}
}

// unsupported handles CustomEvent and any other event kind with no direct
// representation in the target dialect, per the configured policy.
func (b *Bridge) unsupported(event siumai.ChatStreamEvent) ([][]byte, error) {
	ce, ok := event.(siumai.CustomEvent)
	if !ok {
		return nil, nil
	}
	if b.cfg.Policy == PolicySkip {
		return nil, nil
	}
	marker := fmt.Sprintf("[%v]", ce.Data["type"])
	if name, ok := ce.Data["toolName"].(string); ok && name != "" {
		marker = fmt.Sprintf("%s %s", marker, name)
	}
	switch b.cfg.Target {
	case TargetAnthropic:
		delta := `{"type":"content_block_delta","delta":{"type":"text_delta","text":""}}`
		delta, _ = sjson.Set(delta, "delta.text", marker)
		return [][]byte{formatSSE("content_block_delta", delta)}, nil
	case TargetOpenAIResponses:
		payload := `{"type":"response.output_text.delta","delta":""}`
		payload, _ = sjson.Set(payload, "delta", marker)
		return [][]byte{formatSSE("response.output_text.delta", payload)}, nil
	default:
		chunk := b.chatChunkSkeleton()
		chunk, _ = sjson.Set(chunk, "choices.0.delta.content", marker)
		return [][]byte{formatSSE("", chunk)}, nil
	}
}

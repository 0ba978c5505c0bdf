package streamconv

import (
	"encoding/json"
	"fmt"

	"github.com/siumai/siumai"
)

// anthropicBlock tracks one content_block's lifecycle across frames,
// grounded on internal/providers/registry.go's ContentBlockState.
type anthropicBlock struct {
	kind        string // "text" | "tool_use" | "thinking"
	toolID      string
	toolName    string
	arguments   string
	nameEmitted bool
}

// Anthropic converts Anthropic Messages API named SSE events into unified
// ChatStreamEvent values, per §4.4.2.
type Anthropic struct {
	started bool
	meta    siumai.StreamMetadata

	blocks map[int]*anthropicBlock

	usage        siumai.Usage
	pendingStop  string
	done         bool
}

func NewAnthropic() *Anthropic {
	return &Anthropic{blocks: make(map[int]*anthropicBlock)}
}

func (c *Anthropic) Convert(frame Frame) ([]siumai.ChatStreamEvent, error) {
	if c.done {
		return nil, nil
	}

	var data map[string]any
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.done = true
			return []siumai.ChatStreamEvent{siumai.ErrorEvent{Err: fmt.Errorf("parse anthropic stream frame: %w", err)}}, nil
		}
	}

	eventType := frame.Event
	if eventType == "" {
		eventType, _ = data["type"].(string)
	}

	switch eventType {
	case "message_start":
		return c.handleMessageStart(data), nil
	case "content_block_start":
		return c.handleBlockStart(data), nil
	case "content_block_delta":
		return c.handleBlockDelta(data), nil
	case "content_block_stop":
		return nil, nil
	case "message_delta":
		return c.handleMessageDelta(data), nil
	case "message_stop":
		return c.finish(), nil
	case "ping", "":
		return nil, nil
	default:
		return nil, nil
	}
}

func (c *Anthropic) handleMessageStart(data map[string]any) []siumai.ChatStreamEvent {
	msg, _ := data["message"].(map[string]any)
	id := stringField(msg, "id")
	model := stringField(msg, "model")
	c.meta = siumai.StreamMetadata{ID: id, Model: model}
	c.started = true

	var events []siumai.ChatStreamEvent
	events = append(events, siumai.StreamStartEvent{Metadata: c.meta})

	if usage, ok := msg["usage"].(map[string]any); ok {
		c.usage.PromptTokens = intField(usage, "input_tokens")
		if v := intField(usage, "cache_read_input_tokens"); v > 0 {
			cr := v
			c.usage.CacheReadTokens = &cr
		}
		events = append(events, siumai.UsageUpdateEvent{Usage: c.usage})
	}
	return events
}

func (c *Anthropic) handleBlockStart(data map[string]any) []siumai.ChatStreamEvent {
	index := intField(data, "index")
	block, _ := data["content_block"].(map[string]any)
	kind := stringField(block, "type")

	b := &anthropicBlock{kind: kind}
	switch kind {
	case "tool_use":
		b.toolID = stringField(block, "id")
		b.toolName = stringField(block, "name")
	}
	c.blocks[index] = b

	if kind == "tool_use" && b.toolName != "" {
		b.nameEmitted = true
		return []siumai.ChatStreamEvent{siumai.ToolCallDeltaEvent{ID: b.toolID, FunctionName: b.toolName, Index: index}}
	}
	return nil
}

func (c *Anthropic) handleBlockDelta(data map[string]any) []siumai.ChatStreamEvent {
	index := intField(data, "index")
	delta, _ := data["delta"].(map[string]any)
	subtype := stringField(delta, "type")

	block := c.blocks[index]
	if block == nil {
		block = &anthropicBlock{}
		c.blocks[index] = block
	}

	switch subtype {
	case "text_delta":
		return []siumai.ChatStreamEvent{siumai.ContentDeltaEvent{Delta: stringField(delta, "text"), Index: index}}
	case "input_json_delta":
		partial := stringField(delta, "partial_json")
		block.arguments += partial
		ev := siumai.ToolCallDeltaEvent{ID: block.toolID, ArgumentsDelta: partial, Index: index}
		if !block.nameEmitted && block.toolName != "" {
			ev.FunctionName = block.toolName
			block.nameEmitted = true
		}
		return []siumai.ChatStreamEvent{ev}
	case "thinking_delta":
		return []siumai.ChatStreamEvent{siumai.ThinkingDeltaEvent{Delta: stringField(delta, "thinking")}}
	case "signature_delta":
		return nil
	default:
		return nil
	}
}

func (c *Anthropic) handleMessageDelta(data map[string]any) []siumai.ChatStreamEvent {
	delta, _ := data["delta"].(map[string]any)
	if sr := stringField(delta, "stop_reason"); sr != "" {
		c.pendingStop = sr
	}
	var events []siumai.ChatStreamEvent
	if usage, ok := data["usage"].(map[string]any); ok {
		c.usage.CompletionTokens = intField(usage, "output_tokens")
		c.usage.TotalTokens = c.usage.PromptTokens + c.usage.CompletionTokens
		events = append(events, siumai.UsageUpdateEvent{Usage: c.usage})
	}
	return events
}

func (c *Anthropic) finish() []siumai.ChatStreamEvent {
	if c.done {
		return nil
	}
	c.done = true

	var parts []siumai.ContentPart
	for _, idx := range orderedIndices(c.blocks) {
		b := c.blocks[idx]
		switch b.kind {
		case "tool_use":
			parts = append(parts, siumai.ToolCallPart{ID: b.toolID, Name: b.toolName, ArgumentsJSON: b.arguments})
		}
	}

	resp := siumai.ChatResponse{ID: c.meta.ID, Model: c.meta.Model, Usage: &c.usage}
	if len(parts) > 0 {
		resp.Content = siumai.PartsContent(parts...)
	}
	if c.pendingStop != "" {
		reason := mapAnthropicStreamStop(c.pendingStop)
		resp.FinishReason = &reason
	}
	return []siumai.ChatStreamEvent{siumai.StreamEndEvent{Response: resp}}
}

func (c *Anthropic) Finalize() []siumai.ChatStreamEvent {
	return c.finish()
}

func mapAnthropicStreamStop(reason string) siumai.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return siumai.FinishReason{Kind: siumai.FinishStop}
	case "max_tokens":
		return siumai.FinishReason{Kind: siumai.FinishLength}
	case "tool_use":
		return siumai.FinishReason{Kind: siumai.FinishToolCalls}
	default:
		return siumai.FinishReason{Kind: siumai.FinishOther, Other: reason}
	}
}

func orderedIndices(m map[int]*anthropicBlock) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

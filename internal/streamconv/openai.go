package streamconv

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siumai/siumai"
)

// toolBlockState tracks one in-flight tool call across frames, keyed by
// either its wire index or its id (whichever arrives first) — grounded on
// internal/providers/openai.go's ContentBlockState/findOrCreateContentBlock.
type toolBlockState struct {
	id           string
	index        int
	hasIndex     bool
	functionName string
	arguments    string
	nameEmitted  bool
}

// OpenAIChat converts OpenAI Chat Completions (and OpenAI-compatible) SSE
// frames into unified ChatStreamEvent values. One instance per HTTP stream.
type OpenAIChat struct {
	started    bool
	meta       siumai.StreamMetadata
	textIndex  int
	textOpened bool

	toolBlocks []*toolBlockState // ordered by first appearance
	toolByID   map[string]*toolBlockState
	toolByIdx  map[int]*toolBlockState

	pendingFinish string
	usage         *siumai.Usage
	done          bool
}

func NewOpenAIChat() *OpenAIChat {
	return &OpenAIChat{
		toolByID:  make(map[string]*toolBlockState),
		toolByIdx: make(map[int]*toolBlockState),
	}
}

func (c *OpenAIChat) Convert(frame Frame) ([]siumai.ChatStreamEvent, error) {
	if c.done {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(frame.Data))
	if trimmed == "[DONE]" {
		return c.finish(), nil
	}

	var chunk map[string]any
	if err := json.Unmarshal(frame.Data, &chunk); err != nil {
		c.done = true
		return []siumai.ChatStreamEvent{siumai.ErrorEvent{Err: fmt.Errorf("parse openai stream frame: %w", err)}}, nil
	}

	var events []siumai.ChatStreamEvent
	events = append(events, c.maybeEmitStart(chunk)...)

	choices, _ := chunk["choices"].([]any)
	if len(choices) > 0 {
		choice, _ := choices[0].(map[string]any)
		delta, _ := choice["delta"].(map[string]any)
		if delta == nil {
			delta, _ = choice["message"].(map[string]any)
		}
		if delta != nil {
			if toolCalls, ok := delta["tool_calls"].([]any); ok && len(toolCalls) > 0 {
				events = append(events, c.handleToolCalls(toolCalls)...)
			} else if content, ok := delta["content"].(string); ok && content != "" {
				events = append(events, c.handleText(content)...)
			}
			if reasoning := firstNonEmptyField(delta, reasoningFieldNames); reasoning != "" {
				events = append(events, siumai.ThinkingDeltaEvent{Delta: reasoning})
			}
		}

		if fr, ok := choice["finish_reason"].(string); ok && fr != "" {
			c.pendingFinish = fr
		}
	}

	if usage, ok := chunk["usage"].(map[string]any); ok {
		u := usageFromMap(usage)
		c.usage = &u
		events = append(events, siumai.UsageUpdateEvent{Usage: u})
	}

	if c.pendingFinish != "" {
		events = append(events, c.finish()...)
	}

	return events, nil
}

var reasoningFieldNames = []string{"reasoning_content", "thinking", "reasoning"}

func firstNonEmptyField(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (c *OpenAIChat) maybeEmitStart(chunk map[string]any) []siumai.ChatStreamEvent {
	if c.started {
		return nil
	}
	id, _ := chunk["id"].(string)
	model, _ := chunk["model"].(string)
	if id == "" && model == "" {
		return nil
	}
	c.started = true
	created := int64(0)
	if cr, ok := chunk["created"].(float64); ok {
		created = int64(cr)
	}
	c.meta = siumai.StreamMetadata{ID: id, Model: model, Created: created}
	return []siumai.ChatStreamEvent{siumai.StreamStartEvent{Metadata: c.meta}}
}

func (c *OpenAIChat) handleText(content string) []siumai.ChatStreamEvent {
	c.textOpened = true
	return []siumai.ChatStreamEvent{siumai.ContentDeltaEvent{Delta: content, Index: c.textIndex}}
}

func (c *OpenAIChat) handleToolCalls(toolCalls []any) []siumai.ChatStreamEvent {
	var events []siumai.ChatStreamEvent
	for _, tc := range toolCalls {
		tcMap, ok := tc.(map[string]any)
		if !ok {
			continue
		}
		events = append(events, c.handleSingleToolCall(tcMap)...)
	}
	return events
}

func (c *OpenAIChat) handleSingleToolCall(tc map[string]any) []siumai.ChatStreamEvent {
	var index int
	var hasIndex bool
	switch v := tc["index"].(type) {
	case float64:
		index, hasIndex = int(v), true
	case int:
		index, hasIndex = v, true
	}
	id, _ := tc["id"].(string)
	var name, args string
	if fn, ok := tc["function"].(map[string]any); ok {
		name, _ = fn["name"].(string)
		args, _ = fn["arguments"].(string)
	}

	block := c.findOrCreateToolBlock(id, index, hasIndex)
	if block == nil {
		return nil
	}
	if name != "" {
		block.functionName = name
	}

	var events []siumai.ChatStreamEvent
	delta := siumai.ToolCallDeltaEvent{ID: block.id, Index: block.index}
	if !block.nameEmitted && block.functionName != "" {
		delta.FunctionName = block.functionName
		block.nameEmitted = true
	}
	if args != "" {
		argDelta := calculateArgumentsDelta(args, block.arguments)
		block.arguments += argDelta
		delta.ArgumentsDelta = argDelta
	}
	if delta.FunctionName != "" || delta.ArgumentsDelta != "" {
		events = append(events, delta)
	}
	return events
}

// findOrCreateToolBlock mirrors findOrCreateContentBlock: a tool call is
// keyed by index when present, falling back to id, because some providers
// omit id on continuation frames.
func (c *OpenAIChat) findOrCreateToolBlock(id string, index int, hasIndex bool) *toolBlockState {
	if hasIndex {
		if b, ok := c.toolByIdx[index]; ok {
			return b
		}
	}
	if id != "" {
		if b, ok := c.toolByID[id]; ok {
			return b
		}
	}
	if id == "" && !hasIndex {
		return nil
	}
	if id == "" {
		// continuation frame for an index we haven't seen an id for yet;
		// nothing to key on.
		return nil
	}
	b := &toolBlockState{id: id, index: index, hasIndex: hasIndex}
	if !hasIndex {
		b.index = len(c.toolBlocks)
	}
	c.toolBlocks = append(c.toolBlocks, b)
	c.toolByID[id] = b
	if hasIndex {
		c.toolByIdx[index] = b
	}
	return b
}

func calculateArgumentsDelta(newArgs, oldArgs string) string {
	if len(newArgs) > len(oldArgs) && strings.HasPrefix(newArgs, oldArgs) {
		return newArgs[len(oldArgs):]
	}
	return newArgs
}

func usageFromMap(usage map[string]any) siumai.Usage {
	u := siumai.Usage{
		PromptTokens:     intFieldLocal(usage, "prompt_tokens"),
		CompletionTokens: intFieldLocal(usage, "completion_tokens"),
		TotalTokens:      intFieldLocal(usage, "total_tokens"),
	}
	return u
}

func intFieldLocal(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (c *OpenAIChat) finish() []siumai.ChatStreamEvent {
	if c.done {
		return nil
	}
	c.done = true

	var parts []siumai.ContentPart
	if c.textOpened {
		// text content is reconstructed by the caller from ContentDelta
		// events; it is not copied into StreamEnd's Response.Content,
		// which carries only the tool-call parts.
	}
	for _, b := range c.toolBlocks {
		parts = append(parts, siumai.ToolCallPart{ID: b.id, Name: b.functionName, ArgumentsJSON: b.arguments})
	}

	resp := siumai.ChatResponse{ID: c.meta.ID, Model: c.meta.Model}
	if len(parts) > 0 {
		resp.Content = siumai.PartsContent(parts...)
	}
	if c.pendingFinish != "" {
		reason := mapOpenAIStreamFinish(c.pendingFinish)
		resp.FinishReason = &reason
	}
	if c.usage != nil {
		resp.Usage = c.usage
	}
	return []siumai.ChatStreamEvent{siumai.StreamEndEvent{Response: resp}}
}

// Finalize implements Converter: a transport close mid-tool-call must still
// produce a synthetic StreamEnd (§8), never an Error.
func (c *OpenAIChat) Finalize() []siumai.ChatStreamEvent {
	return c.finish()
}

func mapOpenAIStreamFinish(reason string) siumai.FinishReason {
	switch reason {
	case "stop":
		return siumai.FinishReason{Kind: siumai.FinishStop}
	case "length":
		return siumai.FinishReason{Kind: siumai.FinishLength}
	case "tool_calls", "function_call":
		return siumai.FinishReason{Kind: siumai.FinishToolCalls}
	case "content_filter":
		return siumai.FinishReason{Kind: siumai.FinishContentFilter}
	default:
		return siumai.FinishReason{Kind: siumai.FinishOther, Other: reason}
	}
}

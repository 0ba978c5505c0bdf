package streamconv

import (
	"encoding/json"
	"fmt"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/transform"
)

// responsesItem tracks one `output_item` across its added/delta/done
// lifecycle, keyed by output_index with an id fallback, mirroring the
// OpenAI-Chat converter's findOrCreateToolBlock lookup order.
type responsesItem struct {
	id        string
	itemType  string // "message" | "function_call" | "mcp_call" | "web_search_call" | "code_interpreter_call" | "custom_tool_call" | "reasoning" | ...
	name      string
	arguments string
	started   bool // tool-input-start / text-start / reasoning-start already emitted
}

// toolItemDefaultName supplies a toolName for item types whose wire shape
// carries no "name" field of its own; provider-executed tools are not named
// by the model the way function_call/mcp_call/custom_tool_call are.
var toolItemDefaultName = map[string]string{
	"web_search_call":      "web_search",
	"code_interpreter_call": "code_interpreter",
}

// isToolItem reports whether itemType drives the tool-input-start/delta/end
// plus tool-call lifecycle (§4.4.4), as opposed to "message"/"reasoning"
// items which have their own dedicated delta events.
func isToolItem(itemType string) bool {
	switch itemType {
	case "function_call", "mcp_call", "web_search_call", "code_interpreter_call", "custom_tool_call":
		return true
	default:
		return false
	}
}

// toolItemArgumentsField names the wire field each tool item type's "done"
// payload carries its accumulated input under.
func toolItemArgumentsField(itemType string) string {
	switch itemType {
	case "code_interpreter_call":
		return "code"
	case "web_search_call":
		return "action"
	default:
		return "arguments"
	}
}

// OpenAIResponses converts the OpenAI Responses API's SSE event family
// (§4.4.4) into unified ChatStreamEvent values. Grounded on
// original_source/siumai-protocol-openai/src/standards/openai/responses_sse
// /converter/mod.rs for the overall per-item-id bookkeeping shape, collapsed
// from its one-HashMap-per-tool-kind layout (a side effect of Rust's Arc
// <Mutex<_>> field-per-concern style) into the single responsesItem struct
// per item id/index this design note's "single state struct... behind a
// single-reader lock" calls for; function_call, mcp_call, web_search_call,
// code_interpreter_call, and custom_tool_call (apply_patch) items all drive
// the same tool-input-start/delta/end + tool-call lifecycle, distinguished
// only by which wire event carries their streamed input (isToolItem,
// toolItemArgumentsField).
type OpenAIResponses struct {
	started bool
	meta    siumai.StreamMetadata

	itemsByIndex map[int]*responsesItem
	itemsByID    map[string]*responsesItem

	textIndex int
	usage     *siumai.Usage

	completedPayload map[string]any
	done             bool
}

func NewOpenAIResponses() *OpenAIResponses {
	return &OpenAIResponses{
		itemsByIndex: make(map[int]*responsesItem),
		itemsByID:    make(map[string]*responsesItem),
	}
}

func (c *OpenAIResponses) Convert(frame Frame) ([]siumai.ChatStreamEvent, error) {
	if c.done {
		return nil, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		c.done = true
		return []siumai.ChatStreamEvent{siumai.ErrorEvent{Err: fmt.Errorf("parse responses stream frame: %w", err)}}, nil
	}

	eventType := frame.Event
	if eventType == "" {
		eventType, _ = payload["type"].(string)
	}

	switch eventType {
	case "response.created", "response.in_progress":
		return c.handleCreated(payload), nil
	case "response.output_item.added":
		return c.handleItemAdded(payload), nil
	case "response.output_item.done":
		return c.handleItemDone(payload), nil
	case "response.output_text.delta":
		return c.handleTextDelta(payload), nil
	case "response.output_text.done":
		return nil, nil
	case "response.reasoning_summary_text.delta":
		return c.handleReasoningDelta(payload), nil
	case "response.reasoning_summary_text.done":
		return nil, nil
	case "response.function_call_arguments.delta":
		return c.handleToolArgsDelta(payload), nil
	case "response.function_call_arguments.done":
		return nil, nil
	case "response.mcp_call_arguments.delta":
		return c.handleToolArgsDelta(payload), nil
	case "response.mcp_call_arguments.done":
		return nil, nil
	case "response.code_interpreter_call_code.delta":
		return c.handleToolArgsDelta(payload), nil
	case "response.code_interpreter_call_code.done":
		return nil, nil
	case "response.custom_tool_call_input.delta":
		return c.handleToolArgsDelta(payload), nil
	case "response.custom_tool_call_input.done":
		return nil, nil
	case "response.completed":
		return c.handleCompleted(payload), nil
	default:
		// Forward-compatible: content_part.*, annotation.*, and other
		// events with no tool-input/text/reasoning lifecycle of their own
		// are ignored per §4.4.5.
		return nil, nil
	}
}

func (c *OpenAIResponses) handleCreated(payload map[string]any) []siumai.ChatStreamEvent {
	if c.started {
		return nil
	}
	resp, _ := payload["response"].(map[string]any)
	c.meta = siumai.StreamMetadata{
		ID:    stringField(resp, "id"),
		Model: stringField(resp, "model"),
	}
	c.started = true
	return []siumai.ChatStreamEvent{siumai.StreamStartEvent{Metadata: c.meta}}
}

func (c *OpenAIResponses) findOrCreateItem(index int, id string) *responsesItem {
	if idx, ok := c.itemsByIndex[index]; ok {
		if id != "" && idx.id == "" {
			idx.id = id
			c.itemsByID[id] = idx
		}
		return idx
	}
	if id != "" {
		if it, ok := c.itemsByID[id]; ok {
			c.itemsByIndex[index] = it
			return it
		}
	}
	it := &responsesItem{id: id}
	c.itemsByIndex[index] = it
	if id != "" {
		c.itemsByID[id] = it
	}
	return it
}

func (c *OpenAIResponses) handleItemAdded(payload map[string]any) []siumai.ChatStreamEvent {
	item, _ := payload["item"].(map[string]any)
	index := intField(payload, "output_index")
	id := stringField(item, "id")
	it := c.findOrCreateItem(index, id)
	it.itemType, _ = item["type"].(string)
	it.name = stringField(item, "name")
	if it.name == "" {
		it.name = toolItemDefaultName[it.itemType]
	}

	if isToolItem(it.itemType) && !it.started {
		it.started = true
		return []siumai.ChatStreamEvent{siumai.CustomEvent{Data: map[string]any{
			"type": "tool-input-start", "id": it.id, "toolName": it.name,
		}}}
	}
	return nil
}

func (c *OpenAIResponses) handleItemDone(payload map[string]any) []siumai.ChatStreamEvent {
	item, _ := payload["item"].(map[string]any)
	index := intField(payload, "output_index")
	id := stringField(item, "id")
	it := c.findOrCreateItem(index, id)

	if !isToolItem(it.itemType) {
		return nil
	}
	if field := toolItemArgumentsField(it.itemType); field != "" {
		switch v := item[field].(type) {
		case string:
			if v != "" {
				it.arguments = v
			}
		case map[string]any:
			if b, err := json.Marshal(v); err == nil {
				it.arguments = string(b)
			}
		}
	}
	var events []siumai.ChatStreamEvent
	if !it.started {
		// A provider-executed tool (web_search_call most commonly) can go
		// straight to "done" with no intervening delta, skipping "added".
		it.started = true
		events = append(events, siumai.CustomEvent{Data: map[string]any{
			"type": "tool-input-start", "id": it.id, "toolName": it.name,
		}})
	}
	events = append(events,
		siumai.CustomEvent{Data: map[string]any{"type": "tool-input-end", "id": it.id}},
		siumai.ToolCallDeltaEvent{ID: it.id, FunctionName: it.name, ArgumentsDelta: it.arguments, Index: index},
		siumai.CustomEvent{Data: map[string]any{
			"type": "tool-call", "toolCallId": it.id, "toolName": it.name, "input": it.arguments,
		}},
	)
	return events
}

func (c *OpenAIResponses) handleTextDelta(payload map[string]any) []siumai.ChatStreamEvent {
	delta := stringField(payload, "delta")
	if delta == "" {
		return nil
	}
	return []siumai.ChatStreamEvent{siumai.ContentDeltaEvent{Delta: delta, Index: c.textIndex}}
}

func (c *OpenAIResponses) handleReasoningDelta(payload map[string]any) []siumai.ChatStreamEvent {
	delta := stringField(payload, "delta")
	if delta == "" {
		return nil
	}
	return []siumai.ChatStreamEvent{siumai.ThinkingDeltaEvent{Delta: delta}}
}

// handleToolArgsDelta accumulates one tool item's streamed input, shared
// across function_call/mcp_call/code_interpreter_call/custom_tool_call:
// each of their *.delta events carries the same output_index/item_id/delta
// field triple, only the event name differs per tool kind.
func (c *OpenAIResponses) handleToolArgsDelta(payload map[string]any) []siumai.ChatStreamEvent {
	index := intField(payload, "output_index")
	id := stringField(payload, "item_id")
	it := c.findOrCreateItem(index, id)
	delta := stringField(payload, "delta")
	firstDelta := it.arguments == ""
	it.arguments += delta

	events := []siumai.ChatStreamEvent{}
	if !it.started {
		it.started = true
		events = append(events, siumai.CustomEvent{Data: map[string]any{
			"type": "tool-input-start", "id": it.id, "toolName": it.name,
		}})
	}
	toolDelta := siumai.ToolCallDeltaEvent{ID: it.id, ArgumentsDelta: delta, Index: index}
	if firstDelta {
		toolDelta.FunctionName = it.name
	}
	events = append(events,
		siumai.CustomEvent{Data: map[string]any{"type": "tool-input-delta", "id": it.id, "delta": delta}},
		toolDelta,
	)
	return events
}

func (c *OpenAIResponses) handleCompleted(payload map[string]any) []siumai.ChatStreamEvent {
	if c.done {
		return nil
	}
	c.done = true
	resp, _ := payload["response"].(map[string]any)
	if resp == nil {
		resp = payload
	}
	c.completedPayload = resp

	respT := transform.OpenAIResponsesResponse{}
	chatResp, err := respT.Transform(resp)
	if err != nil {
		return []siumai.ChatStreamEvent{siumai.ErrorEvent{Err: err}}
	}
	return []siumai.ChatStreamEvent{siumai.StreamEndEvent{Response: chatResp}}
}

func (c *OpenAIResponses) Finalize() []siumai.ChatStreamEvent {
	if c.done {
		return nil
	}
	c.done = true
	resp := siumai.ChatResponse{ID: c.meta.ID, Model: c.meta.Model}
	resp.FinishReason = &siumai.FinishReason{Kind: siumai.FinishStop}
	return []siumai.ChatStreamEvent{siumai.StreamEndEvent{Response: resp}}
}

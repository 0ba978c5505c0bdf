// Package orchestrator implements the multi-step tool loop of spec §4.8:
// PlanStep → CallModel → Observe → {StopCheck | ExecuteTools → InjectResults
// → PlanStep}. It is decoupled from any one transport: callers supply a
// ModelCaller that already knows how to reach a provider (built from
// providerspec+httpexec at the root-package layer).
package orchestrator

import (
	"context"
	"fmt"

	"github.com/siumai/siumai"
)

// ModelCaller performs one non-streaming model call.
type ModelCaller interface {
	Generate(ctx context.Context, req siumai.ChatRequest) (siumai.ChatResponse, error)
}

// StreamCaller performs one streaming model call, yielding unified events
// terminated by a StreamEndEvent or ErrorEvent.
type StreamCaller interface {
	GenerateStream(ctx context.Context, req siumai.ChatRequest) (<-chan siumai.ChatStreamEvent, error)
}

// StepContext is passed to the prepare-step hook ahead of each CallModel.
type StepContext struct {
	StepIndex  int
	Messages   []siumai.Message
	Tools      []siumai.Tool
	PriorSteps []StepResult
}

// StepOverrides lets a prepare-step hook replace any subset of the next
// call's inputs; unset fields inherit the previous step's values.
type StepOverrides struct {
	Messages    []siumai.Message
	Tools       []siumai.Tool
	ToolChoice  *siumai.ToolChoice
	ActiveTools []string // when non-nil, narrows Tools to these names
}

// PrepareStepFunc is the per-iteration hook of step 1 of §4.8's protocol.
type PrepareStepFunc func(ctx context.Context, step StepContext) (StepOverrides, error)

// ToolResult is the outcome of dispatching one ToolCallPart.
type ToolResult struct {
	ToolCallID string
	OutputJSON string
	IsError    bool
}

// StepResult is the accumulated record of one loop iteration.
type StepResult struct {
	Response    siumai.ChatResponse
	ToolCalls   []siumai.ToolCallPart
	ToolResults []ToolResult
}

// StopCondition is a predicate over the immutable slice of steps taken so
// far (most recent last). Evaluated in insertion order; the first satisfied
// condition terminates the loop.
type StopCondition func(steps []StepResult) bool

func StepCountIs(n int) StopCondition {
	return func(steps []StepResult) bool { return len(steps) >= n }
}

func HasTextResponse() StopCondition {
	return func(steps []StepResult) bool {
		if len(steps) == 0 {
			return false
		}
		return steps[len(steps)-1].Response.Text() != ""
	}
}

func HasNoToolCalls() StopCondition {
	return func(steps []StepResult) bool {
		if len(steps) == 0 {
			return false
		}
		return len(steps[len(steps)-1].ToolCalls) == 0
	}
}

func HasToolCall(name string) StopCondition {
	return func(steps []StepResult) bool {
		if len(steps) == 0 {
			return false
		}
		for _, tc := range steps[len(steps)-1].ToolCalls {
			if tc.Name == name {
				return true
			}
		}
		return false
	}
}

func HasToolResult(name string) StopCondition {
	return func(steps []StepResult) bool {
		if len(steps) == 0 {
			return false
		}
		last := steps[len(steps)-1]
		byID := make(map[string]string, len(last.ToolCalls))
		for _, tc := range last.ToolCalls {
			byID[tc.ID] = tc.Name
		}
		for _, tr := range last.ToolResults {
			if byID[tr.ToolCallID] == name {
				return true
			}
		}
		return false
	}
}

func Custom(fn func(steps []StepResult) bool) StopCondition { return fn }

// AllOf is satisfied only when every condition is; it short-circuits on the
// first unsatisfied condition.
func AllOf(conditions ...StopCondition) StopCondition {
	return func(steps []StepResult) bool {
		for _, c := range conditions {
			if !c(steps) {
				return false
			}
		}
		return true
	}
}

// AnyOf is satisfied as soon as any condition is; it short-circuits on the
// first satisfied condition.
func AnyOf(conditions ...StopCondition) StopCondition {
	return func(steps []StepResult) bool {
		for _, c := range conditions {
			if c(steps) {
				return true
			}
		}
		return false
	}
}

// DefaultMaxSteps is the safety stop named by spec §4.8 when the caller
// configures no stop conditions of its own.
const DefaultMaxSteps = 10

// Config wires the loop's behavior: tool dispatch, approval gating, and
// stop conditions.
type Config struct {
	Caller         ModelCaller
	StreamCaller   StreamCaller // required only for GenerateStream
	Dispatcher     *Dispatcher
	PrepareStep    PrepareStepFunc
	StopConditions []StopCondition
	// OnPreliminaryToolResult is called once per tool result after all of
	// the step's tool calls have been dispatched, before the next model call.
	OnPreliminaryToolResult func(StepResult, ToolResult)
}

// Orchestrator runs the step loop for repeated Generate calls sharing the
// same tool-dispatch and stop-condition configuration.
type Orchestrator struct {
	cfg Config
}

func New(cfg Config) *Orchestrator {
	if len(cfg.StopConditions) == 0 {
		cfg.StopConditions = []StopCondition{StepCountIs(DefaultMaxSteps)}
	}
	return &Orchestrator{cfg: cfg}
}

// Result is the terminal outcome of Generate: every step taken, in order.
type Result struct {
	Steps []StepResult
}

// FinalResponse returns the last step's model response, the one a caller
// typically wants.
func (r Result) FinalResponse() siumai.ChatResponse {
	if len(r.Steps) == 0 {
		return siumai.ChatResponse{}
	}
	return r.Steps[len(r.Steps)-1].Response
}

// Generate runs the full state machine for one initial request, looping
// CallModel → Observe → {StopCheck | ExecuteTools → InjectResults} until a
// stop condition fires or the safety stop (len(StopConditions)==0 case is
// normalized to step_count_is(10) in New) is reached.
func (o *Orchestrator) Generate(ctx context.Context, req siumai.ChatRequest) (Result, error) {
	messages := append([]siumai.Message(nil), req.Messages...)
	tools := req.Tools
	var toolChoice *siumai.ToolChoice = req.ToolChoice

	var steps []StepResult
	for stepIdx := 0; ; stepIdx++ {
		if o.cfg.PrepareStep != nil {
			overrides, err := o.cfg.PrepareStep(ctx, StepContext{
				StepIndex: stepIdx, Messages: messages, Tools: tools, PriorSteps: steps,
			})
			if err != nil {
				return Result{Steps: steps}, fmt.Errorf("prepare step %d: %w", stepIdx, err)
			}
			if overrides.Messages != nil {
				messages = overrides.Messages
			}
			if overrides.Tools != nil {
				tools = overrides.Tools
			}
			if overrides.ToolChoice != nil {
				toolChoice = overrides.ToolChoice
			}
			if overrides.ActiveTools != nil {
				tools = filterActiveTools(tools, overrides.ActiveTools)
			}
		}

		stepReq := req
		stepReq.Messages = messages
		stepReq.Tools = tools
		stepReq.ToolChoice = toolChoice
		stepReq.Stream = false

		resp, err := o.cfg.Caller.Generate(ctx, stepReq)
		if err != nil {
			return Result{Steps: steps}, fmt.Errorf("model call step %d: %w", stepIdx, err)
		}

		step := StepResult{Response: resp, ToolCalls: resp.ToolCalls()}
		steps = append(steps, step)

		if o.shouldStop(steps) {
			return Result{Steps: steps}, nil
		}

		if len(step.ToolCalls) == 0 {
			return Result{Steps: steps}, nil
		}

		results, err := o.cfg.Dispatcher.DispatchAll(ctx, step.ToolCalls)
		if err != nil {
			return Result{Steps: steps}, fmt.Errorf("dispatch tools step %d: %w", stepIdx, err)
		}
		steps[len(steps)-1].ToolResults = results
		if o.cfg.OnPreliminaryToolResult != nil {
			for _, r := range results {
				o.cfg.OnPreliminaryToolResult(steps[len(steps)-1], r)
			}
		}

		messages = appendAssistantAndToolMessages(messages, resp, results)
	}
}

// StepStreamEvent pairs one forwarded ChatStreamEvent with the loop
// iteration that produced it, so a caller driving a UI can tell which step
// a ToolCallDelta/ContentDelta belongs to.
type StepStreamEvent struct {
	StepIndex int
	Event     siumai.ChatStreamEvent
}

// GenerateStream runs the same PlanStep/Observe/StopCheck loop as Generate,
// but drives each step through StreamCaller and forwards its converted
// events live instead of waiting for the aggregated response. Cancelling
// ctx aborts both the in-flight provider stream and the loop itself; the
// returned channel is always closed, on a clean finish, a stop condition,
// an upstream ErrorEvent, or ctx cancellation.
func (o *Orchestrator) GenerateStream(ctx context.Context, req siumai.ChatRequest) (<-chan StepStreamEvent, error) {
	if o.cfg.StreamCaller == nil {
		return nil, fmt.Errorf("orchestrator: GenerateStream requires Config.StreamCaller")
	}

	out := make(chan StepStreamEvent)
	go func() {
		defer close(out)

		messages := append([]siumai.Message(nil), req.Messages...)
		tools := req.Tools
		var toolChoice *siumai.ToolChoice = req.ToolChoice

		var steps []StepResult
		for stepIdx := 0; ; stepIdx++ {
			if ctx.Err() != nil {
				return
			}

			if o.cfg.PrepareStep != nil {
				overrides, err := o.cfg.PrepareStep(ctx, StepContext{
					StepIndex: stepIdx, Messages: messages, Tools: tools, PriorSteps: steps,
				})
				if err != nil {
					o.emit(ctx, out, stepIdx, siumai.ErrorEvent{Err: fmt.Errorf("prepare step %d: %w", stepIdx, err)})
					return
				}
				if overrides.Messages != nil {
					messages = overrides.Messages
				}
				if overrides.Tools != nil {
					tools = overrides.Tools
				}
				if overrides.ToolChoice != nil {
					toolChoice = overrides.ToolChoice
				}
				if overrides.ActiveTools != nil {
					tools = filterActiveTools(tools, overrides.ActiveTools)
				}
			}

			stepReq := req
			stepReq.Messages = messages
			stepReq.Tools = tools
			stepReq.ToolChoice = toolChoice
			stepReq.Stream = true

			events, err := o.cfg.StreamCaller.GenerateStream(ctx, stepReq)
			if err != nil {
				o.emit(ctx, out, stepIdx, siumai.ErrorEvent{Err: fmt.Errorf("model call step %d: %w", stepIdx, err)})
				return
			}

			resp, streamErr := o.drainStep(ctx, out, stepIdx, events)
			if streamErr != nil {
				return
			}

			step := StepResult{Response: resp, ToolCalls: resp.ToolCalls()}
			steps = append(steps, step)

			if o.shouldStop(steps) || len(step.ToolCalls) == 0 {
				return
			}

			results, err := o.cfg.Dispatcher.DispatchAll(ctx, step.ToolCalls)
			if err != nil {
				o.emit(ctx, out, stepIdx, siumai.ErrorEvent{Err: fmt.Errorf("dispatch tools step %d: %w", stepIdx, err)})
				return
			}
			steps[len(steps)-1].ToolResults = results
			if o.cfg.OnPreliminaryToolResult != nil {
				for _, r := range results {
					o.cfg.OnPreliminaryToolResult(steps[len(steps)-1], r)
				}
			}

			messages = appendAssistantAndToolMessages(messages, resp, results)
		}
	}()
	return out, nil
}

// drainStep forwards every event of one step's stream to out, stopping
// early on ctx cancellation or an ErrorEvent (already forwarded as part of
// the stream, so the caller must not re-emit it), and returns the
// aggregated ChatResponse carried by the step's StreamEndEvent. A non-nil
// error always means the loop above should stop without looking at resp.
func (o *Orchestrator) drainStep(ctx context.Context, out chan<- StepStreamEvent, stepIdx int, events <-chan siumai.ChatStreamEvent) (siumai.ChatResponse, error) {
	for e := range events {
		if !o.emit(ctx, out, stepIdx, e) {
			return siumai.ChatResponse{}, ctx.Err()
		}
		switch ev := e.(type) {
		case siumai.StreamEndEvent:
			return ev.Response, nil
		case siumai.ErrorEvent:
			return siumai.ChatResponse{}, ev.Err
		}
	}
	err := fmt.Errorf("model call step %d: stream closed with no StreamEndEvent", stepIdx)
	o.emit(ctx, out, stepIdx, siumai.ErrorEvent{Err: err})
	return siumai.ChatResponse{}, err
}

// emit forwards one event, honoring ctx cancellation instead of blocking
// forever against a reader that stopped listening. Returns false if ctx
// was cancelled before the send completed.
func (o *Orchestrator) emit(ctx context.Context, out chan<- StepStreamEvent, stepIdx int, event siumai.ChatStreamEvent) bool {
	select {
	case out <- StepStreamEvent{StepIndex: stepIdx, Event: event}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) shouldStop(steps []StepResult) bool {
	for _, cond := range o.cfg.StopConditions {
		if cond(steps) {
			return true
		}
	}
	return false
}

func filterActiveTools(tools []siumai.Tool, active []string) []siumai.Tool {
	allowed := make(map[string]bool, len(active))
	for _, name := range active {
		allowed[name] = true
	}
	var out []siumai.Tool
	for _, t := range tools {
		if ft, ok := t.(siumai.FunctionTool); ok {
			if allowed[ft.Name] {
				out = append(out, t)
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

// appendAssistantAndToolMessages mirrors step 6 of §4.8's protocol: append
// the assistant turn (content + tool-calls), then one tool message per
// result, in the deterministic order the tool calls appeared.
func appendAssistantAndToolMessages(messages []siumai.Message, resp siumai.ChatResponse, results []ToolResult) []siumai.Message {
	messages = append(messages, siumai.Message{Role: siumai.RoleAssistant, Content: resp.Content})

	byID := make(map[string]ToolResult, len(results))
	for _, r := range results {
		byID[r.ToolCallID] = r
	}
	for _, tc := range resp.ToolCalls() {
		r, ok := byID[tc.ID]
		if !ok {
			continue
		}
		messages = append(messages, siumai.Message{
			Role: siumai.RoleTool,
			Content: siumai.PartsContent(siumai.ToolResultPart{
				ID: tc.ID, OutputJSON: r.OutputJSON, IsError: r.IsError,
			}),
		})
	}
	return messages
}

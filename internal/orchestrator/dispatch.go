package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/siumai/siumai"
)

// ToolResolver executes one tool call by name, returning its result as a
// JSON-encodable value (or an error the dispatcher turns into an
// isError=true ToolResult). Grounded on types.ToolExecutor's
// Execute(ctx, name, args) shape in the tool-loop reference.
type ToolResolver interface {
	Resolve(ctx context.Context, name string, argsJSON string) (resultJSON string, err error)
}

// ApprovalDecision is the caller's answer to a pending tool-approval
// request (§4.8 step 5).
type ApprovalDecision int

const (
	ApprovalApprove ApprovalDecision = iota
	ApprovalDeny
	ApprovalAlwaysApprove
)

// ApprovalCallback is consulted before dispatching a tool call, when
// configured. Returning ApprovalDeny(reason) causes the dispatcher to
// synthesize an error result instead of invoking the resolver.
type ApprovalCallback func(ctx context.Context, call siumai.ToolCallPart) (decision ApprovalDecision, denyReason string, err error)

// UnresolvedToolPolicy controls what happens when no registered resolver
// matches a tool call's name.
type UnresolvedToolPolicy int

const (
	// UnresolvedSurfaceError returns a synthetic error ToolResult, leaving
	// the model free to react to it on the next step.
	UnresolvedSurfaceError UnresolvedToolPolicy = iota
	// UnresolvedAutoDeny behaves like an explicit approval denial.
	UnresolvedAutoDeny
)

// Dispatcher resolves and executes a step's tool calls, gated by an
// optional approval callback, honoring Parallel for concurrent execution.
// Grounded on the tool-loop reference's executeTools/executeOAITool
// (sync.WaitGroup fan-out, per-call result slot by index).
type Dispatcher struct {
	Resolvers        map[string]ToolResolver
	Approval         ApprovalCallback
	Parallel         bool
	UnresolvedPolicy UnresolvedToolPolicy

	// alwaysApproved tracks tool names the caller has blanket-approved via
	// ApprovalAlwaysApprove, so later calls to the same tool skip the
	// callback.
	mu             sync.Mutex
	alwaysApproved map[string]bool
}

func NewDispatcher(resolvers map[string]ToolResolver) *Dispatcher {
	return &Dispatcher{Resolvers: resolvers, alwaysApproved: make(map[string]bool)}
}

// DispatchAll resolves every tool call, in parallel when Parallel is set,
// and assembles results in the deterministic order the calls appeared.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []siumai.ToolCallPart) ([]ToolResult, error) {
	results := make([]ToolResult, len(calls))

	if d.Parallel && len(calls) > 1 {
		var wg sync.WaitGroup
		errs := make([]error, len(calls))
		for i, call := range calls {
			wg.Add(1)
			go func(idx int, call siumai.ToolCallPart) {
				defer wg.Done()
				results[idx], errs[idx] = d.dispatchOne(ctx, call)
			}(i, call)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return results, err
			}
		}
		return results, nil
	}

	for i, call := range calls {
		r, err := d.dispatchOne(ctx, call)
		if err != nil {
			return results, err
		}
		results[i] = r
	}
	return results, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, call siumai.ToolCallPart) (ToolResult, error) {
	if approved, reason, err := d.checkApproval(ctx, call); err != nil {
		return ToolResult{}, fmt.Errorf("approval check for %q: %w", call.Name, err)
	} else if !approved {
		return ToolResult{ToolCallID: call.ID, OutputJSON: errorJSON(fmt.Sprintf("denied: %s", reason)), IsError: true}, nil
	}

	resolver, ok := d.Resolvers[call.Name]
	if !ok {
		switch d.UnresolvedPolicy {
		case UnresolvedAutoDeny:
			return ToolResult{ToolCallID: call.ID, OutputJSON: errorJSON(fmt.Sprintf("tool %q denied: no resolver registered", call.Name)), IsError: true}, nil
		default:
			return ToolResult{ToolCallID: call.ID, OutputJSON: errorJSON(fmt.Sprintf("no resolver registered for tool %q", call.Name)), IsError: true}, nil
		}
	}

	out, err := resolver.Resolve(ctx, call.Name, call.ArgumentsJSON)
	if err != nil {
		return ToolResult{ToolCallID: call.ID, OutputJSON: errorJSON(err.Error()), IsError: true}, nil
	}
	return ToolResult{ToolCallID: call.ID, OutputJSON: out}, nil
}

func (d *Dispatcher) checkApproval(ctx context.Context, call siumai.ToolCallPart) (bool, string, error) {
	if d.Approval == nil {
		return true, "", nil
	}
	d.mu.Lock()
	already := d.alwaysApproved[call.Name]
	d.mu.Unlock()
	if already {
		return true, "", nil
	}

	decision, reason, err := d.Approval(ctx, call)
	if err != nil {
		return false, "", err
	}
	switch decision {
	case ApprovalAlwaysApprove:
		d.mu.Lock()
		d.alwaysApproved[call.Name] = true
		d.mu.Unlock()
		return true, "", nil
	case ApprovalDeny:
		return false, reason, nil
	default:
		return true, "", nil
	}
}

func errorJSON(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

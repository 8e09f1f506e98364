// Package registry implements the tool registry: the single choke point
// through which every tool handler runs. It consults the policy engine,
// the approval gate, the audit journal, and the artifact store, in that
// order, for every invocation.
//
// Grounded on the teacher's (borisdali-helpdesk/internal/audit)
// tool_audit.go (RecordToolCall wraps a call with a before/after audit
// pair) and gateway.go (RecordRequest composes policy + approval + audit
// in one path), generalized from "the gateway records a request" into
// "the registry IS the only path to execution."
package registry

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"

	"piebot/internal/approval"
	"piebot/internal/artifact"
	"piebot/internal/audit"
	"piebot/internal/domain"
	"piebot/internal/policy"
)

// Registry is the execution choke point. Once constructed, its tool map
// is immutable; registration only happens at construction time via
// Register, before any Invoke call.
type Registry struct {
	tools   map[string]domain.ToolSpec
	ctx     domain.ToolContext
	policy  *policy.Engine
	gate    *approval.Gate
	journal *audit.Journal
}

// New constructs a Registry bound to an immutable execution context and
// its three collaborators: the policy engine, the approval gate, and the
// audit journal.
func New(ctx domain.ToolContext, pol *policy.Engine, gate *approval.Gate, journal *audit.Journal) *Registry {
	return &Registry{
		tools:   make(map[string]domain.ToolSpec),
		ctx:     ctx,
		policy:  pol,
		gate:    gate,
		journal: journal,
	}
}

// Register adds a tool spec to the registry. It fails if the name is
// already registered.
func (r *Registry) Register(spec domain.ToolSpec) error {
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool %q already registered", spec.Name)
	}
	r.tools[spec.Name] = spec
	return nil
}

// Invoke is the sole path to handler execution and the sole emitter of
// tool-related audit events. It mints a call_id, consults policy and
// approval, invokes the handler (or stops early on an unknown tool or a
// denial), persists the result payload as an artifact, and returns the
// ToolResult. Every invocation writes PolicyDecision (if the tool is
// known), ApprovalRequested (if approval was required and checked), and
// always ToolExecuted then ToolResultStored, in that order.
func (r *Registry) Invoke(runID, toolName string, args map[string]any) domain.ToolResult {
	callID := "call_" + uuid.New().String()[:8]

	spec, known := r.tools[toolName]
	if !known {
		r.emit(runID, audit.ToolExecuted, map[string]any{
			"tool_name": toolName,
			"call_id":   callID,
			"args":      args,
		})
		result := domain.NewFailure(runID, callID, "unknown tool")
		r.storeAndEmitResult(runID, toolName, callID, result)
		return result
	}

	decision := r.policy.Decide(toolName, spec.Risk, args)
	r.emit(runID, audit.PolicyDecision, map[string]any{
		"tool_name":         toolName,
		"call_id":           callID,
		"risk":              string(spec.Risk),
		"allow":             decision.Allow,
		"requires_approval": decision.RequiresApproval,
		"reason":            decision.Reason,
	})

	if !decision.Allow {
		r.emit(runID, audit.ToolExecuted, map[string]any{
			"tool_name": toolName,
			"call_id":   callID,
			"args":      args,
			"blocked":   true,
		})
		result := domain.NewFailure(runID, callID, "blocked by policy: "+decision.Reason)
		r.storeAndEmitResult(runID, toolName, callID, result)
		return result
	}

	if decision.RequiresApproval {
		token, _ := args["approval_token"].(string)
		approved := r.gate.IsApproved(token)
		r.emit(runID, audit.ApprovalRequested, map[string]any{
			"tool_name": toolName,
			"call_id":   callID,
			"approved":  approved,
		})
		if !approved {
			result := domain.NewFailure(runID, callID, "approval required")
			r.storeAndEmitResult(runID, toolName, callID, result)
			return result
		}
	}

	r.emit(runID, audit.ToolExecuted, map[string]any{
		"tool_name": toolName,
		"call_id":   callID,
		"args":      args,
	})

	result := r.runHandler(runID, callID, spec, args)
	r.storeAndEmitResult(runID, toolName, callID, result)
	return result
}

// runHandler invokes spec.Handler, recovering from a panic into a failed
// ToolResult with a truncated traceback, matching spec.md §4.5 step 7.
func (r *Registry) runHandler(runID, callID string, spec domain.ToolSpec, args map[string]any) (result domain.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = domain.NewFailure(runID, callID, fmt.Sprintf("HandlerPanic: %v", rec))
			result.Result = map[string]any{"traceback": truncatedTraceback()}
		}
	}()

	out, err := spec.Handler(args, r.ctx)
	if err != nil {
		failed := domain.NewFailure(runID, callID, fmt.Sprintf("%T: %s", err, err.Error()))
		failed.Result = map[string]any{"traceback": truncatedTraceback()}
		return failed
	}
	return domain.NewSuccess(runID, callID, out)
}

// storeAndEmitResult persists the result payload as an artifact (best
// effort — an artifact write failure does not change the outcome that's
// already been decided) and emits the closing ToolResultStored event.
func (r *Registry) storeAndEmitResult(runID, toolName, callID string, result domain.ToolResult) {
	artifact.Store(r.ctx.RuntimeRoot, callID, result.Result) //nolint:errcheck

	keys := make([]string, 0, len(result.Result))
	for k := range result.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.emit(runID, audit.ToolResultStored, map[string]any{
		"tool_name":   toolName,
		"call_id":     callID,
		"ok":          result.Ok,
		"error":       result.Error,
		"result_keys": keys,
	})
}

func (r *Registry) emit(runID string, typ audit.EventType, payload map[string]any) {
	r.journal.Append(runID, typ, payload) //nolint:errcheck
}

// truncatedTraceback returns the first three lines of the current stack
// trace, as a short textual pointer to the failure site, per spec.md
// §4.5 step 7 / §9. It is never meant to be a full crash dump.
func truncatedTraceback() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	lines := strings.SplitN(string(buf[:n]), "\n", 4)
	limit := 3
	if len(lines) < limit {
		limit = len(lines)
	}
	return strings.Join(lines[:limit], "\n")
}

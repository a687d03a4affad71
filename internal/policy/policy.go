// Package policy is the authorization core: the role oracle, the
// participation index and the per-resource policy evaluator.
//
// The structural rule that shapes everything here: a visibility rule for a
// resource must never be answered by re-querying that resource under its own
// policy. The oracle and the index are plain elevated lookups that read tier
// and membership directly, and only this package and the escalation guard
// consume them. Evaluation is therefore a finite pass over already-loaded
// facts, and re-entrant evaluation is impossible by construction.
package policy

import dErrors "agora/pkg/domain-errors"

// ResourceType names the resource families the evaluator understands.
type ResourceType string

const (
	ResourceDeliberation ResourceType = "deliberation"
	ResourceParticipant  ResourceType = "participant"
	ResourceMessage      ResourceType = "message"
	ResourceGraphNode    ResourceType = "graph_node"
	ResourceGraphEdge    ResourceType = "graph_edge"
	ResourceAgentConfig  ResourceType = "agent_config"
	ResourceDocument     ResourceType = "document"
)

// Operation is the access class being evaluated.
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

// Decision is the evaluator's verdict. A denied decision carries the reason
// for logs and audit; callers translate denials per the degradation policy
// (reads go empty, writes surface the error).
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the affirmative decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny constructs a denial with its reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a denial to the write-path error. Allowed decisions return
// nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return dErrors.New(dErrors.CodeAuthorizationDenied, d.Reason)
}

// Package bulk fans one user-initiated action out over a selection of agents
// with bounded concurrency and per-item outcomes. Partial failure is the
// normal terminal state here, not an exception: every item is attempted no
// matter what happens to its siblings.
package bulk

import (
	"context"
	"sync"

	"github.com/wardenhq/warden/internal/gateway"
)

// Action is the operation applied to each selected agent.
type Action int

const (
	ActionAssignGroup Action = iota
	ActionRemoveGroup
	ActionUpgrade
	ActionRestart
)

func (a Action) String() string {
	switch a {
	case ActionAssignGroup:
		return "assign to group"
	case ActionRemoveGroup:
		return "remove from group"
	case ActionUpgrade:
		return "upgrade"
	case ActionRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// Gateway is the slice of the backend client the coordinator needs.
// Implemented by *gateway.Client; narrowed for testing.
type Gateway interface {
	AssignToGroup(ctx context.Context, group, agentID string) error
	RemoveFromGroup(ctx context.Context, group, agentID string) error
	UpgradeAgent(ctx context.Context, agentID string) error
	RestartAgent(ctx context.Context, agentID string) error
}

var _ Gateway = (*gateway.Client)(nil)

// ItemResult is the outcome for one agent.
type ItemResult struct {
	AgentID string
	Err     error // nil on success; otherwise carries the classified failure
}

// Result aggregates a completed run.
type Result struct {
	Action    Action
	Group     string // target group for the group actions
	Items     []ItemResult
	Succeeded int
	Failed    int
}

// maxInFlight bounds simultaneous backend calls so a large selection does not
// stampede the manager.
const maxInFlight = 4

// Run applies action to every agent id, at most maxInFlight at a time, and
// always runs the full selection to completion. Item results come back in
// input order. The context should be the application's, not a view's: a run
// outlives whatever screen started it.
func Run(ctx context.Context, gw Gateway, action Action, agentIDs []string, group string) Result {
	items := make([]ItemResult, len(agentIDs))
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup

	for i, id := range agentIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			items[i] = ItemResult{AgentID: id, Err: dispatch(ctx, gw, action, id, group)}
		}(i, id)
	}
	wg.Wait()

	result := Result{Action: action, Group: group, Items: items}
	for _, item := range items {
		if item.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result
}

func dispatch(ctx context.Context, gw Gateway, action Action, agentID, group string) error {
	switch action {
	case ActionAssignGroup:
		return gw.AssignToGroup(ctx, group, agentID)
	case ActionRemoveGroup:
		return gw.RemoveFromGroup(ctx, group, agentID)
	case ActionUpgrade:
		return gw.UpgradeAgent(ctx, agentID)
	default:
		return gw.RestartAgent(ctx, agentID)
	}
}

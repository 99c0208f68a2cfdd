package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// AgentQuery configures ListAgents.
type AgentQuery struct {
	Offset int
	Limit  int
	Status AgentStatus // empty matches all
	Search string      // free-text, forwarded to the manager
	Sort   string      // manager sort expression, e.g. "-id"
}

// ListAgents fetches one page of agents.
func (c *Client) ListAgents(ctx context.Context, q AgentQuery) (AgentPage, error) {
	values := url.Values{}
	values.Set("offset", strconv.Itoa(q.Offset))
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	values.Set("limit", strconv.Itoa(limit))
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}

	var payload listResponse[Agent]
	rel := &url.URL{Path: "/agents", RawQuery: values.Encode()}
	if err := c.doManager(ctx, "list agents", http.MethodGet, rel, nil, &payload); err != nil {
		return AgentPage{}, err
	}
	return AgentPage{Agents: payload.Data.AffectedItems, Total: payload.Data.TotalAffectedItems}, nil
}

// AgentHardware fetches the syscollector hardware record for one agent.
func (c *Client) AgentHardware(ctx context.Context, agentID string) (*Hardware, error) {
	var payload listResponse[Hardware]
	rel := &url.URL{Path: "/syscollector/" + agentID + "/hardware"}
	if err := c.doManager(ctx, "agent hardware", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data.AffectedItems) == 0 {
		return nil, &Error{Kind: KindNotFound, Op: "agent hardware", Err: fmt.Errorf("no hardware record for agent %s", agentID)}
	}
	hw := payload.Data.AffectedItems[0]
	return &hw, nil
}

// AgentProcesses fetches the process inventory for one agent.
func (c *Client) AgentProcesses(ctx context.Context, agentID string) ([]Process, error) {
	var payload listResponse[Process]
	rel := &url.URL{Path: "/syscollector/" + agentID + "/processes"}
	if err := c.doManager(ctx, "agent processes", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data.AffectedItems, nil
}

// AgentPackages fetches the installed-software inventory for one agent.
func (c *Client) AgentPackages(ctx context.Context, agentID string) ([]Package, error) {
	var payload listResponse[Package]
	rel := &url.URL{Path: "/syscollector/" + agentID + "/packages"}
	if err := c.doManager(ctx, "agent packages", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data.AffectedItems, nil
}

// ConfigComponents lists the agent configuration components the inspector can
// cycle through.
var ConfigComponents = []string{"syscheck", "logcollector", "wmodules", "agent", "auth"}

// configSection maps a component to its section name on the config endpoint.
// Most components use their own name; a few are special-cased by the API.
func configSection(component string) string {
	switch component {
	case "logcollector":
		return "localfile"
	case "agent":
		return "client"
	case "analysis":
		return "global"
	default:
		return component
	}
}

// AgentConfig fetches one component of an agent's runtime configuration. The
// payload shape varies per component, so the raw document is returned.
func (c *Client) AgentConfig(ctx context.Context, agentID, component string) (json.RawMessage, error) {
	section := configSection(component)
	var payload map[string]json.RawMessage
	rel := &url.URL{Path: "/agents/" + agentID + "/config/" + component + "/" + section}
	if err := c.doManager(ctx, "agent config", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	data, ok := payload["data"]
	if !ok {
		return nil, &Error{Kind: KindParse, Op: "agent config", Err: fmt.Errorf("missing data object")}
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err == nil {
		if raw, ok := inner[section]; ok {
			return raw, nil
		}
	}
	return data, nil
}

// PushAgentConfig writes one component of an agent's configuration back.
func (c *Client) PushAgentConfig(ctx context.Context, agentID, component string, cfg json.RawMessage) error {
	section := configSection(component)
	rel := &url.URL{Path: "/agents/" + agentID + "/config/" + component + "/" + section}
	return c.doManager(ctx, "push agent config", http.MethodPut, rel, cfg, nil)
}

// ListGroups fetches all agent groups.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var payload listResponse[Group]
	rel := &url.URL{Path: "/groups"}
	if err := c.doManager(ctx, "list groups", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data.AffectedItems, nil
}

// GroupAgents fetches the membership of one group.
func (c *Client) GroupAgents(ctx context.Context, group string) ([]Agent, error) {
	var payload listResponse[Agent]
	rel := &url.URL{Path: "/groups/" + group + "/agents"}
	if err := c.doManager(ctx, "group agents", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data.AffectedItems, nil
}

// AssignToGroup adds one agent to a group.
func (c *Client) AssignToGroup(ctx context.Context, group, agentID string) error {
	rel := &url.URL{Path: "/groups/" + group + "/agents", RawQuery: "agents_list=" + url.QueryEscape(agentID)}
	return c.doManager(ctx, "assign to group", http.MethodPut, rel, nil, nil)
}

// RemoveFromGroup removes one agent from a group.
func (c *Client) RemoveFromGroup(ctx context.Context, group, agentID string) error {
	rel := &url.URL{Path: "/groups/" + group + "/agents", RawQuery: "agents_list=" + url.QueryEscape(agentID)}
	return c.doManager(ctx, "remove from group", http.MethodDelete, rel, nil, nil)
}

// UpgradeAgent asks the manager to upgrade one agent.
func (c *Client) UpgradeAgent(ctx context.Context, agentID string) error {
	rel := &url.URL{Path: "/agents/upgrade", RawQuery: "agents_list=" + url.QueryEscape(agentID)}
	return c.doManager(ctx, "upgrade agent", http.MethodPut, rel, nil, nil)
}

// RestartAgent asks the manager to restart one agent.
func (c *Client) RestartAgent(ctx context.Context, agentID string) error {
	rel := &url.URL{Path: "/agents/restart", RawQuery: "agents_list=" + url.QueryEscape(agentID)}
	return c.doManager(ctx, "restart agent", http.MethodPut, rel, nil, nil)
}

// Package pipeline turns a cache snapshot into the view model a screen
// renders: filtered, sorted, paginated, with a stable total. Everything here
// is pure; callers hand in one immutable snapshot per frame so pagination
// stays internally consistent even while the cache updates.
package pipeline

import (
	"sort"
	"strings"

	"github.com/wardenhq/warden/internal/gateway"
)

// SortKey selects the agent table ordering.
type SortKey int

const (
	SortID SortKey = iota
	SortName
	SortIP
	SortStatus
	SortOS
	SortLastSeen
)

func (k SortKey) String() string {
	switch k {
	case SortName:
		return "name"
	case SortIP:
		return "ip"
	case SortStatus:
		return "status"
	case SortOS:
		return "os"
	case SortLastSeen:
		return "last seen"
	default:
		return "id"
	}
}

// Next cycles to the following sort key.
func (k SortKey) Next() SortKey {
	switch k {
	case SortID:
		return SortName
	case SortName:
		return SortIP
	case SortIP:
		return SortStatus
	case SortStatus:
		return SortOS
	case SortOS:
		return SortLastSeen
	default:
		return SortID
	}
}

// Sort pairs a key with a direction.
type Sort struct {
	Key        SortKey
	Descending bool
}

// Page is one screen of agent rows plus the totals the pager needs.
type Page struct {
	Rows      []gateway.Agent
	Total     int // rows matching the filter, across all pages
	Page      int // zero-based, clamped
	PageCount int
}

// DefaultPageSize is the fixed page size of the agent table.
const DefaultPageSize = 25

// Apply runs the full pipeline over one snapshot. The input slice is not
// mutated; sorting happens on a private copy.
func Apply(agents []gateway.Agent, filter AgentFilter, s Sort, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	matched := make([]gateway.Agent, 0, len(agents))
	for _, a := range agents {
		if filter.Matches(a) {
			matched = append(matched, a)
		}
	}

	sortAgents(matched, s)

	total := len(matched)
	pageCount := (total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pageCount {
		page = pageCount - 1
	}

	start := page * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Rows:      matched[start:end],
		Total:     total,
		Page:      page,
		PageCount: pageCount,
	}
}

// sortAgents orders agents by the sort key with a fixed ascending-ID
// tie-break, so equal-key rows always land in the same order.
func sortAgents(agents []gateway.Agent, s Sort) {
	sort.Slice(agents, func(i, j int) bool {
		a, b := agents[i], agents[j]
		cmp := compareBy(s.Key, a, b)
		if s.Descending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
}

func compareBy(key SortKey, a, b gateway.Agent) int {
	switch key {
	case SortName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortIP:
		return strings.Compare(a.IP, b.IP)
	case SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortOS:
		return strings.Compare(strings.ToLower(a.OSName()), strings.ToLower(b.OSName()))
	case SortLastSeen:
		return strings.Compare(a.LastKeepAlive, b.LastKeepAlive)
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

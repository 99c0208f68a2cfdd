package pipeline

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/wardenhq/warden/internal/gateway"
)

func agent(id, name, ip string, status gateway.AgentStatus, os string) gateway.Agent {
	a := gateway.Agent{ID: id, Name: name, IP: ip, Status: status}
	if os != "" {
		a.OS = &gateway.AgentOS{Name: os}
	}
	return a
}

func fleet() []gateway.Agent {
	return []gateway.Agent{
		agent("003", "web-02", "10.0.0.3", gateway.StatusActive, "Ubuntu"),
		agent("001", "web-01", "10.0.0.1", gateway.StatusActive, "Ubuntu"),
		agent("004", "db-01", "10.0.0.4", gateway.StatusDisconnected, "CentOS"),
		agent("002", "worker-01", "10.0.0.2", gateway.StatusPending, "Debian"),
	}
}

func TestApply_SortAndTieBreak(t *testing.T) {
	page := Apply(fleet(), AgentFilter{}, Sort{Key: SortStatus}, 0, 25)

	// Status ties (the two active agents) must fall back to ascending ID.
	var ids []string
	for _, a := range page.Rows {
		ids = append(ids, a.ID)
	}
	want := []string{"001", "003", "004", "002"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("sorted ids = %v, want %v", ids, want)
	}
}

func TestApply_OrderIndependentOfInputPermutation(t *testing.T) {
	base := Apply(fleet(), AgentFilter{}, Sort{Key: SortName, Descending: true}, 0, 25)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := fleet()
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Apply(shuffled, AgentFilter{}, Sort{Key: SortName, Descending: true}, 0, 25)
		if !reflect.DeepEqual(got.Rows, base.Rows) {
			t.Fatalf("permutation %d changed the output order:\n got %v\nwant %v", i, got.Rows, base.Rows)
		}
	}
}

func TestApply_DescendingKeepsAscendingIDTieBreak(t *testing.T) {
	agents := []gateway.Agent{
		agent("002", "same", "", gateway.StatusActive, ""),
		agent("001", "same", "", gateway.StatusActive, ""),
	}
	page := Apply(agents, AgentFilter{}, Sort{Key: SortName, Descending: true}, 0, 25)
	if page.Rows[0].ID != "001" || page.Rows[1].ID != "002" {
		t.Fatalf("descending tie-break order = %s,%s, want 001,002", page.Rows[0].ID, page.Rows[1].ID)
	}
}

func TestApply_PaginationClampsAndCounts(t *testing.T) {
	agents := make([]gateway.Agent, 0, 7)
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		agents = append(agents, agent("00"+id, "a"+id, "", gateway.StatusActive, ""))
	}

	page := Apply(agents, AgentFilter{}, Sort{}, 1, 3)
	if page.PageCount != 3 || page.Page != 1 || page.Total != 7 {
		t.Fatalf("page meta = %+v, want PageCount=3 Page=1 Total=7", page)
	}
	if len(page.Rows) != 3 || page.Rows[0].ID != "004" {
		t.Fatalf("rows = %v, want 004..006", page.Rows)
	}

	// Out-of-range pages clamp to the last one.
	page = Apply(agents, AgentFilter{}, Sort{}, 99, 3)
	if page.Page != 2 || len(page.Rows) != 1 {
		t.Fatalf("clamped page = %d with %d rows, want page 2 with 1 row", page.Page, len(page.Rows))
	}

	page = Apply(agents, AgentFilter{}, Sort{}, -5, 3)
	if page.Page != 0 {
		t.Fatalf("negative page = %d, want 0", page.Page)
	}
}

func TestApply_EmptyMatchStillOnePage(t *testing.T) {
	page := Apply(fleet(), ParseAgentFilter("name:nosuch"), Sort{}, 0, 25)
	if page.Total != 0 || page.PageCount != 1 || page.Page != 0 {
		t.Fatalf("empty page meta = %+v, want Total=0 PageCount=1 Page=0", page)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := fleet()
	snapshot := make([]gateway.Agent, len(in))
	copy(snapshot, in)

	Apply(in, AgentFilter{}, Sort{Key: SortName}, 0, 25)
	if !reflect.DeepEqual(in, snapshot) {
		t.Fatalf("Apply reordered the input snapshot")
	}
}

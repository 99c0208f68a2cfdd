package store

import (
	"errors"
	"testing"
	"time"
)

func testStore(at *time.Time) *Store {
	s := New()
	s.now = func() time.Time { return *at }
	return s
}

func TestEnsure_DeduplicatesInflight(t *testing.T) {
	now := time.Now()
	s := testStore(&now)
	key := Key{Kind: KindAgents}

	req, issued := s.Ensure(key)
	if !issued {
		t.Fatalf("first Ensure issued = false, want true")
	}
	if req.Seq != 1 {
		t.Fatalf("first Seq = %d, want 1", req.Seq)
	}
	if req.RequestID == "" {
		t.Fatalf("RequestID empty")
	}

	if _, issued := s.Ensure(key); issued {
		t.Fatalf("second Ensure while in flight issued a duplicate fetch")
	}

	if _, err := s.Apply(FetchResult{Key: key, Seq: req.Seq, Value: "v"}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	req2, issued := s.Ensure(key)
	if !issued {
		t.Fatalf("Ensure after completion issued = false, want true")
	}
	if req2.Seq != 2 {
		t.Fatalf("Seq after completion = %d, want 2", req2.Seq)
	}
}

func TestEnsureFresh_SkipsFreshServesStale(t *testing.T) {
	now := time.Now()
	s := testStore(&now)
	key := Key{Kind: KindAgents}

	req, _ := s.Ensure(key)
	if _, err := s.Apply(FetchResult{Key: key, Seq: req.Seq, Value: "v1"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, issued := s.EnsureFresh(key); issued {
		t.Fatalf("EnsureFresh on a fresh entry issued a fetch")
	}

	// Pass the agents TTL; the value must stay readable while one refresh runs.
	now = now.Add(16 * time.Second)
	value, freshness := s.Get(key)
	if freshness != Stale || value != "v1" {
		t.Fatalf("Get after TTL = (%v, %v), want (v1, Stale)", value, freshness)
	}
	if _, issued := s.EnsureFresh(key); !issued {
		t.Fatalf("EnsureFresh on a stale entry issued no fetch")
	}
	if _, issued := s.EnsureFresh(key); issued {
		t.Fatalf("second EnsureFresh issued a duplicate refresh")
	}
}

func TestApply_DropsSupersededResults(t *testing.T) {
	now := time.Now()
	s := testStore(&now)
	key := Key{Kind: KindEvents, Params: "w=15"}

	req1, _ := s.Ensure(key)
	if _, err := s.Apply(FetchResult{Key: key, Seq: req1.Seq, Value: "old"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	s.Invalidate(key)
	req2, _ := s.Ensure(key)
	if _, err := s.Apply(FetchResult{Key: key, Seq: req2.Seq, Value: "new"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// A late completion of the first fetch must not clobber the newer value.
	applied, err := s.Apply(FetchResult{Key: key, Seq: req1.Seq, Value: "old again"})
	if applied || err != nil {
		t.Fatalf("late Apply = (%v, %v), want (false, nil)", applied, err)
	}
	value, freshness := s.Get(key)
	if value != "new" || freshness != Fresh {
		t.Fatalf("Get = (%v, %v), want (new, Fresh)", value, freshness)
	}
}

func TestApply_ErrorKeepsValueAsStale(t *testing.T) {
	now := time.Now()
	s := testStore(&now)
	key := Key{Kind: KindGroups}

	req, _ := s.Ensure(key)
	if _, err := s.Apply(FetchResult{Key: key, Seq: req.Seq, Value: "groups"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	s.Invalidate(key)
	req2, _ := s.Ensure(key)
	boom := errors.New("boom")
	applied, err := s.Apply(FetchResult{Key: key, Seq: req2.Seq, Err: boom})
	if applied {
		t.Fatalf("failed fetch applied a value")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Apply error = %v, want %v", err, boom)
	}

	value, freshness := s.Get(key)
	if value != "groups" || freshness != Stale {
		t.Fatalf("Get after failure = (%v, %v), want (groups, Stale)", value, freshness)
	}

	// The slot is free again for the next retry.
	if _, issued := s.Ensure(key); !issued {
		t.Fatalf("Ensure after failed fetch issued = false, want true")
	}
}

func TestInvalidateAgent_CoversAgentAndListings(t *testing.T) {
	now := time.Now()
	s := testStore(&now)

	for _, key := range []Key{
		{Kind: KindAgents},
		{Kind: KindHardware, ID: "001"},
		{Kind: KindHardware, ID: "002"},
	} {
		req, _ := s.Ensure(key)
		if _, err := s.Apply(FetchResult{Key: key, Seq: req.Seq, Value: "x"}); err != nil {
			t.Fatalf("Apply(%v): %v", key, err)
		}
	}

	s.InvalidateAgent("001")

	if _, freshness := s.Get(Key{Kind: KindAgents}); freshness != Stale {
		t.Fatalf("agents listing freshness = %v, want Stale", freshness)
	}
	if _, freshness := s.Get(Key{Kind: KindHardware, ID: "001"}); freshness != Stale {
		t.Fatalf("agent 001 hardware freshness = %v, want Stale", freshness)
	}
	if _, freshness := s.Get(Key{Kind: KindHardware, ID: "002"}); freshness != Fresh {
		t.Fatalf("agent 002 hardware freshness = %v, want Fresh", freshness)
	}
}

func TestAdvance_EvictsUntouchedEntries(t *testing.T) {
	now := time.Now()
	s := testStore(&now)

	cold := Key{Kind: KindProcesses, ID: "001"}
	warm := Key{Kind: KindAgents}
	for _, key := range []Key{cold, warm} {
		req, _ := s.Ensure(key)
		if _, err := s.Apply(FetchResult{Key: key, Seq: req.Seq, Value: "x"}); err != nil {
			t.Fatalf("Apply(%v): %v", key, err)
		}
	}

	for i := 0; i < keepGenerations+1; i++ {
		s.Advance()
		s.Get(warm) // keep warm referenced every transition
	}

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after eviction", s.Len())
	}
	if _, freshness := s.Get(cold); freshness != Missing {
		t.Fatalf("cold entry freshness = %v, want Missing", freshness)
	}
	if value, _ := s.Get(warm); value != "x" {
		t.Fatalf("warm entry lost: %v", value)
	}
}

func TestApply_AfterEvictionIsNoop(t *testing.T) {
	now := time.Now()
	s := testStore(&now)
	key := Key{Kind: KindPackages, ID: "003"}

	req, _ := s.Ensure(key)
	for i := 0; i < keepGenerations+2; i++ {
		s.Advance()
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}

	applied, err := s.Apply(FetchResult{Key: key, Seq: req.Seq, Value: "late"})
	if applied || err != nil {
		t.Fatalf("Apply after eviction = (%v, %v), want (false, nil)", applied, err)
	}
	if s.Len() != 0 {
		t.Fatalf("Apply after eviction resurrected the entry")
	}
}

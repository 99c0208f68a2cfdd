// Package store implements the cache and fetch orchestration layer between
// the UI and the backend gateway.
//
// The Store is owned by the UI update loop: reads never block, writes happen
// only through Apply as fetch results arrive on the program's message channel.
// Because a late network completion can race a newer request, every key
// carries a monotonic sequence number; Apply drops any result that does not
// supersede what is already stored. That guard, not a lock, is the
// correctness mechanism for out-of-order completion.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a cached resource family.
type Kind int

const (
	KindAgents Kind = iota
	KindGroups
	KindGroupAgents
	KindHardware
	KindProcesses
	KindPackages
	KindVulnerabilities
	KindAgentConfig
	KindAgentEvents
	KindEvents
)

func (k Kind) String() string {
	switch k {
	case KindAgents:
		return "agents"
	case KindGroups:
		return "groups"
	case KindGroupAgents:
		return "group agents"
	case KindHardware:
		return "hardware"
	case KindProcesses:
		return "processes"
	case KindPackages:
		return "packages"
	case KindVulnerabilities:
		return "vulnerabilities"
	case KindAgentConfig:
		return "agent config"
	case KindAgentEvents:
		return "agent events"
	case KindEvents:
		return "events"
	default:
		return "unknown"
	}
}

// Key identifies one cache entry: a resource kind, an optional resource id
// (agent id, group name), and an opaque query-parameter discriminator.
type Key struct {
	Kind   Kind
	ID     string
	Params string
}

// Freshness describes what a Get returned.
type Freshness int

const (
	Missing Freshness = iota
	Stale
	Fresh
)

// FetchRequest asks the gateway layer to fetch one key. Seq must be echoed
// back on the FetchResult; RequestID exists for correlation only.
type FetchRequest struct {
	Key       Key
	Seq       uint64
	RequestID string
}

// FetchResult is the outcome of one FetchRequest.
type FetchResult struct {
	Key   Key
	Seq   uint64
	Value any
	Err   error
}

// Per-kind freshness windows. Agent listings move fastest; groups barely move.
func ttlFor(k Kind) time.Duration {
	switch k {
	case KindAgents:
		return 15 * time.Second
	case KindGroups, KindGroupAgents:
		return 60 * time.Second
	case KindEvents, KindAgentEvents:
		return 30 * time.Second
	default:
		return 30 * time.Second
	}
}

// keepGenerations bounds how many view transitions an unreferenced entry
// survives before eviction.
const keepGenerations = 8

type entry struct {
	value    any
	hasValue bool
	seq      uint64 // sequence of the stored value
	issued   uint64 // highest sequence handed out for this key
	stale    bool   // forced staleness from Invalidate or a failed refresh
	fetched  time.Time
	inflight bool
	touched  int // view generation of the last reference
}

// Store is the single owner of cached backend state. It is not safe for
// concurrent use; all access goes through the UI update loop.
type Store struct {
	entries map[Key]*entry
	gen     int
	now     func() time.Time
}

// New builds an empty store.
func New() *Store {
	return &Store{
		entries: make(map[Key]*entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, if any, and how fresh it is. It never
// blocks and never triggers I/O.
func (s *Store) Get(key Key) (any, Freshness) {
	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		if ok {
			e.touched = s.gen
		}
		return nil, Missing
	}
	e.touched = s.gen
	if e.stale || s.now().Sub(e.fetched) > ttlFor(key.Kind) {
		return e.value, Stale
	}
	return e.value, Fresh
}

// Ensure requests that key eventually hold a fresh value. When a fetch for the
// key is already in flight the call deduplicates into it and reports false;
// otherwise a new FetchRequest is issued and must be executed by the caller.
func (s *Store) Ensure(key Key) (FetchRequest, bool) {
	e := s.entry(key)
	e.touched = s.gen
	if e.inflight {
		return FetchRequest{}, false
	}
	e.inflight = true
	e.issued++
	return FetchRequest{Key: key, Seq: e.issued, RequestID: uuid.NewString()}, true
}

// EnsureFresh is Ensure gated on freshness: a Fresh entry issues nothing, a
// Stale or Missing one starts a background refresh unless one is in flight.
// Combined with Get this is the stale-while-revalidate read path.
func (s *Store) EnsureFresh(key Key) (FetchRequest, bool) {
	if _, freshness := s.Get(key); freshness == Fresh {
		return FetchRequest{}, false
	}
	return s.Ensure(key)
}

// Invalidate marks key stale so the next read schedules a refresh. The cached
// value stays readable until the refresh lands.
func (s *Store) Invalidate(key Key) {
	if e, ok := s.entries[key]; ok {
		e.stale = true
	}
}

// InvalidateKind marks every entry of a kind stale.
func (s *Store) InvalidateKind(kind Kind) {
	for key, e := range s.entries {
		if key.Kind == kind {
			e.stale = true
		}
	}
}

// InvalidateAgent marks every per-agent entry for agentID stale, plus the
// agent listings that embed its row.
func (s *Store) InvalidateAgent(agentID string) {
	for key, e := range s.entries {
		if key.ID == agentID || key.Kind == KindAgents {
			e.stale = true
		}
	}
}

// Apply writes one fetch result into the cache. Results bearing a sequence at
// or below the stored one are dropped without mutating the entry. A failed
// fetch never replaces data: the previous value (if any) is kept and marked
// stale, and the error is returned for the caller to surface.
func (s *Store) Apply(res FetchResult) (applied bool, err error) {
	e, ok := s.entries[res.Key]
	if !ok {
		// Evicted while the fetch was in flight; nothing to update.
		return false, res.Err
	}
	if res.Seq >= e.issued {
		e.inflight = false
	}
	if res.Seq <= e.seq {
		return false, nil
	}
	if res.Err != nil {
		e.stale = true
		return false, res.Err
	}
	e.value = res.Value
	e.hasValue = true
	e.seq = res.Seq
	e.stale = false
	e.fetched = s.now()
	return true, nil
}

// Advance records a view transition and evicts entries that no view has
// referenced for keepGenerations transitions.
func (s *Store) Advance() {
	s.gen++
	for key, e := range s.entries {
		if s.gen-e.touched > keepGenerations {
			delete(s.entries, key)
		}
	}
}

// Len reports the number of live entries.
func (s *Store) Len() int { return len(s.entries) }

func (s *Store) entry(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{touched: s.gen}
		s.entries[key] = e
	}
	return e
}

package fuzzy

import (
	"reflect"
	"testing"
)

func TestMatch_SubsequenceAndBonuses(t *testing.T) {
	tests := []struct {
		query, candidate string
		wantScore        int
		wantOK           bool
	}{
		{"", "anything", 0, true},
		{"abc", "abc", 1 + 3 + 1 + 2 + 1 + 2, true}, // prefix + two contiguous runs
		{"abc", "a-b-c", 6, true},                   // prefix hit, rest scattered
		{"abc", "xaxbxc", 3, true},                  // hits only
		{"abc", "ab", 0, false},
		{"ABC", "abc", 10, true}, // case folds before scoring
		{"zz", "web-01", 0, false},
	}
	for _, tt := range tests {
		score, ok := Match(tt.query, tt.candidate)
		if ok != tt.wantOK || score != tt.wantScore {
			t.Fatalf("Match(%q, %q) = (%d, %v), want (%d, %v)",
				tt.query, tt.candidate, score, ok, tt.wantScore, tt.wantOK)
		}
	}
}

func TestMatch_ContiguousOutranksScattered(t *testing.T) {
	contiguous, _ := Match("w01", "web-w01")
	scattered, _ := Match("w01", "w-x-0-y-1")
	if contiguous <= scattered {
		t.Fatalf("contiguous score %d should beat scattered %d", contiguous, scattered)
	}
}

func TestRank_DeterministicOrder(t *testing.T) {
	corpus := []string{"db-02", "web-01", "web-02", "w0rker"}

	first := Rank(corpus, "w0")
	for i := 0; i < 50; i++ {
		if got := Rank(corpus, "w0"); !reflect.DeepEqual(got, first) {
			t.Fatalf("Rank not deterministic: run %d gave %v, first gave %v", i, got, first)
		}
	}

	// "w0rker" starts with the query as a contiguous run; both prefix and
	// contiguity bonuses apply, so it must rank above the "web-0x" names.
	if corpus[first[0].Index] != "w0rker" {
		t.Fatalf("top match = %q, want w0rker (ranked %v)", corpus[first[0].Index], first)
	}

	// Equal scores break ties by corpus position.
	var webs []int
	for _, e := range first {
		if corpus[e.Index] == "web-01" || corpus[e.Index] == "web-02" {
			webs = append(webs, e.Index)
		}
	}
	if len(webs) != 2 || webs[0] > webs[1] {
		t.Fatalf("tie-break not by corpus index: %v", webs)
	}
}

func TestRank_ExcludesNonMatches(t *testing.T) {
	got := Rank([]string{"alpha", "beta"}, "zz")
	if len(got) != 0 {
		t.Fatalf("Rank returned %v, want empty", got)
	}
}

package query

import (
	"reflect"
	"testing"
)

func TestNewTermSet(t *testing.T) {
	got := NewTermSet("dog", "cat", "dog", "bird")
	if want := (TermSet{"bird", "cat", "dog"}); !reflect.DeepEqual(got, want) {
		t.Errorf("NewTermSet = %v, want %v", got, want)
	}
	if !got.Contains("cat") || got.Contains("fish") {
		t.Error("Contains misreports membership")
	}
	if len(NewTermSet()) != 0 {
		t.Error("empty set should be empty")
	}
}

func TestUnionNeverShrinks(t *testing.T) {
	a := NewTermSet("cat", "dog")
	u := a.Union(NewTermSet("dog", "bird"))
	for _, term := range a {
		if !u.Contains(term) {
			t.Errorf("union lost %q", term)
		}
	}
	if len(u) != 3 {
		t.Errorf("union = %v", u)
	}
}

func TestQueryTermSet(t *testing.T) {
	q := Query{Name: "apple", Seeds: []string{"appl", "aapl", "appl"}}
	if got := q.TermSet(); !reflect.DeepEqual(got, TermSet{"aapl", "appl"}) {
		t.Errorf("TermSet = %v", got)
	}
	if got := Names([]Query{q, {Name: "x"}}); !reflect.DeepEqual(got, []string{"apple", "x"}) {
		t.Errorf("Names = %v", got)
	}
}

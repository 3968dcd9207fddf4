package registry

import (
	"context"
	"testing"

	"github.com/joshuafuller/dictd/internal/dicterrors"
	"github.com/joshuafuller/dictd/internal/store"
	"github.com/joshuafuller/dictd/internal/workerpool"
)

func makeDict(t *testing.T, short, long string, words map[string]string) *Dictionary {
	t.Helper()
	m := store.New()
	for w, def := range words {
		m.Insert(w, []byte(def))
	}
	m.Finalize()
	return &Dictionary{ShortName: short, LongName: long, Store: m}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	web := makeDict(t, "web1913", "Webster 1913", map[string]string{
		"apple": "A round fruit",
	})
	gcide := makeDict(t, "gcide", "GCIDE", map[string]string{
		"apple": "The fruit of the apple tree",
	})
	return New([]*Dictionary{web, gcide}, workerpool.New(2))
}

func TestShowDatabasesPreservesRegistrationOrder(t *testing.T) {
	r := testRegistry(t)
	dbs := r.ShowDatabases()
	if len(dbs) != 2 || dbs[0].ShortName != "web1913" || dbs[1].ShortName != "gcide" {
		t.Fatalf("unexpected order: %+v", dbs)
	}
}

func TestFilterSelectors(t *testing.T) {
	r := testRegistry(t)
	for _, name := range []string{"*", "all", "!"} {
		if got := r.filter(name); len(got) != 2 {
			t.Errorf("filter(%q) = %d dictionaries, want 2", name, len(got))
		}
	}
	if got := r.filter("nope"); got != nil {
		t.Errorf("filter(nope) = %v, want nil", got)
	}
	if got := r.filter("web1913"); len(got) != 1 {
		t.Errorf("filter(web1913) = %v, want 1 match", got)
	}
}

func TestLookupDbNotFound(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Lookup(context.Background(), "apple", "nope")
	var dbErr *dicterrors.DbNotFoundError
	if err == nil {
		t.Fatal("expected DbNotFoundError")
	}
	if !errorsAs(err, &dbErr) {
		t.Fatalf("expected DbNotFoundError, got %v (%T)", err, err)
	}
}

func TestLookupWordNotFound(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Lookup(context.Background(), "banana", "web1913")
	var wordErr *dicterrors.WordNotFoundError
	if !errorsAs(err, &wordErr) {
		t.Fatalf("expected WordNotFoundError, got %v", err)
	}
}

func TestLookupSingleDictionary(t *testing.T) {
	r := testRegistry(t)
	results, err := r.Lookup(context.Background(), "apple", "web1913")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(results) != 1 || results[0].DisplayName != "web1913" || results[0].Definition != "A round fruit" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestLookupFanOutAll(t *testing.T) {
	r := testRegistry(t)
	results, err := r.Lookup(context.Background(), "apple", "*")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results fanned out across both dictionaries, got %d: %+v", len(results), results)
	}
}

func TestMatchExactAndPrefix(t *testing.T) {
	r := testRegistry(t)

	exact, err := r.Match(context.Background(), "apple", "web1913", StrategyExact)
	if err != nil || len(exact) != 1 || exact[0].Word != "apple" {
		t.Fatalf("exact match failed: %+v, %v", exact, err)
	}

	prefix, err := r.Match(context.Background(), "app", "web1913", StrategyPrefix)
	if err != nil || len(prefix) != 1 || prefix[0].Word != "apple" {
		t.Fatalf("prefix match failed: %+v, %v", prefix, err)
	}
}

func TestParseStrategy(t *testing.T) {
	if s, ok := ParseStrategy("PREFIX"); !ok || s != StrategyPrefix {
		t.Errorf("ParseStrategy(PREFIX) = %v, %v", s, ok)
	}
	if _, ok := ParseStrategy("FUZZY"); ok {
		t.Errorf("ParseStrategy(FUZZY) should fail")
	}
}

func TestParseStrategyCaseInsensitive(t *testing.T) {
	for _, tok := range []string{"eXaCt", "exact", "EXACT"} {
		if s, ok := ParseStrategy(tok); !ok || s != StrategyExact {
			t.Errorf("ParseStrategy(%q) = %v, %v; want StrategyExact, true", tok, s, ok)
		}
	}
	for _, tok := range []string{"PreFix", "prefix", "PREFIX"} {
		if s, ok := ParseStrategy(tok); !ok || s != StrategyPrefix {
			t.Errorf("ParseStrategy(%q) = %v, %v; want StrategyPrefix, true", tok, s, ok)
		}
	}
}

// errorsAs is a tiny local wrapper so tests read naturally without an extra
// import alias collision with the stdlib package name in table entries.
func errorsAs(err error, target interface{}) bool {
	switch t := target.(type) {
	case **dicterrors.DbNotFoundError:
		e, ok := err.(*dicterrors.DbNotFoundError)
		if ok {
			*t = e
		}
		return ok
	case **dicterrors.WordNotFoundError:
		e, ok := err.(*dicterrors.WordNotFoundError)
		if ok {
			*t = e
		}
		return ok
	}
	return false
}

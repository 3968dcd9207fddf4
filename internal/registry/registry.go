// Package registry implements the dictionary registry (C3): a frozen,
// shared collection of dictionaries built once at startup and queried by
// every session thereafter with no locking on the read path, per the
// "shared immutable registry" design note in the spec.
package registry

import (
	"context"
	"strings"

	"github.com/joshuafuller/dictd/internal/dicterrors"
	"github.com/joshuafuller/dictd/internal/fallback"
	"github.com/joshuafuller/dictd/internal/store"
	"github.com/joshuafuller/dictd/internal/workerpool"
)

// Dictionary is a named, loaded dictionary plus its optional upstream
// fallback target.
type Dictionary struct {
	ShortName string
	LongName  string
	Path      string
	Fallback  *fallback.Target // nil if none configured
	Store     *store.Map
}

// Registry is the frozen short_name -> Dictionary mapping shared by every
// session once loading completes.
type Registry struct {
	order  []*Dictionary
	byName map[string]*Dictionary
	pool   *workerpool.Pool
}

// New builds a registry from dicts, preserving their given order as the
// registration order used by SHOW DB and the "*"/"all"/"!" selector.
func New(dicts []*Dictionary, pool *workerpool.Pool) *Registry {
	byName := make(map[string]*Dictionary, len(dicts))
	for _, d := range dicts {
		byName[d.ShortName] = d
	}
	return &Registry{order: dicts, byName: byName, pool: pool}
}

// DatabaseInfo is one row of SHOW DB.
type DatabaseInfo struct {
	ShortName string
	LongName  string
}

// ShowDatabases returns every registered dictionary's (short_name,
// long_name) in registration order.
func (r *Registry) ShowDatabases() []DatabaseInfo {
	out := make([]DatabaseInfo, len(r.order))
	for i, d := range r.order {
		out[i] = DatabaseInfo{ShortName: d.ShortName, LongName: d.LongName}
	}
	return out
}

// isAllSelector reports whether name selects every registered dictionary.
func isAllSelector(name string) bool {
	return name == "*" || name == "all" || name == "!"
}

// filter resolves a database-name argument to the dictionaries it selects.
func (r *Registry) filter(name string) []*Dictionary {
	if isAllSelector(name) {
		return r.order
	}
	if d, ok := r.byName[name]; ok {
		return []*Dictionary{d}
	}
	return nil
}

// LookupResult is one (display-name, definition) pair.
type LookupResult struct {
	DisplayName string
	LongName    string
	Definition  string
}

// Lookup satisfies DEFINE: it fans the query out in parallel across every
// dictionary selected by name, consulting a dictionary's upstream fallback
// only when that dictionary's own store has no match. Fallback requests
// run after the parallel local pass, one dictionary at a time.
func (r *Registry) Lookup(ctx context.Context, word, name string) ([]LookupResult, error) {
	selection := r.filter(name)
	if len(selection) == 0 {
		return nil, &dicterrors.DbNotFoundError{Name: name}
	}

	perDict := make([][]LookupResult, len(selection))
	fns := make([]func(context.Context) error, len(selection))
	for i, d := range selection {
		i, d := i, d
		fns[i] = func(context.Context) error {
			if def, ok := d.Store.Get(word); ok {
				perDict[i] = []LookupResult{{DisplayName: d.ShortName, LongName: d.LongName, Definition: def}}
			}
			return nil
		}
	}
	if err := r.pool.Run(ctx, fns); err != nil {
		return nil, err
	}

	// The upstream fallback waits on network I/O, so it runs here on the
	// caller's goroutine rather than inside a pool worker.
	for i, d := range selection {
		if perDict[i] == nil && d.Fallback != nil {
			perDict[i] = lookupOne(ctx, d, word)
		}
	}

	var results []LookupResult
	for _, rs := range perDict {
		results = append(results, rs...)
	}
	if len(results) == 0 {
		return nil, &dicterrors.WordNotFoundError{Word: word}
	}
	return results, nil
}

func lookupOne(ctx context.Context, d *Dictionary, word string) []LookupResult {
	if def, ok := d.Store.Get(word); ok {
		return []LookupResult{{DisplayName: d.ShortName, LongName: d.LongName, Definition: def}}
	}

	if d.Fallback == nil {
		return nil
	}

	lines, err := fallback.Define(ctx, *d.Fallback, word)
	if err != nil || !fallback.Succeeded(lines) {
		return nil
	}

	defs := fallback.Definitions(lines)
	results := make([]LookupResult, len(defs))
	for i, def := range defs {
		results[i] = LookupResult{DisplayName: d.Fallback.RemoteDB, LongName: d.Fallback.RemoteDB, Definition: def}
	}
	return results
}

// Strategy selects MATCH's comparison mode.
type Strategy int

const (
	// StrategyExact matches a head-word equal to the query.
	StrategyExact Strategy = iota
	// StrategyPrefix matches a head-word beginning with the query.
	StrategyPrefix
)

// ParseStrategy parses a MATCH strategy token case-insensitively.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToUpper(s) {
	case "EXACT":
		return StrategyExact, true
	case "PREFIX":
		return StrategyPrefix, true
	default:
		return 0, false
	}
}

// MatchResult is one (display-name, matched-word) pair.
type MatchResult struct {
	DisplayName string
	Word        string
}

// Match satisfies MATCH. Per the spec's preserved design choice, it returns
// at most one result per dictionary even for PREFIX, where more than one
// head-word might begin with the query.
func (r *Registry) Match(ctx context.Context, word, name string, strategy Strategy) ([]MatchResult, error) {
	selection := r.filter(name)
	if len(selection) == 0 {
		return nil, &dicterrors.DbNotFoundError{Name: name}
	}

	perDict := make([]*MatchResult, len(selection))
	fns := make([]func(context.Context) error, len(selection))
	for i, d := range selection {
		i, d := i, d
		fns[i] = func(context.Context) error {
			perDict[i] = matchOne(d, word, strategy)
			return nil
		}
	}
	if err := r.pool.Run(ctx, fns); err != nil {
		return nil, err
	}

	var results []MatchResult
	for _, m := range perDict {
		if m != nil {
			results = append(results, *m)
		}
	}
	if len(results) == 0 {
		return nil, &dicterrors.WordNotFoundError{Word: word}
	}
	return results, nil
}

func matchOne(d *Dictionary, word string, strategy Strategy) *MatchResult {
	switch strategy {
	case StrategyExact:
		if w, ok := d.Store.ExactWord(word); ok {
			return &MatchResult{DisplayName: d.ShortName, Word: w}
		}
	case StrategyPrefix:
		if matches := d.Store.PrefixFind(word, 1); len(matches) > 0 {
			return &MatchResult{DisplayName: d.ShortName, Word: matches[0]}
		}
	}
	return nil
}

// Package selection implements the query algebra over artifact collections:
// selectors (predicate combinators), linkers (relational joins between a
// master artifact and a slave selection), sorters and demultiplexers.
//
// Every operation in this package is order-preserving: results are
// subsequences of their input collections in input order. Nothing here
// deduplicates and an empty result is never an error.
package selection

import (
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// Selector yields an ordered subset of an artifact universe.
type Selector interface {
	Select(universe []*artefact.Artifact) []*artefact.Artifact
}

// Func adapts a plain predicate to a Selector. The returned subset mirrors
// universe order.
type Func func(a *artefact.Artifact) bool

// Select filters the universe, keeping order.
func (f Func) Select(universe []*artefact.Artifact) []*artefact.Artifact {
	var out []*artefact.Artifact
	for _, a := range universe {
		if a != nil && f(a) {
			out = append(out, a)
		}
	}
	return out
}

// KeyValue selects artifacts whose value for key equals value. Key may be a
// well-known key or a user property key.
func KeyValue(key, value string) Selector {
	return Func(func(a *artefact.Artifact) bool {
		v, ok := a.Value(key)
		return ok && v == value
	})
}

// ByType selects artifacts of the given type.
func ByType(t artefact.Type) Selector {
	return Func(func(a *artefact.Artifact) bool { return a.Type == t })
}

// ByFormat selects artifacts of the given format.
func ByFormat(f artefact.Format) Selector {
	return Func(func(a *artefact.Artifact) bool { return a.Format == f })
}

// ByActionTag selects artifacts produced by the given action tag.
func ByActionTag(tag string) Selector {
	return Func(func(a *artefact.Artifact) bool { return a.ActionTag == tag })
}

// Validity keeps artifacts not flagged invalid.
func Validity() Selector {
	return Func(func(a *artefact.Artifact) bool { return !a.Invalid })
}

// Result keeps artifacts of type result.
func Result() Selector {
	return ByType(artefact.TypeResult)
}

// All keeps the whole universe.
func All() Selector {
	return Func(func(*artefact.Artifact) bool { return true })
}

// And selects the universe elements kept by every given selector.
// The result mirrors universe order, like all combinators.
func And(selectors ...Selector) Selector {
	return andSelector(selectors)
}

type andSelector []Selector

func (s andSelector) Select(universe []*artefact.Artifact) []*artefact.Artifact {
	out := universe
	for _, sel := range s {
		kept := membership(sel.Select(out))
		out = filterByMembership(out, kept, true)
	}
	// Normalize: a single filter pass over the original universe keeps
	// duplicates aligned with universe order.
	final := membership(out)
	return filterByMembership(universe, final, true)
}

// Or selects the universe elements kept by at least one selector.
func Or(selectors ...Selector) Selector {
	return orSelector(selectors)
}

type orSelector []Selector

func (s orSelector) Select(universe []*artefact.Artifact) []*artefact.Artifact {
	kept := map[*artefact.Artifact]bool{}
	for _, sel := range s {
		for a := range membership(sel.Select(universe)) {
			kept[a] = true
		}
	}
	return filterByMembership(universe, kept, true)
}

// Not selects the universe elements rejected by the given selector.
func Not(sel Selector) Selector {
	return notSelector{sel}
}

type notSelector struct{ inner Selector }

func (s notSelector) Select(universe []*artefact.Artifact) []*artefact.Artifact {
	kept := membership(s.inner.Select(universe))
	return filterByMembership(universe, kept, false)
}

func membership(list []*artefact.Artifact) map[*artefact.Artifact]bool {
	m := make(map[*artefact.Artifact]bool, len(list))
	for _, a := range list {
		m[a] = true
	}
	return m
}

func filterByMembership(universe []*artefact.Artifact, kept map[*artefact.Artifact]bool, keep bool) []*artefact.Artifact {
	var out []*artefact.Artifact
	for _, a := range universe {
		if kept[a] == keep {
			out = append(out, a)
		}
	}
	return out
}

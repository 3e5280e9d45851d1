package selection

import (
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// Linker joins one master artifact to the matching subset of a slave list.
//
// Link receives the full master list plus the index of the current master
// element so relation generators that need positional context (for example
// an ordinal pairing) can be expressed with the same contract. The returned
// slice is a subsequence of slaves in slave order. An empty result is a
// legal outcome and propagates through batch fan-out.
type Linker interface {
	Link(masters []*artefact.Artifact, masterIndex int, slaves []*artefact.Artifact) []*artefact.Artifact
}

// KeyLinker joins master and slave on equality of one or more keys.
// Composition is additive: every key must agree.
//
// With WildcardEmpty set, an empty value on either side of a key matches
// anything for that key ("None acts as wildcard" mode, used by the
// case-instance linker when instances are only partially annotated).
type KeyLinker struct {
	Keys          []string
	WildcardEmpty bool
}

// Link returns the slaves matching the master at masterIndex.
func (l KeyLinker) Link(masters []*artefact.Artifact, masterIndex int, slaves []*artefact.Artifact) []*artefact.Artifact {
	if masterIndex < 0 || masterIndex >= len(masters) {
		return nil
	}
	master := masters[masterIndex]
	if master == nil {
		return nil
	}
	var out []*artefact.Artifact
	for _, s := range slaves {
		if s == nil {
			continue
		}
		if l.matches(master, s) {
			out = append(out, s)
		}
	}
	return out
}

func (l KeyLinker) matches(master, slave *artefact.Artifact) bool {
	for _, key := range l.Keys {
		mv, _ := master.Value(key)
		sv, _ := slave.Value(key)
		if l.WildcardEmpty && (mv == "" || sv == "") {
			continue
		}
		if mv != sv {
			return false
		}
	}
	return true
}

// CaseLinker joins on the case key.
func CaseLinker() Linker {
	return KeyLinker{Keys: []string{artefact.KeyCase}}
}

// CaseInstanceLinker joins on case plus case instance. When wildcardEmpty is
// true an unset case instance on either side matches any instance.
func CaseInstanceLinker(wildcardEmpty bool) Linker {
	return KeyLinker{
		Keys:          []string{artefact.KeyCase, artefact.KeyCaseInstance},
		WildcardEmpty: wildcardEmpty,
	}
}

// FractionLinker joins on case plus timepoint.
func FractionLinker() Linker {
	return KeyLinker{Keys: []string{artefact.KeyCase, artefact.KeyTimepoint}}
}

// CaseInstanceFractionLinker joins on case, case instance and timepoint.
func CaseInstanceFractionLinker() Linker {
	return KeyLinker{Keys: []string{artefact.KeyCase, artefact.KeyCaseInstance, artefact.KeyTimepoint}}
}

// IdentityLinker joins a master only to slaves carrying the same artifact id.
type IdentityLinker struct{}

// Link returns the slaves whose id equals the master's id.
func (IdentityLinker) Link(masters []*artefact.Artifact, masterIndex int, slaves []*artefact.Artifact) []*artefact.Artifact {
	if masterIndex < 0 || masterIndex >= len(masters) || masters[masterIndex] == nil {
		return nil
	}
	id := masters[masterIndex].ID
	var out []*artefact.Artifact
	for _, s := range slaves {
		if s != nil && s.ID == id {
			out = append(out, s)
		}
	}
	return out
}

package selection

import (
	"testing"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

func testArtifact(caseID, tag string, typ artefact.Type) *artefact.Artifact {
	a := artefact.New(tag)
	a.Case = caseID
	a.Type = typ
	return a
}

func ids(list []*artefact.Artifact) []string {
	var out []string
	for _, a := range list {
		if a == nil {
			out = append(out, "<nil>")
			continue
		}
		out = append(out, a.ID)
	}
	return out
}

func sameOrder(t *testing.T, got, want []*artefact.Artifact) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d artifacts %v, want %d %v", len(got), ids(got), len(want), ids(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, ids(got), ids(want))
		}
	}
}

func TestKeyValue_FiltersAndPreservesOrder(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	b := testArtifact("c2", "IN", artefact.TypeResult)
	c := testArtifact("c1", "IN", artefact.TypeResult)
	universe := []*artefact.Artifact{a, b, c}

	got := KeyValue(artefact.KeyCase, "c1").Select(universe)
	sameOrder(t, got, []*artefact.Artifact{a, c})
}

func TestSelectors_EmptyResultIsNotAnError(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	got := KeyValue(artefact.KeyCase, "missing").Select([]*artefact.Artifact{a})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
}

func TestSelectors_DuplicatesAreKept(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	universe := []*artefact.Artifact{a, a}

	got := KeyValue(artefact.KeyCase, "c1").Select(universe)
	sameOrder(t, got, []*artefact.Artifact{a, a})
}

func TestAnd_Conjunction(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	b := testArtifact("c1", "IN", artefact.TypeConfig)
	c := testArtifact("c2", "IN", artefact.TypeResult)
	universe := []*artefact.Artifact{a, b, c}

	got := And(KeyValue(artefact.KeyCase, "c1"), Result()).Select(universe)
	sameOrder(t, got, []*artefact.Artifact{a})
}

func TestOr_UnionKeepsUniverseOrder(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	b := testArtifact("c2", "IN", artefact.TypeResult)
	c := testArtifact("c3", "IN", artefact.TypeResult)
	universe := []*artefact.Artifact{a, b, c}

	// c3 matches the first branch, c1 the second; order still mirrors
	// the universe, not the branch order.
	got := Or(KeyValue(artefact.KeyCase, "c3"), KeyValue(artefact.KeyCase, "c1")).Select(universe)
	sameOrder(t, got, []*artefact.Artifact{a, c})
}

func TestNot_Complement(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	b := testArtifact("c2", "IN", artefact.TypeResult)
	universe := []*artefact.Artifact{a, b}

	got := Not(KeyValue(artefact.KeyCase, "c1")).Select(universe)
	sameOrder(t, got, []*artefact.Artifact{b})
}

func TestValidity_DropsInvalid(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	b := testArtifact("c2", "IN", artefact.TypeResult)
	b.Invalid = true

	got := Validity().Select([]*artefact.Artifact{a, b})
	sameOrder(t, got, []*artefact.Artifact{a})
}

func TestByFormatAndByActionTag(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	a.Format = artefact.FormatITK
	b := testArtifact("c1", "Reg", artefact.TypeResult)
	b.Format = artefact.FormatDICOM
	universe := []*artefact.Artifact{a, b}

	sameOrder(t, ByFormat(artefact.FormatITK).Select(universe), []*artefact.Artifact{a})
	sameOrder(t, ByActionTag("Reg").Select(universe), []*artefact.Artifact{b})
}

func TestCombinators_AreClosedUnderComposition(t *testing.T) {
	a := testArtifact("c1", "IN", artefact.TypeResult)
	b := testArtifact("c2", "IN", artefact.TypeResult)
	c := testArtifact("c2", "Reg", artefact.TypeConfig)
	universe := []*artefact.Artifact{a, b, c}

	composed := Or(
		And(Result(), KeyValue(artefact.KeyCase, "c2")),
		Not(ByActionTag("IN")),
	)
	got := composed.Select(universe)
	sameOrder(t, got, []*artefact.Artifact{b, c})
}

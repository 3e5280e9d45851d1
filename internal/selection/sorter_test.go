package selection

import (
	"testing"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

func tpArtifact(caseID, timepoint string) *artefact.Artifact {
	a := artefact.New("IN")
	a.Case = caseID
	a.Timepoint = timepoint
	return a
}

func TestPropertySorter_NumericCoercion(t *testing.T) {
	// Lexically "10" < "2"; numerically 2 < 10.
	a10 := tpArtifact("c1", "10")
	a2 := tpArtifact("c1", "2")
	a1 := tpArtifact("c1", "1")

	got := PropertySorter{Key: artefact.KeyTimepoint}.Sorted([]*artefact.Artifact{a10, a2, a1})
	sameOrder(t, got, []*artefact.Artifact{a1, a2, a10})
}

func TestPropertySorter_LexicalFallback(t *testing.T) {
	b := tpArtifact("c1", "fx-b")
	a := tpArtifact("c1", "fx-a")

	got := PropertySorter{Key: artefact.KeyTimepoint}.Sorted([]*artefact.Artifact{b, a})
	sameOrder(t, got, []*artefact.Artifact{a, b})
}

func TestPropertySorter_StableOnTies(t *testing.T) {
	first := tpArtifact("c1", "1")
	second := tpArtifact("c2", "1")
	third := tpArtifact("c3", "1")

	got := PropertySorter{Key: artefact.KeyTimepoint}.Sorted([]*artefact.Artifact{first, second, third})
	sameOrder(t, got, []*artefact.Artifact{first, second, third})
}

func TestPropertySorter_DoesNotMutateInput(t *testing.T) {
	a2 := tpArtifact("c1", "2")
	a1 := tpArtifact("c1", "1")
	input := []*artefact.Artifact{a2, a1}

	PropertySorter{Key: artefact.KeyTimepoint}.Sorted(input)
	sameOrder(t, input, []*artefact.Artifact{a2, a1})
}

func TestPropertySorter_Descending(t *testing.T) {
	a1 := tpArtifact("c1", "1")
	a3 := tpArtifact("c1", "3")
	a2 := tpArtifact("c1", "2")

	got := PropertySorter{Key: artefact.KeyTimepoint, Descending: true}.Sorted([]*artefact.Artifact{a1, a3, a2})
	sameOrder(t, got, []*artefact.Artifact{a3, a2, a1})
}

func TestDemultiplexer_PartitionByCase(t *testing.T) {
	a := tpArtifact("c1", "0")
	b := tpArtifact("c2", "0")
	c := tpArtifact("c1", "1")
	universe := []*artefact.Artifact{a, b, c}

	values, selectors := Demultiplexer{Key: artefact.KeyCase}.Partition(universe)
	if len(values) != 2 || values[0] != "c1" || values[1] != "c2" {
		t.Fatalf("values = %v, want [c1 c2] in first-appearance order", values)
	}
	sameOrder(t, selectors["c1"].Select(universe), []*artefact.Artifact{a, c})
	sameOrder(t, selectors["c2"].Select(universe), []*artefact.Artifact{b})
}

func TestCasesAndTimepoints_Enumerations(t *testing.T) {
	universe := []*artefact.Artifact{
		tpArtifact("c2", "1"),
		tpArtifact("c1", "0"),
		tpArtifact("c2", "0"),
	}

	cases := Cases(universe)
	if len(cases) != 2 || cases[0] != "c2" || cases[1] != "c1" {
		t.Fatalf("cases = %v, want [c2 c1]", cases)
	}
	tps := Timepoints(universe)
	if len(tps) != 2 || tps[0] != "1" || tps[1] != "0" {
		t.Fatalf("timepoints = %v, want [1 0]", tps)
	}
}

package artefact

import (
	"testing"
)

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := New("Convert")
	b := New("Convert")

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty ids")
	}
	if a.ID == b.ID {
		t.Fatalf("expected unique ids, both are %s", a.ID)
	}
	if a.ActionTag != "Convert" {
		t.Errorf("action tag = %q, want Convert", a.ActionTag)
	}
	if a.Type != TypeResult {
		t.Errorf("default type = %q, want result", a.Type)
	}
}

func TestSimilar_AgreesOnIdentifyingKeys(t *testing.T) {
	a := New("Convert")
	a.Case = "c1"
	a.CaseInstance = "i1"
	a.Timepoint = "0"
	a.Format = FormatITK

	b := a.Clone()
	b.ID = "different-id"
	b.URL = "/somewhere/else.nrrd"
	b.Invalid = true

	// id, url and validity are not identifying keys.
	if !a.Similar(b) {
		t.Error("artifacts differing only in id/url/validity should be similar")
	}

	b.Timepoint = "1"
	if a.Similar(b) {
		t.Error("artifacts with different timepoints must not be similar")
	}
}

func TestSimilar_DistinguishesObjectiveAndSubTag(t *testing.T) {
	a := New("Stats")
	a.Objective = "heart"

	b := a.Clone()
	b.ID = "x"
	b.Objective = "lung"
	if a.Similar(b) {
		t.Error("different objectives must not be similar")
	}

	c := a.Clone()
	c.ID = "y"
	c.ResultSubTag = "2"
	if a.Similar(c) {
		t.Error("different result sub tags must not be similar")
	}
}

func TestValue_WellKnownAndUserKeys(t *testing.T) {
	a := New("Reg")
	a.Case = "c7"
	a.Properties["structure"] = "heart"

	if v, ok := a.Value(KeyCase); !ok || v != "c7" {
		t.Errorf("Value(case) = %q/%v, want c7/true", v, ok)
	}
	if v, ok := a.Value("structure"); !ok || v != "heart" {
		t.Errorf("Value(structure) = %q/%v, want heart/true", v, ok)
	}
	if _, ok := a.Value("nope"); ok {
		t.Error("unknown key should report absence")
	}
}

func TestSetValue_RoundTripsEveryWellKnownKey(t *testing.T) {
	pairs := map[string]string{
		KeyCase:              "c1",
		KeyCaseInstance:      "i2",
		KeyTimepoint:         "3",
		KeyActionTag:         "Reg",
		KeyType:              "config",
		KeyFormat:            "dicom",
		KeyObjective:         "ptv",
		KeyURL:               "/data/x.dcm",
		KeyInvalid:           "true",
		KeyExecutionDuration: "1.5",
		KeyResultSubTag:      "4",
	}

	a := New("Reg")
	for k, v := range pairs {
		if err := a.SetValue(k, v); err != nil {
			t.Fatalf("SetValue(%s, %s): %v", k, v, err)
		}
	}
	for k, want := range pairs {
		got, ok := a.Value(k)
		if !ok || got != want {
			t.Errorf("Value(%s) = %q/%v, want %q", k, got, ok, want)
		}
	}
}

func TestSetValue_RejectsUnknownType(t *testing.T) {
	a := New("Reg")
	if err := a.SetValue(KeyType, "bogus"); err == nil {
		t.Error("expected error for unknown artifact type")
	}
	if err := a.SetValue(KeyInvalid, "maybe"); err == nil {
		t.Error("expected error for non-boolean validity")
	}
}

func TestSetValue_UnknownKeyGoesToPropertyBag(t *testing.T) {
	a := &Artifact{}
	if err := a.SetValue("future_key", "future_value"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if a.Properties["future_key"] != "future_value" {
		t.Error("unknown key should land in the property bag")
	}
}

func TestClone_IsDeep(t *testing.T) {
	a := New("Reg")
	a.Properties["k"] = "v"

	b := a.Clone()
	b.Properties["k"] = "changed"

	if a.Properties["k"] != "v" {
		t.Error("mutating the clone's property bag must not affect the original")
	}
}

func TestUserKeys_Sorted(t *testing.T) {
	a := New("Reg")
	a.Properties["zeta"] = "1"
	a.Properties["alpha"] = "2"
	a.Properties["mid"] = "3"

	keys := a.UserKeys()
	want := []string{"alpha", "mid", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

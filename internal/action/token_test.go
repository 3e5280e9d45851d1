package action

import (
	"errors"
	"testing"
	"time"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

func TestToken_String(t *testing.T) {
	tok := &Token{
		SessionName:  "sess",
		ActionTag:    "Convert",
		InstanceName: "Convert_ab12cd34",
		State:        StateSuccess,
	}
	want := "Convert_ab12cd34@Convert@sess::success"
	if got := tok.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestToken_RecordCarriesArtifactIDs(t *testing.T) {
	a := artefact.New("Convert")
	b := artefact.New("Convert")
	tok := &Token{
		SessionName:  "sess",
		ActionTag:    "Convert",
		InstanceName: "Convert_x",
		State:        StateFailure,
		Generated:    []*artefact.Artifact{a, b},
		Duration:     1500 * time.Millisecond,
	}

	rec := tok.Record()
	if rec.State != "failure" || rec.DurationSeconds != 1.5 {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.ArtifactIDs) != 2 || rec.ArtifactIDs[0] != a.ID || rec.ArtifactIDs[1] != b.ID {
		t.Errorf("artifact ids = %v, want [%s %s]", rec.ArtifactIDs, a.ID, b.ID)
	}
}

func TestFold_AllSkippedStaysSkipped(t *testing.T) {
	children := []*Token{
		{State: StateSkipped},
		{State: StateSkipped},
	}
	if got := Fold("s", "T", "T_batch", children); got.State != StateSkipped {
		t.Errorf("state = %s, want skipped", got.State)
	}
}

func TestFold_SuccessUpgrades(t *testing.T) {
	children := []*Token{
		{State: StateSkipped},
		{State: StateSuccess},
		{State: StateSkipped},
	}
	if got := Fold("s", "T", "T_batch", children); got.State != StateSuccess {
		t.Errorf("state = %s, want success", got.State)
	}
}

func TestFold_FailureDominatesRegardlessOfOrder(t *testing.T) {
	boom := errors.New("boom")
	children := []*Token{
		{State: StateFailure, Err: boom},
		{State: StateSuccess},
		{State: StateSuccess},
	}
	got := Fold("s", "T", "T_batch", children)
	if got.State != StateFailure {
		t.Errorf("state = %s, want failure", got.State)
	}
	if got.Err != boom {
		t.Errorf("err = %v, want the first child failure", got.Err)
	}
}

func TestFold_ConcatenatesGeneratedInChildOrder(t *testing.T) {
	a := artefact.New("T")
	b := artefact.New("T")
	c := artefact.New("T")
	children := []*Token{
		{State: StateSuccess, Generated: []*artefact.Artifact{a}, Duration: time.Second},
		{State: StateSkipped, Generated: []*artefact.Artifact{b, c}, Duration: 2 * time.Second},
	}

	got := Fold("s", "T", "T_batch", children)
	if len(got.Generated) != 3 || got.Generated[0] != a || got.Generated[1] != b || got.Generated[2] != c {
		t.Errorf("generated order wrong: %v", got.Generated)
	}
	if got.Duration != 3*time.Second {
		t.Errorf("duration = %v, want 3s", got.Duration)
	}
}

func TestFold_EmptyChildListIsSkipped(t *testing.T) {
	got := Fold("s", "T", "T_batch", nil)
	if got.State != StateSkipped || len(got.Generated) != 0 {
		t.Errorf("folded empty list = %+v, want skipped with no artifacts", got)
	}
}

func TestFold_IgnoresNilChildren(t *testing.T) {
	got := Fold("s", "T", "T_batch", []*Token{nil, {State: StateSuccess}})
	if got.State != StateSuccess {
		t.Errorf("state = %s, want success", got.State)
	}
}

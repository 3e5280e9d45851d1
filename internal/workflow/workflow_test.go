package workflow

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/MIC-DKFZ/AVID-sub001/internal/action"
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
	"github.com/MIC-DKFZ/AVID-sub001/internal/settings"
)

func TestParse_MinimalWorkflow(t *testing.T) {
	data := []byte(`
label: demo
steps:
  - tool: conv
    select:
      action_tag: IN
    output_extension: nrrd
`)
	wf, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if wf.Label != "demo" || len(wf.Steps) != 1 || wf.Steps[0].Tool != "conv" {
		t.Errorf("parsed workflow = %+v", wf)
	}
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"empty payload", "", "empty"},
		{"no steps", "label: x", "no steps"},
		{"missing tool", "steps:\n  - select: {action_tag: IN}", "missing tool"},
		{"missing select", "steps:\n  - tool: conv", "missing select"},
		{"incomplete linked", "steps:\n  - tool: reg\n    select: {action_tag: CT}\n    linked:\n      - alias: moving", "incomplete linked"},
		{"unknown linker", "steps:\n  - tool: reg\n    select: {action_tag: CT}\n    linked:\n      - alias: moving\n        select: {action_tag: MR}\n        link: teleport", "unknown linker"},
	}
	for _, c := range cases {
		_, err := Parse([]byte(c.data))
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: err = %v, want containing %q", c.name, err, c.want)
		}
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing workflow file")
	}
}

func TestBatches_StepTranslation(t *testing.T) {
	sess := session.New("s", t.TempDir(), nil)
	ct := artefact.New("CT")
	ct.Case = "c1"
	if err := sess.AddArtifact(ct); err != nil {
		t.Fatal(err)
	}

	wf, err := Parse([]byte(`
steps:
  - tool: reg
    tag: Registration
    alias: target
    select:
      action_tag: CT
    linked:
      - alias: moving
        select:
          action_tag: MR
        link: case
    output_extension: mapr
`))
	if err != nil {
		t.Fatal(err)
	}

	batches, err := wf.Batches(sess)
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("built %d batches, want 1", len(batches))
	}
	if batches[0].Tag() != "Registration" {
		t.Errorf("batch tag = %q, want the step tag override", batches[0].Tag())
	}
}

func TestRun_ExecutesStepsOverSession(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell tool fixtures require a POSIX shell")
	}
	root := t.TempDir()

	tool := filepath.Join(root, "conv.sh")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\ncp \"$1\" \"$2\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	st := settings.Default()
	st.SubprocessPause = 5 * time.Millisecond
	st.ActionTimeout = 50 * time.Millisecond
	st.ToolOverrides["conv"] = tool

	in := artefact.New("IN")
	in.Case = "c1"
	in.URL = filepath.Join(root, "a.nrrd")
	if err := os.WriteFile(in.URL, []byte("voxels"), 0o644); err != nil {
		t.Fatal(err)
	}

	sess := session.New("wf", root, st)
	if err := sess.AddArtifact(in); err != nil {
		t.Fatal(err)
	}

	wf, err := Parse([]byte(`
steps:
  - tool: conv
    select:
      action_tag: IN
    positions: [input]
    output_extension: nrrd
`))
	if err != nil {
		t.Fatal(err)
	}

	tokens, err := wf.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tokens) != 1 || tokens[0].State != action.StateSuccess {
		t.Fatalf("tokens = %v", tokens)
	}
	if len(tokens[0].Generated) != 1 {
		t.Fatalf("generated %d artifacts", len(tokens[0].Generated))
	}
	data, err := os.ReadFile(tokens[0].Generated[0].URL)
	if err != nil {
		t.Fatalf("output payload missing: %v", err)
	}
	if string(data) != "voxels" {
		t.Errorf("output payload = %q", data)
	}
	if len(sess.Tokens()) != 1 {
		t.Errorf("session token log has %d entries, want 1", len(sess.Tokens()))
	}
}

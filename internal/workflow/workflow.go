// Package workflow loads declarative workflow files: an ordered list of
// CLI tool steps over a session, each with a primary selection, optional
// linked secondary selections and the argument layout of the wrapped tool.
//
// The workflow file is the host-program surface; the execution semantics
// live entirely in the action and cliaction packages.
package workflow

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MIC-DKFZ/AVID-sub001/internal/action"
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/cliaction"
	"github.com/MIC-DKFZ/AVID-sub001/internal/selection"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
)

// Workflow is a parsed workflow file.
type Workflow struct {
	Label string `yaml:"label"`
	Steps []Step `yaml:"steps"`
}

// Step describes one batch of CLI tool invocations.
type Step struct {
	// Tool is the action id resolved by the executable locator. Required.
	Tool string `yaml:"tool"`

	// Tag overrides the action tag; defaults to Tool.
	Tag string `yaml:"tag"`

	// Alias is the CLI argument key the primary input is passed under.
	// Defaults to "input".
	Alias string `yaml:"alias"`

	// Select is a key=value conjunction choosing the primary inputs.
	Select map[string]string `yaml:"select"`

	// Linked lists secondary selections joined to the primary.
	Linked []LinkedStep `yaml:"linked"`

	// Positions, OutputFlag, Args and Switches describe the tool's
	// argument layout.
	Positions  []string          `yaml:"positions"`
	OutputFlag string            `yaml:"output_flag"`
	Args       map[string]string `yaml:"args"`
	Switches   []string          `yaml:"switches"`

	// OutputExtension and OutputFormat describe the produced payload.
	OutputExtension string `yaml:"output_extension"`
	OutputFormat    string `yaml:"output_format"`

	// AlwaysDo disables the necessity check for this step.
	AlwaysDo bool `yaml:"always_do"`
}

// LinkedStep pairs a secondary selection with a named linker.
type LinkedStep struct {
	Alias  string            `yaml:"alias"`
	Select map[string]string `yaml:"select"`
	Link   string            `yaml:"link"`
}

// Parse decodes and validates a workflow payload.
func Parse(data []byte) (*Workflow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("workflow: payload is empty")
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("workflow: decode: %w", err)
	}
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("workflow: no steps")
	}
	for i, step := range wf.Steps {
		if step.Tool == "" {
			return nil, fmt.Errorf("workflow: step %d: missing tool", i)
		}
		if len(step.Select) == 0 {
			return nil, fmt.Errorf("workflow: step %d (%s): missing select", i, step.Tool)
		}
		for _, l := range step.Linked {
			if l.Alias == "" || len(l.Select) == 0 {
				return nil, fmt.Errorf("workflow: step %d (%s): incomplete linked input", i, step.Tool)
			}
			if _, err := linkerByName(l.Link); err != nil {
				return nil, fmt.Errorf("workflow: step %d (%s): %w", i, step.Tool, err)
			}
		}
	}
	return &wf, nil
}

// LoadFile reads and parses a workflow file.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("workflow: %s: %w", path, err)
	}
	return wf, nil
}

// linkerByName maps the workflow file linker vocabulary to linkers.
func linkerByName(name string) (selection.Linker, error) {
	switch name {
	case "", "case":
		return selection.CaseLinker(), nil
	case "case_instance":
		return selection.CaseInstanceLinker(true), nil
	case "fraction":
		return selection.FractionLinker(), nil
	case "case_instance_fraction":
		return selection.CaseInstanceFractionLinker(), nil
	case "identity":
		return selection.IdentityLinker{}, nil
	}
	return nil, fmt.Errorf("unknown linker %q", name)
}

// selectorFor builds the conjunction selector of a key=value map.
func selectorFor(keys map[string]string) selection.Selector {
	selectors := []selection.Selector{selection.Result(), selection.Validity()}
	for k, v := range keys {
		selectors = append(selectors, selection.KeyValue(k, v))
	}
	return selection.And(selectors...)
}

// Batches translates the workflow steps into batch actions over the
// session, in step order.
func (wf *Workflow) Batches(sess *session.Session) ([]*action.Batch, error) {
	var batches []*action.Batch
	for i := range wf.Steps {
		step := wf.Steps[i]
		if step.Tag == "" {
			step.Tag = step.Tool
		}
		if step.Alias == "" {
			step.Alias = "input"
		}

		var additional []action.LinkedInput
		for _, l := range step.Linked {
			linker, err := linkerByName(l.Link)
			if err != nil {
				return nil, err
			}
			additional = append(additional, action.LinkedInput{
				Alias:    l.Alias,
				Selector: selectorFor(l.Select),
				Linker:   linker,
			})
		}

		batch, err := action.NewBatch(sess, action.BatchConfig{
			Tag:          step.Tag,
			PrimaryAlias: step.Alias,
			Primary:      selectorFor(step.Select),
			Additional:   additional,
			Factory:      stepFactory(step),
		})
		if err != nil {
			return nil, fmt.Errorf("workflow: step %d (%s): %w", i, step.Tool, err)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// stepFactory builds the per-tuple CLI action constructor for one step.
func stepFactory(step Step) action.Factory {
	return action.SingleFactory(func(sess *session.Session, inputs map[string][]*artefact.Artifact) (action.Action, error) {
		extra := map[string]*string{}
		for k, v := range step.Args {
			value := v
			extra[k] = &value
		}
		for _, sw := range step.Switches {
			extra[sw] = nil
		}
		var outputFlags []string
		if step.OutputFlag != "" {
			outputFlags = []string{step.OutputFlag}
		}
		return cliaction.New(sess, cliaction.Config{
			ActionID:        step.Tool,
			Tag:             step.Tag,
			Inputs:          inputs,
			ReferenceSlot:   step.Alias,
			OutputExtension: step.OutputExtension,
			OutputFormat:    artefact.Format(step.OutputFormat),
			OutputFlags:     outputFlags,
			ExtraArgs:       extra,
			Positions:       step.Positions,
			AlwaysDo:        step.AlwaysDo,
		})
	})
}

// Run executes every step's batch in order and returns the folded tokens.
// A failing step does not stop later steps; the caller inspects states.
func (wf *Workflow) Run(ctx context.Context, sess *session.Session) ([]*action.Token, error) {
	batches, err := wf.Batches(sess)
	if err != nil {
		return nil, err
	}
	var tokens []*action.Token
	for _, b := range batches {
		tokens = append(tokens, b.Do(ctx, true))
	}
	return tokens, nil
}

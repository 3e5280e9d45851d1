package action

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
)

// Action is the contract shared by single and batch actions.
type Action interface {
	// Tag names the action; outputs carry it as their producer tag.
	Tag() string

	// InstanceName is a stable identifier derived from tag and inputs,
	// used for filenames and logging.
	InstanceName() string

	// IndicateOutputs returns the outputs the action will produce. The
	// result is computed once and cached.
	IndicateOutputs() ([]*artefact.Artifact, error)

	// Do triggers processing and returns the outcome token. Failures in
	// generation never escape; they fold into a failure token.
	Do(ctx context.Context, autoRegister bool) *Token
}

// Generator supplies the derived behavior of a single action: which
// outputs it indicates and how it produces them. The CLI adapter is the
// main implementation; tests use in-process fakes.
type Generator interface {
	Indicate(a *Single) ([]*artefact.Artifact, error)
	Generate(ctx context.Context, a *Single, outputs []*artefact.Artifact) error
}

// Collector post-processes outputs after generation, e.g. replacing one
// indicated output with the per-timestep files a splitting tool wrote.
// Returning an empty list keeps the indicated outputs.
type Collector interface {
	Collect(a *Single, outputs []*artefact.Artifact) ([]*artefact.Artifact, error)
}

// SingleConfig configures a single action.
type SingleConfig struct {
	// Tag is the action tag. Required.
	Tag string

	// Inputs maps input slot names to artifact lists. A nil artifact in a
	// slot marks an absent linked secondary.
	Inputs map[string][]*artefact.Artifact

	// AdditionalProps are user properties merged into every output.
	AdditionalProps map[string]string

	// InheritUserProps copies every user property of the reference input
	// onto outputs that do not already carry the key.
	InheritUserProps bool

	// AlwaysDo disables the necessity check; the action runs even when a
	// valid equivalent result already exists.
	AlwaysDo bool

	// Generator is the derived behavior. Required.
	Generator Generator

	// Collector optionally post-processes generated outputs.
	Collector Collector
}

// Single is one unit of work turning input artifacts into output
// artifacts. It is a short-lived value holding references into the
// session's store; the session owns every artifact.
type Single struct {
	session *session.Session
	cfg     SingleConfig

	indicated     []*artefact.Artifact
	indicatedOnce bool
	instanceName  string
}

// NewSingle validates the configuration and builds the action.
// Configuration mistakes are returned here, not folded into tokens.
func NewSingle(sess *session.Session, cfg SingleConfig) (*Single, error) {
	if sess == nil {
		return nil, fmt.Errorf("action: nil session")
	}
	if cfg.Tag == "" {
		return nil, fmt.Errorf("action: empty tag")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("action %s: nil generator", cfg.Tag)
	}
	return &Single{session: sess, cfg: cfg}, nil
}

// Session returns the session handle.
func (a *Single) Session() *session.Session { return a.session }

// Tag returns the action tag.
func (a *Single) Tag() string { return a.cfg.Tag }

// AlwaysDo reports whether the necessity check is disabled.
func (a *Single) AlwaysDo() bool { return a.cfg.AlwaysDo }

// InputSlots returns the sorted input slot names.
func (a *Single) InputSlots() []string {
	slots := make([]string, 0, len(a.cfg.Inputs))
	for name := range a.cfg.Inputs {
		slots = append(slots, name)
	}
	sort.Strings(slots)
	return slots
}

// Inputs returns the artifacts of one input slot.
func (a *Single) Inputs(slot string) []*artefact.Artifact {
	return a.cfg.Inputs[slot]
}

// Reference returns the first non-nil input artifact across slots in slot
// name order. It is the default property-inheritance source.
func (a *Single) Reference() *artefact.Artifact {
	for _, slot := range a.InputSlots() {
		for _, in := range a.cfg.Inputs[slot] {
			if in != nil {
				return in
			}
		}
	}
	return nil
}

// InstanceName derives a stable name from the tag and input ids.
func (a *Single) InstanceName() string {
	if a.instanceName != "" {
		return a.instanceName
	}
	parts := []string{a.cfg.Tag}
	for _, slot := range a.InputSlots() {
		for _, in := range a.cfg.Inputs[slot] {
			if in != nil {
				parts = append(parts, in.ShortID())
			}
		}
	}
	a.instanceName = strings.Join(parts, "_")
	return a.instanceName
}

// IndicateOutputs computes the indicated outputs once and caches them.
func (a *Single) IndicateOutputs() ([]*artefact.Artifact, error) {
	if a.indicatedOnce {
		return a.indicated, nil
	}
	outputs, err := a.cfg.Generator.Indicate(a)
	if err != nil {
		return nil, fmt.Errorf("action %s: indicate: %w", a.cfg.Tag, err)
	}
	a.indicated = outputs
	a.indicatedOnce = true
	return outputs, nil
}

// GenerateArtifact derives an output artifact from a reference input.
//
// The output receives a fresh id, this action's tag as producer, the
// reference's case scope keys (case, case instance, timepoint), the
// action's additional properties and, when inheritance is on, the
// reference's user properties. Overrides are applied last by key name and
// may set any well-known or user key. The payload URL derives from the
// session layout rule and the given extension.
func (a *Single) GenerateArtifact(ref *artefact.Artifact, overrides map[string]string, ext string) (*artefact.Artifact, error) {
	out := artefact.New(a.cfg.Tag)
	if ref != nil {
		out.Case = ref.Case
		out.Timepoint = ref.Timepoint
		out.Format = ref.Format
	}
	out.CaseInstance = a.outputCaseInstance(ref)

	for k, v := range a.cfg.AdditionalProps {
		out.Properties[k] = v
	}
	if a.cfg.InheritUserProps && ref != nil {
		for k, v := range ref.Properties {
			if _, exists := out.Properties[k]; !exists {
				out.Properties[k] = v
			}
		}
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := out.SetValue(k, overrides[k]); err != nil {
			return nil, fmt.Errorf("action %s: override %s: %w", a.cfg.Tag, k, err)
		}
	}

	out.URL = a.session.ArtifactPath(out, a.InstanceName(), ext)
	return out, nil
}

// outputCaseInstance computes the single case-instance scope of outputs.
// Conflicting case instances between co-inputs are a warning, not an
// error; the merged scope is then unset.
func (a *Single) outputCaseInstance(ref *artefact.Artifact) string {
	distinct := map[string]bool{}
	for _, slot := range a.InputSlots() {
		for _, in := range a.cfg.Inputs[slot] {
			if in != nil && in.CaseInstance != "" {
				distinct[in.CaseInstance] = true
			}
		}
	}
	switch len(distinct) {
	case 0:
		return ""
	case 1:
		for ci := range distinct {
			return ci
		}
	}
	log.Printf("action %s: conflicting case instances between co-inputs of %s; output scope left unset", a.cfg.Tag, a.InstanceName())
	return ""
}

// Do runs the lifecycle: necessity check, shielded generation, output
// collection, validation against the filesystem, duration stamping and
// commit. With autoRegister the resulting token is also registered in the
// session's token log.
func (a *Single) Do(ctx context.Context, autoRegister bool) *Token {
	tok := &Token{
		SessionName:  a.session.Name(),
		ActionTag:    a.cfg.Tag,
		InstanceName: a.InstanceName(),
	}

	outputs, err := a.IndicateOutputs()
	if err != nil {
		tok.State = StateFailure
		tok.Err = err
		a.register(tok, autoRegister)
		return tok
	}

	if alternatives, satisfied := a.checkNecessity(outputs); satisfied {
		tok.State = StateSkipped
		tok.Generated = alternatives
		a.register(tok, autoRegister)
		return tok
	}

	start := time.Now()
	genErr := a.shieldedGenerate(ctx, outputs)
	tok.Duration = time.Since(start)

	committed := outputs
	if genErr == nil && a.cfg.Collector != nil {
		collected, colErr := a.shieldedCollect(outputs)
		if colErr != nil {
			genErr = colErr
		} else if len(collected) > 0 {
			committed = collected
		}
	}

	if genErr != nil {
		for _, out := range outputs {
			out.Invalid = true
		}
		tok.State = StateFailure
		tok.Err = genErr
	} else {
		tok.State = StateSuccess
		for _, out := range committed {
			if _, statErr := os.Stat(out.URL); statErr != nil {
				out.Invalid = true
				tok.State = StateFailure
			} else {
				out.Invalid = false
			}
		}
	}

	for _, out := range committed {
		out.ExecutionDuration = tok.Duration.Seconds()
		if err := a.session.AddArtifact(out); err != nil {
			tok.State = StateFailure
			if tok.Err == nil {
				tok.Err = err
			}
		}
	}
	tok.Generated = committed

	a.register(tok, autoRegister)
	return tok
}

// checkNecessity probes the session for valid, existing equivalents of
// every result output. It returns the alternatives and whether the action
// can be skipped entirely.
func (a *Single) checkNecessity(outputs []*artefact.Artifact) ([]*artefact.Artifact, bool) {
	if a.cfg.AlwaysDo {
		return nil, false
	}
	var alternatives []*artefact.Artifact
	results := 0
	for _, out := range outputs {
		if out.Type != artefact.TypeResult {
			continue
		}
		results++
		alts := a.validAlternatives(out)
		if len(alts) == 0 {
			return nil, false
		}
		alternatives = append(alternatives, alts...)
	}
	if results == 0 {
		return nil, false
	}
	return alternatives, true
}

// validAlternatives returns stored artifacts similar to ref that are not
// invalid and whose payload file exists.
func (a *Single) validAlternatives(ref *artefact.Artifact) []*artefact.Artifact {
	var out []*artefact.Artifact
	for _, alt := range a.session.FindSimilar(ref) {
		if alt.Invalid || alt.URL == "" {
			continue
		}
		if _, err := os.Stat(alt.URL); err != nil {
			continue
		}
		out = append(out, alt)
	}
	return out
}

func (a *Single) shieldedGenerate(ctx context.Context, outputs []*artefact.Artifact) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s: generate panicked: %v", a.cfg.Tag, r)
		}
	}()
	return a.cfg.Generator.Generate(ctx, a, outputs)
}

func (a *Single) shieldedCollect(outputs []*artefact.Artifact) (collected []*artefact.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s: collect panicked: %v", a.cfg.Tag, r)
		}
	}()
	return a.cfg.Collector.Collect(a, outputs)
}

func (a *Single) register(tok *Token, autoRegister bool) {
	if !autoRegister {
		return
	}
	if err := a.session.RegisterToken(tok.Record()); err != nil {
		log.Printf("action %s: register token: %v", a.cfg.Tag, err)
	}
}

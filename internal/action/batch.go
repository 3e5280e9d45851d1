package action

import (
	"context"
	"fmt"
	"log"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/selection"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
)

// LinkedInput pairs an additional input selector with the linker relating
// it to the primary selection.
type LinkedInput struct {
	Alias    string
	Selector selection.Selector
	Linker   selection.Linker
}

// Factory builds the single actions for one fan-out tuple. The inputs map
// carries the primary artifact under the primary alias and one linked
// slave (or a nil entry for an absent secondary) per additional alias.
//
// A factory may expand one tuple into several actions, e.g. one per
// structure name found on the inputs.
type Factory func(sess *session.Session, inputs map[string][]*artefact.Artifact) ([]Action, error)

// SingleFactory adapts a factory producing exactly one action.
func SingleFactory(f func(sess *session.Session, inputs map[string][]*artefact.Artifact) (Action, error)) Factory {
	return func(sess *session.Session, inputs map[string][]*artefact.Artifact) ([]Action, error) {
		act, err := f(sess, inputs)
		if err != nil {
			return nil, err
		}
		return []Action{act}, nil
	}
}

// BatchConfig configures a batch action.
type BatchConfig struct {
	// Tag names the batch; it is also the fallback tag of the folded token.
	Tag string

	// PrimaryAlias is the input slot name the primary artifact is passed
	// under. Required.
	PrimaryAlias string

	// Primary selects the primary input artifacts. Required.
	Primary selection.Selector

	// Additional lists secondary selections with their linkers.
	Additional []LinkedInput

	// Relevance filters every selection before fan-out. Defaults to
	// type=result.
	Relevance selection.Selector

	// Factory constructs single actions per tuple. Required.
	Factory Factory

	// Scheduler executes the fanned-out actions. Defaults to the serial
	// scheduler.
	Scheduler Scheduler
}

// Batch fans a primary selection, joined with linked secondaries, out into
// single actions and runs them through a scheduler.
type Batch struct {
	session *session.Session
	cfg     BatchConfig

	actions      []Action
	materialized bool
}

// NewBatch validates the configuration and builds the batch.
func NewBatch(sess *session.Session, cfg BatchConfig) (*Batch, error) {
	if sess == nil {
		return nil, fmt.Errorf("action: nil session")
	}
	if cfg.Tag == "" {
		return nil, fmt.Errorf("action: empty batch tag")
	}
	if cfg.PrimaryAlias == "" {
		return nil, fmt.Errorf("batch %s: empty primary alias", cfg.Tag)
	}
	if cfg.Primary == nil {
		return nil, fmt.Errorf("batch %s: nil primary selector", cfg.Tag)
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("batch %s: nil factory", cfg.Tag)
	}
	for _, add := range cfg.Additional {
		if add.Alias == "" || add.Selector == nil || add.Linker == nil {
			return nil, fmt.Errorf("batch %s: incomplete additional input %q", cfg.Tag, add.Alias)
		}
	}
	if cfg.Relevance == nil {
		cfg.Relevance = selection.Result()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = Serial{}
	}
	return &Batch{session: sess, cfg: cfg}, nil
}

// Tag returns the batch tag.
func (b *Batch) Tag() string { return b.cfg.Tag }

// InstanceName identifies the batch in logs and the folded token.
func (b *Batch) InstanceName() string { return b.cfg.Tag + "_batch" }

// Actions materializes (once) and returns the fanned-out single actions.
// Given a fixed session state the returned list is fully deterministic:
// selections and linkers preserve session order and the product enumerates
// secondaries in declaration order.
func (b *Batch) Actions() ([]Action, error) {
	if b.materialized {
		return b.actions, nil
	}

	universe := b.session.Artifacts()
	primaries := b.cfg.Relevance.Select(b.cfg.Primary.Select(universe))
	if len(primaries) == 0 {
		log.Printf("batch %s: primary selection is empty, no actions generated", b.cfg.Tag)
	}

	slaves := make([][]*artefact.Artifact, len(b.cfg.Additional))
	for j, add := range b.cfg.Additional {
		slaves[j] = b.cfg.Relevance.Select(add.Selector.Select(universe))
		if len(slaves[j]) == 0 {
			log.Printf("batch %s: additional selection %q is empty", b.cfg.Tag, add.Alias)
		}
	}

	seen := map[string]bool{}
	for i, primary := range primaries {
		linked := make([][]*artefact.Artifact, len(b.cfg.Additional))
		for j, add := range b.cfg.Additional {
			subset := add.Linker.Link(primaries, i, slaves[j])
			if len(subset) == 0 {
				// The linker-absence contract: one product row with a nil
				// slave; the single action must tolerate the absence.
				subset = []*artefact.Artifact{nil}
			}
			linked[j] = subset
		}

		for _, tuple := range cartesian(linked) {
			inputs := map[string][]*artefact.Artifact{
				b.cfg.PrimaryAlias: {primary},
			}
			for j, add := range b.cfg.Additional {
				if tuple[j] != nil {
					inputs[add.Alias] = []*artefact.Artifact{tuple[j]}
				} else {
					inputs[add.Alias] = nil
				}
			}

			fp := fingerprint(b.cfg.Tag, inputs)
			if seen[fp] {
				continue
			}
			seen[fp] = true

			acts, err := b.cfg.Factory(b.session, inputs)
			if err != nil {
				b.actions = nil
				return nil, fmt.Errorf("batch %s: factory: %w", b.cfg.Tag, err)
			}
			b.actions = append(b.actions, acts...)
		}
	}

	b.materialized = true
	return b.actions, nil
}

// cartesian enumerates the product of the given sets in declaration-major
// order. With no sets it yields exactly one empty tuple.
func cartesian(sets [][]*artefact.Artifact) [][]*artefact.Artifact {
	tuples := [][]*artefact.Artifact{nil}
	for _, set := range sets {
		var next [][]*artefact.Artifact
		for _, tuple := range tuples {
			for _, elem := range set {
				grown := make([]*artefact.Artifact, len(tuple), len(tuple)+1)
				copy(grown, tuple)
				next = append(next, append(grown, elem))
			}
		}
		tuples = next
	}
	return tuples
}

// IndicateOutputs flattens the indicated outputs of every fanned-out
// action in generation order.
func (b *Batch) IndicateOutputs() ([]*artefact.Artifact, error) {
	actions, err := b.Actions()
	if err != nil {
		return nil, err
	}
	var outputs []*artefact.Artifact
	for _, act := range actions {
		outs, err := act.IndicateOutputs()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, outs...)
	}
	return outputs, nil
}

// Do hands the fanned-out actions to the scheduler and folds their tokens
// into one batch token, which is registered in the session when
// autoRegister is set. Registration of child artifacts happens inside the
// single actions; the batch controls only token registration.
func (b *Batch) Do(ctx context.Context, autoRegister bool) *Token {
	actions, err := b.Actions()
	if err != nil {
		tok := &Token{
			SessionName:  b.session.Name(),
			ActionTag:    b.cfg.Tag,
			InstanceName: b.InstanceName(),
			State:        StateFailure,
			Err:          err,
		}
		b.register(tok, autoRegister)
		return tok
	}

	tokens := b.cfg.Scheduler.Execute(ctx, actions)
	folded := Fold(b.session.Name(), b.cfg.Tag, b.InstanceName(), tokens)
	b.register(folded, autoRegister)
	return folded
}

func (b *Batch) register(tok *Token, autoRegister bool) {
	if !autoRegister {
		return
	}
	if err := b.session.RegisterToken(tok.Record()); err != nil {
		log.Printf("batch %s: register token: %v", b.cfg.Tag, err)
	}
}

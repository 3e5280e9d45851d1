// Package action implements the execution engine: the single-action
// lifecycle (indicate, necessity check, generate, validate, tokenize),
// the batch fan-out over selections and linkers, the scheduler contract
// and the token model.
package action

import (
	"fmt"
	"time"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
)

// State is the outcome of one executed action.
type State string

const (
	StateSuccess State = "success"
	StateFailure State = "failure"
	StateSkipped State = "skipped"
)

// Token is the per-action execution record. It holds the outcome state,
// the artifacts the action produced (or the pre-existing alternatives when
// the action was skipped) and, for failures, the shielded error.
type Token struct {
	SessionName  string
	ActionTag    string
	InstanceName string
	State        State
	Generated    []*artefact.Artifact
	Duration     time.Duration
	Err          error
}

func (t *Token) String() string {
	return fmt.Sprintf("%s@%s@%s::%s", t.InstanceName, t.ActionTag, t.SessionName, t.State)
}

// Record converts the token into its persistence-oriented form.
func (t *Token) Record() session.TokenRecord {
	ids := make([]string, 0, len(t.Generated))
	for _, a := range t.Generated {
		ids = append(ids, a.ID)
	}
	return session.TokenRecord{
		SessionName:     t.SessionName,
		ActionTag:       t.ActionTag,
		InstanceName:    t.InstanceName,
		State:           string(t.State),
		DurationSeconds: t.Duration.Seconds(),
		ArtifactIDs:     ids,
	}
}

// Fold compiles child tokens into one batch token.
//
// The folded state starts skipped; any success upgrades it to success; any
// failure downgrades it to failure, regardless of later children. Generated
// artifacts are the concatenation of every child's list in child order.
func Fold(sessionName, actionTag, instanceName string, children []*Token) *Token {
	folded := &Token{
		SessionName:  sessionName,
		ActionTag:    actionTag,
		InstanceName: instanceName,
		State:        StateSkipped,
	}
	for _, child := range children {
		if child == nil {
			continue
		}
		switch child.State {
		case StateFailure:
			folded.State = StateFailure
			if folded.Err == nil {
				folded.Err = child.Err
			}
		case StateSuccess:
			if folded.State != StateFailure {
				folded.State = StateSuccess
			}
		}
		folded.Generated = append(folded.Generated, child.Generated...)
		folded.Duration += child.Duration
	}
	return folded
}

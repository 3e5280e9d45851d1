// Package artefact defines the artifact record: a typed, property-rich
// handle to a file produced or consumed by an action.
//
// An artifact carries a fixed schema of well-known properties (case,
// case instance, timepoint, producing action tag, type, format, objective,
// payload URL, validity, execution duration, result sub tag) plus an open
// bag of user properties. Equivalence between artifacts is decided from
// these identifying properties, never from payload content.
package artefact

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Well-known property keys. These are the canonical names used in the
// session file and accepted by Value/SetValue.
const (
	KeyID                = "id"
	KeyCase              = "case"
	KeyCaseInstance      = "case_instance"
	KeyTimepoint         = "timepoint"
	KeyActionTag         = "action_tag"
	KeyType              = "type"
	KeyFormat            = "format"
	KeyObjective         = "objective"
	KeyURL               = "url"
	KeyInvalid           = "invalid"
	KeyExecutionDuration = "execution_duration"
	KeyResultSubTag      = "result_sub_tag"
)

// IdentityKeys are the well-known keys that decide similarity between two
// artifacts. Similarity, not identity, drives the "is this already done?"
// decision of the action lifecycle.
var IdentityKeys = []string{
	KeyCase,
	KeyCaseInstance,
	KeyTimepoint,
	KeyActionTag,
	KeyType,
	KeyFormat,
	KeyObjective,
	KeyResultSubTag,
}

// Artifact is a record describing one payload file and its provenance.
//
// ActionTag always names the producer of the artifact, never a consumer.
// URL may be empty between indication and generation. After an action
// commits an artifact it is never mutated except for invalidation and
// duration annotation.
type Artifact struct {
	ID                string
	Case              string
	CaseInstance      string
	Timepoint         string
	ActionTag         string
	Type              Type
	Format            Format
	Objective         string
	URL               string
	Invalid           bool
	ExecutionDuration float64
	ResultSubTag      string

	// Properties holds user-defined keys. Values must be scalar strings so
	// every property round-trips through the session file.
	Properties map[string]string
}

// New creates an artifact with a fresh unique id and the given producer tag.
func New(actionTag string) *Artifact {
	return &Artifact{
		ID:         uuid.NewString(),
		ActionTag:  actionTag,
		Type:       TypeResult,
		Properties: map[string]string{},
	}
}

// Clone returns a deep copy. The copy receives the same id; callers that
// need a new identity must assign one.
func (a *Artifact) Clone() *Artifact {
	cp := *a
	cp.Properties = make(map[string]string, len(a.Properties))
	for k, v := range a.Properties {
		cp.Properties[k] = v
	}
	return &cp
}

// Similar reports whether a and b agree on every identifying key.
func (a *Artifact) Similar(b *Artifact) bool {
	if a == nil || b == nil {
		return false
	}
	for _, key := range IdentityKeys {
		av, _ := a.Value(key)
		bv, _ := b.Value(key)
		if av != bv {
			return false
		}
	}
	return true
}

// Value returns the artifact's value for a well-known or user key.
// The second return is false when the key is neither well-known nor
// present in the property bag.
func (a *Artifact) Value(key string) (string, bool) {
	switch key {
	case KeyID:
		return a.ID, true
	case KeyCase:
		return a.Case, true
	case KeyCaseInstance:
		return a.CaseInstance, true
	case KeyTimepoint:
		return a.Timepoint, true
	case KeyActionTag:
		return a.ActionTag, true
	case KeyType:
		return string(a.Type), true
	case KeyFormat:
		return string(a.Format), true
	case KeyObjective:
		return a.Objective, true
	case KeyURL:
		return a.URL, true
	case KeyInvalid:
		if a.Invalid {
			return "true", true
		}
		return "false", true
	case KeyExecutionDuration:
		return fmt.Sprintf("%g", a.ExecutionDuration), true
	case KeyResultSubTag:
		return a.ResultSubTag, true
	}
	v, ok := a.Properties[key]
	return v, ok
}

// SetValue assigns a well-known field or a user property by key name.
// Well-known keys are type checked; user keys are stored verbatim.
func (a *Artifact) SetValue(key, value string) error {
	switch key {
	case KeyID:
		a.ID = value
	case KeyCase:
		a.Case = value
	case KeyCaseInstance:
		a.CaseInstance = value
	case KeyTimepoint:
		a.Timepoint = value
	case KeyActionTag:
		a.ActionTag = value
	case KeyType:
		t := Type(value)
		if !t.Known() {
			return fmt.Errorf("artefact: unknown type %q", value)
		}
		a.Type = t
	case KeyFormat:
		a.Format = Format(value)
	case KeyObjective:
		a.Objective = value
	case KeyURL:
		a.URL = value
	case KeyInvalid:
		switch value {
		case "true", "True", "1":
			a.Invalid = true
		case "false", "False", "0", "":
			a.Invalid = false
		default:
			return fmt.Errorf("artefact: invalid boolean %q for %s", value, KeyInvalid)
		}
	case KeyExecutionDuration:
		var d float64
		if value != "" {
			if _, err := fmt.Sscanf(value, "%g", &d); err != nil {
				return fmt.Errorf("artefact: invalid duration %q: %w", value, err)
			}
		}
		a.ExecutionDuration = d
	case KeyResultSubTag:
		a.ResultSubTag = value
	default:
		if a.Properties == nil {
			a.Properties = map[string]string{}
		}
		a.Properties[key] = value
	}
	return nil
}

// UserKeys returns the sorted user property keys.
func (a *Artifact) UserKeys() []string {
	keys := make([]string, 0, len(a.Properties))
	for k := range a.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ShortID returns a compact id prefix used in instance names and filenames.
func (a *Artifact) ShortID() string {
	if len(a.ID) > 8 {
		return a.ID[:8]
	}
	return a.ID
}

func (a *Artifact) String() string {
	return fmt.Sprintf("artefact(%s case=%s instance=%s tp=%s tag=%s type=%s format=%s)",
		a.ShortID(), a.Case, a.CaseInstance, a.Timepoint, a.ActionTag, a.Type, a.Format)
}

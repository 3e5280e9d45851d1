package cliaction

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MIC-DKFZ/AVID-sub001/internal/action"
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// DefaultSourceProperty is the user property split outputs carry to refer
// back to the artifact they were split from.
const DefaultSourceProperty = "dynamic_source"

// TimestepSplit collects the per-timestep files of tools that split their
// result: the indicated output <stem>.<ext> does not exist, but siblings
// named <stem>_<n>.<ext> do. Each sibling becomes one artifact inheriting
// the indicated output's properties, with the result sub tag set to the
// parsed timestep and a source property referring to the reference input.
type TimestepSplit struct {
	// SourceProperty overrides DefaultSourceProperty.
	SourceProperty string
}

// Collect replaces indicated outputs with their split siblings. Outputs
// whose file exists are kept unchanged. When no output was split, Collect
// returns nil and the indicated outputs stand.
func (c TimestepSplit) Collect(a *action.Single, outputs []*artefact.Artifact) ([]*artefact.Artifact, error) {
	sourceProp := c.SourceProperty
	if sourceProp == "" {
		sourceProp = DefaultSourceProperty
	}
	sourceID := ""
	if ref := a.Reference(); ref != nil {
		sourceID = ref.ID
	}

	var collected []*artefact.Artifact
	split := false
	for _, out := range outputs {
		if fileExists(out.URL) {
			collected = append(collected, out)
			continue
		}
		siblings, err := splitSiblings(out.URL)
		if err != nil {
			return nil, err
		}
		if len(siblings) == 0 {
			collected = append(collected, out)
			continue
		}
		split = true
		for _, sib := range siblings {
			sub := out.Clone()
			sub.ID = uuid.NewString()
			sub.URL = sib.path
			sub.ResultSubTag = sib.timestep
			if sub.Properties == nil {
				sub.Properties = map[string]string{}
			}
			if sourceID != "" {
				sub.Properties[sourceProp] = sourceID
			}
			collected = append(collected, sub)
		}
	}
	if !split {
		return nil, nil
	}
	return collected, nil
}

type sibling struct {
	path     string
	timestep string
}

// splitSiblings finds <stem>_<n>.<ext> next to the missing output path and
// returns them ordered by timestep (numeric where possible).
func splitSiblings(url string) ([]sibling, error) {
	ext := filepath.Ext(url)
	stem := strings.TrimSuffix(url, ext)

	matches, err := filepath.Glob(stem + "_*" + ext)
	if err != nil {
		return nil, fmt.Errorf("cliaction: scan split outputs of %s: %w", url, err)
	}

	var out []sibling
	for _, m := range matches {
		ts := strings.TrimSuffix(strings.TrimPrefix(m, stem+"_"), ext)
		if ts == "" {
			continue
		}
		out = append(out, sibling{path: m, timestep: ts})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, aerr := strconv.Atoi(out[i].timestep)
		b, berr := strconv.Atoi(out[j].timestep)
		if aerr == nil && berr == nil {
			return a < b
		}
		if (aerr == nil) != (berr == nil) {
			return aerr == nil
		}
		return out[i].timestep < out[j].timestep
	})
	return out, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

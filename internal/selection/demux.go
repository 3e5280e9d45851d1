package selection

import (
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// Demultiplexer partitions a selection by the distinct values of one key.
// It is the enumeration primitive behind "for every case", "for every
// timepoint" style iteration.
type Demultiplexer struct {
	Key string
}

// Partition returns the distinct values of the key in first-appearance
// order, plus a selector per value isolating that value. Artifacts without
// the key are not represented in any partition.
func (d Demultiplexer) Partition(universe []*artefact.Artifact) ([]string, map[string]Selector) {
	var values []string
	selectors := map[string]Selector{}
	for _, a := range universe {
		if a == nil {
			continue
		}
		v, ok := a.Value(d.Key)
		if !ok {
			continue
		}
		if _, seen := selectors[v]; seen {
			continue
		}
		values = append(values, v)
		selectors[v] = KeyValue(d.Key, v)
	}
	return values, selectors
}

// Values returns only the ordered distinct values of the key.
func (d Demultiplexer) Values(universe []*artefact.Artifact) []string {
	values, _ := d.Partition(universe)
	return values
}

// Cases enumerates the distinct case identifiers of a selection.
func Cases(universe []*artefact.Artifact) []string {
	return Demultiplexer{Key: artefact.KeyCase}.Values(universe)
}

// Timepoints enumerates the distinct timepoints of a selection.
func Timepoints(universe []*artefact.Artifact) []string {
	return Demultiplexer{Key: artefact.KeyTimepoint}.Values(universe)
}

package selection

import (
	"sort"
	"strconv"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// PropertySorter orders artifacts by the value of one property.
//
// When both values parse as numbers they compare numerically; otherwise the
// comparison is lexical. Artifacts missing the key sort before artifacts
// carrying it. The sort is stable, so session insertion order breaks ties.
type PropertySorter struct {
	Key        string
	Descending bool
}

// Sorted returns a new slice with the artifacts in sorted order. The input
// slice is not modified.
func (s PropertySorter) Sorted(list []*artefact.Artifact) []*artefact.Artifact {
	out := make([]*artefact.Artifact, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		less := s.less(out[i], out[j])
		if s.Descending {
			return s.less(out[j], out[i])
		}
		return less
	})
	return out
}

func (s PropertySorter) less(a, b *artefact.Artifact) bool {
	av, aok := a.Value(s.Key)
	bv, bok := b.Value(s.Key)
	if aok != bok {
		return !aok
	}
	an, aerr := strconv.ParseFloat(av, 64)
	bn, berr := strconv.ParseFloat(bv, 64)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return av < bv
}

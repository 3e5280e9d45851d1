package action

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// fingerprint identifies one fan-out tuple: the batch tag plus the input
// artifact ids per slot. Batches use it to drop duplicate tuples, e.g.
// when a selection contains the same artifact twice.
//
// Every component is length-prefixed before hashing so distinct tuples can
// never collide by concatenation ambiguity.
func fingerprint(tag string, inputs map[string][]*artefact.Artifact) string {
	hasher := sha256.New()

	writeField := func(data []byte) {
		length := uint64(len(data))
		var prefix [8]byte
		for i := 0; i < 8; i++ {
			prefix[i] = byte(length >> (56 - 8*i))
		}
		hasher.Write(prefix[:])
		hasher.Write(data)
	}

	writeField([]byte(tag))

	slots := make([]string, 0, len(inputs))
	for slot := range inputs {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		writeField([]byte(slot))
		for _, a := range inputs[slot] {
			if a == nil {
				writeField(nil)
				continue
			}
			writeField([]byte(a.ID))
		}
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

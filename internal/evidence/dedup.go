package evidence

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// fingerprintKey identifies an evidence item by path, line range, and a
// digest of its content. Two items with the same key are duplicates no
// matter which provider produced them.
func fingerprintKey(e Evidence) string {
	h, _ := blake2b.New256(nil)
	_, _ = io.WriteString(h, e.Path)
	var rng [8]byte
	binary.LittleEndian.PutUint32(rng[0:4], uint32(e.Range[0]))
	binary.LittleEndian.PutUint32(rng[4:8], uint32(e.Range[1]))
	_, _ = h.Write(rng[:])
	_, _ = io.WriteString(h, e.Content)
	return hex.EncodeToString(h.Sum(nil))
}

// Dedup removes duplicate evidence by fingerprint, preserving first-seen
// order. When a later duplicate carries a higher base score it replaces
// the earlier copy in place.
func Dedup(items []Evidence) []Evidence {
	seen := make(map[string]int, len(items))
	out := make([]Evidence, 0, len(items))
	for _, e := range items {
		k := fingerprintKey(e)
		if i, ok := seen[k]; ok {
			if e.BaseScore > out[i].BaseScore {
				out[i] = e
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, e)
	}
	return out
}

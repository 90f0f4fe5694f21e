package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a 32-hex-char random identifier, optionally prefixed
// ("pf_…", "tag_…"). Tags typed by the operator but not yet persisted use
// the "new" prefix so the rest of the pipeline can tell them apart from
// database ids.
func NewID(prefix string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

package compositefs

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// canonical encodes values deterministically: sorted map keys, shortest integer forms
var canonical = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// hashValue returns the hex blake3 digest of the canonical CBOR encoding of v
func hashValue(v any) (string, error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// hashStrings returns the hex blake3 digest of parts, each NUL terminated
func hashStrings(parts ...string) string {
	h := blake3.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

package critique

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint identifies a board's critique input. Two boards with the same
// challenge and the same ordered decisions produce the same fingerprint.
func Fingerprint(challenge string, decisions PointSet) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(challenge)))
	for _, d := range decisions {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(d)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

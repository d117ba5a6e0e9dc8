package check

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint computes a SHA-256 hash over the sorted unit name set. Two
// runs that examined the same fleet produce the same fingerprint, so a
// fingerprint change between runs means the fleet composition drifted.
func Fingerprint(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

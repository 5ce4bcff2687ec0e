package vulnerability

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies a location independently of its row id, so a
// rescan reporting the same place can be matched to the existing record.
func Fingerprint(findingID string, t Type, where, specific string) string {
	sum := blake2b.Sum256([]byte(strings.Join([]string{
		findingID,
		string(t),
		strings.TrimSpace(where),
		strings.TrimSpace(specific),
	}, "|")))
	return hex.EncodeToString(sum[:])
}

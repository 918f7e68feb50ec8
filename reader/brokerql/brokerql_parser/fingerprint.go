package brokerql_parser

import (
	"strconv"

	"github.com/go-faster/city"
)

// Fingerprint hashes the canonical rendering of q, so queries that differ
// only in spacing, aliases or optional delimiters share a fingerprint.
func Fingerprint(q Query) uint64 {
	return city.CH64([]byte(q.String()))
}

func FingerprintString(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

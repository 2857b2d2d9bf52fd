package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record prefixes used across the persisted document.
const (
	PrefixUser        = "usr"
	PrefixInvite      = "inv"
	PrefixAttendance  = "att"
	PrefixPerformance = "perf"
	PrefixAudit       = "aud"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier carrying the given
// record prefix, e.g. "usr_01J...". Prefixes keep exported documents greppable.
func New(prefix string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// HasPrefix reports whether id carries the given record prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}

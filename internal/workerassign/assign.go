// Package workerassign computes a timer's deterministic worker-slot
// label. The engine treats the slot purely as an
// opaque partition label for operators who want to shard sweep work
// across processes by filtering on it; no component multiplexes by it.
package workerassign

import (
	"fmt"
	"hash/fnv"
)

// DefaultWorkerCount is used when no worker count is configured.
const DefaultWorkerCount = 5

// Assign computes the stable "worker-k" slot for (teamID, timerID)
// across n slots. n <= 0 collapses to a single slot ("worker-0").
func Assign(teamID, timerID string, n int) string {
	if n <= 0 {
		return "worker-0"
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(teamID))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(timerID))

	slot := int(h.Sum64() % uint64(n))
	return fmt.Sprintf("worker-%d", slot)
}

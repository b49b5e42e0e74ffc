package workerassign_test

import (
	"testing"

	"github.com/minoots/engine/internal/workerassign"
	"github.com/stretchr/testify/assert"
)

func TestAssign_Deterministic(t *testing.T) {
	a := workerassign.Assign("team-A", "timer-1", 5)
	b := workerassign.Assign("team-A", "timer-1", 5)
	assert.Equal(t, a, b)
}

func TestAssign_CollapsesToSingleSlot(t *testing.T) {
	assert.Equal(t, "worker-0", workerassign.Assign("team-A", "timer-1", 0))
	assert.Equal(t, "worker-0", workerassign.Assign("team-A", "timer-1", -3))
}

func TestAssign_WithinRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		slot := workerassign.Assign("team-A", string(rune('a'+i)), 5)
		assert.Contains(t, []string{"worker-0", "worker-1", "worker-2", "worker-3", "worker-4"}, slot)
	}
}

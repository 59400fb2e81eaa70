package events

import (
	"strconv"

	"github.com/AcalaNetwork/Acala-sub008/core/types"
)

// TypeSystemShutdown is emitted once when the global emergency shutdown
// triggers.
const TypeSystemShutdown = "shutdown.triggered"

// NewSystemShutdownEvent returns the canonical payload for the one-shot
// shutdown transition.
func NewSystemShutdownEvent(block uint64, cancelled int) *types.Event {
	return &types.Event{
		Type: TypeSystemShutdown,
		Attributes: map[string]string{
			"block":     strconv.FormatUint(block, 10),
			"cancelled": strconv.Itoa(cancelled),
		},
	}
}

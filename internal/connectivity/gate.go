// Package connectivity decides whether a queue class may dispatch given the
// last known network state.
package connectivity

import (
	"sync"

	"github.com/RezaEskandarii/driveq/types"
)

type Gate struct {
	mu                  sync.RWMutex
	state               types.ConnectionType
	disabled            bool
	disableOverCellular bool
}

// NewGate starts in ConnectionUnknown, which does not block dispatch.
func NewGate(disableOverCellular bool) *Gate {
	return &Gate{disableOverCellular: disableOverCellular}
}

// OnConnectivityChanged stores the new state and reports whether dispatch
// was blocked before and is allowed now.
func (g *Gate) OnConnectivityChanged(state types.ConnectionType) (resumed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wasOffline := g.state == types.ConnectionNone
	g.state = state
	return wasOffline && state != types.ConnectionNone
}

func (g *Gate) State() types.ConnectionType {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// SetDisabled suspends every class regardless of connectivity.
func (g *Gate) SetDisabled(disabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disabled = disabled
}

func (g *Gate) SetDisableOverCellular(disable bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disableOverCellular = disable
}

func (g *Gate) ShouldStop(class types.QueueClass) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.disabled || g.state == types.ConnectionNone
}

// ShouldStopFor adds the cellular policy on top of ShouldStop: background
// file transfers wait for a non-cellular connection.
func (g *Gate) ShouldStopFor(class types.QueueClass, priority types.Priority) bool {
	if g.ShouldStop(class) {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.disableOverCellular &&
		g.state == types.ConnectionCellular &&
		class == types.FileQueue &&
		priority == types.PriorityBackground
}

package supervisor

import (
	"github.com/Elekrisk/moba-try-5/internal/config"
)

// PortPool hands out game-server ports from the configured inclusive range.
// It is owned by the event loop; no locking.
type PortPool struct {
	lo, hi uint16
	used   map[uint16]bool
}

// NewPortPool builds a pool over the given range.
func NewPortPool(r config.PortRange) *PortPool {
	return &PortPool{lo: r.Lo, hi: r.Hi, used: make(map[uint16]bool)}
}

// Allocate reserves the smallest free port. ok is false when the range is
// exhausted.
func (p *PortPool) Allocate() (port uint16, ok bool) {
	for candidate := p.lo; ; candidate++ {
		if !p.used[candidate] {
			p.used[candidate] = true
			return candidate, true
		}
		if candidate == p.hi {
			return 0, false
		}
	}
}

// Release returns a port to the pool.
func (p *PortPool) Release(port uint16) {
	delete(p.used, port)
}

// InUse reports the number of allocated ports.
func (p *PortPool) InUse() int {
	return len(p.used)
}

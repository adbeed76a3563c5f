package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/docker/go-units"
)

type counters struct {
	received   atomic.Uint64
	filtered   atomic.Uint64
	decoded    atomic.Uint64
	readErrors atomic.Uint64
	bytes      atomic.Uint64
	drops      atomic.Uint64
}

// Stats represents pipeline statistics.
type Stats struct {
	Received   uint64
	Filtered   uint64
	Decoded    uint64
	ReadErrors uint64
	Bytes      uint64
	Drops      uint64
}

// Stats returns pipeline statistics. It is safe to call while Run is active.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:   p.stats.received.Load(),
		Filtered:   p.stats.filtered.Load(),
		Decoded:    p.stats.decoded.Load(),
		ReadErrors: p.stats.readErrors.Load(),
		Bytes:      p.stats.bytes.Load(),
		Drops:      p.stats.drops.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("%d frames (%s), %d decoded, %d filtered, %d dropped",
		s.Received, units.BytesSize(float64(s.Bytes)), s.Decoded, s.Filtered, s.Drops)
}

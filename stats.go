package retryconn

import "sync/atomic"

// Stats contains counters about the stream's connection lifecycle.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose every field as a counter.
type Stats struct {
	Dials       uint64 // dial attempts started
	Establishes uint64 // successful transitions into the established state
	DialErrors  uint64 // dial attempts that completed with an error
	Resets      uint64 // connections discarded after an I/O failure
	WouldBlocks uint64 // would-block results passed through unchanged
}

// statsCollector provides internal methods for updating stats.
// Not exported - the stream updates its own stats.
type statsCollector struct {
	stats *Stats
}

func newStatsCollector() *statsCollector {
	return &statsCollector{
		stats: &Stats{},
	}
}

func (c *statsCollector) recordDial() {
	atomic.AddUint64(&c.stats.Dials, 1)
}

func (c *statsCollector) recordEstablish() {
	atomic.AddUint64(&c.stats.Establishes, 1)
}

func (c *statsCollector) recordDialError() {
	atomic.AddUint64(&c.stats.DialErrors, 1)
}

func (c *statsCollector) recordReset() {
	atomic.AddUint64(&c.stats.Resets, 1)
}

func (c *statsCollector) recordWouldBlock() {
	atomic.AddUint64(&c.stats.WouldBlocks, 1)
}

func (c *statsCollector) snapshot() Stats {
	return Stats{
		Dials:       atomic.LoadUint64(&c.stats.Dials),
		Establishes: atomic.LoadUint64(&c.stats.Establishes),
		DialErrors:  atomic.LoadUint64(&c.stats.DialErrors),
		Resets:      atomic.LoadUint64(&c.stats.Resets),
		WouldBlocks: atomic.LoadUint64(&c.stats.WouldBlocks),
	}
}

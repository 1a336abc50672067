package sink

// Meter tracks per-tick receive accounting for telemetry.
// The zero value is ready to use.
type Meter struct {
	received       int
	receivedLast   int
	powerAvailable bool
}

// Add records energy accepted during the current tick.
func (m *Meter) Add(n int) {
	if n > 0 {
		m.received += n
	}
}

// ThisTick is the amount accepted so far in the current tick.
func (m *Meter) ThisTick() int { return m.received }

// Latch closes the tick: the accumulated amount becomes the last-tick
// reading and the power indicator follows the end-of-tick probe.
func (m *Meter) Latch(probe Demand) {
	m.receivedLast = m.received
	m.received = 0
	m.powerAvailable = m.receivedLast > 0 || probe.Wants()
}

func (m *Meter) ReceivedLastTick() int { return m.receivedLast }
func (m *Meter) PowerAvailable() bool  { return m.powerAvailable }

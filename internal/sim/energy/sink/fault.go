package sink

// Fault is a malfunction timer. While it runs the owner probes 0, accepts 0
// and does no work. The zero value is healthy.
type Fault struct {
	remaining int
}

// Malfunction disables the owner for at least ticks more ticks.
func (f *Fault) Malfunction(ticks int) {
	if ticks > f.remaining {
		f.remaining = ticks
	}
}

func (f *Fault) Disabled() bool     { return f.remaining > 0 }
func (f *Fault) DisabledTicks() int { return f.remaining }

// Recover counts one tick off the timer.
func (f *Fault) Recover() {
	if f.remaining > 0 {
		f.remaining--
	}
}

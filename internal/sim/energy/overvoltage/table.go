// Package overvoltage applies graduated consequences to sinks offered a
// packet above their safe tier.
package overvoltage

import "fmt"

// Consequence is ordered: a larger value is never milder.
type Consequence uint8

const (
	None Consequence = iota
	Warn
	Malfunction
	Destroy
)

func (c Consequence) String() string {
	switch c {
	case None:
		return "NONE"
	case Warn:
		return "WARN"
	case Malfunction:
		return "MALFUNCTION"
	case Destroy:
		return "DESTROY"
	default:
		return fmt.Sprintf("CONSEQUENCE(%d)", uint8(c))
	}
}

// Table maps a tier gap to a consequence by thresholds. Gaps at or above
// DestroyGap destroy, at or above MalfunctionGap disable the device for
// MalfunctionTicks, at or above WarnGap only emit a warning.
type Table struct {
	WarnGap          int
	MalfunctionGap   int
	DestroyGap       int
	MalfunctionTicks int
}

func DefaultTable() Table {
	return Table{
		WarnGap:          1,
		MalfunctionGap:   2,
		DestroyGap:       3,
		MalfunctionTicks: 100,
	}
}

func (t Table) Validate() error {
	if t.WarnGap < 1 {
		return fmt.Errorf("warn_gap must be >= 1, got %d", t.WarnGap)
	}
	if t.MalfunctionGap < t.WarnGap {
		return fmt.Errorf("malfunction_gap (%d) below warn_gap (%d)", t.MalfunctionGap, t.WarnGap)
	}
	if t.DestroyGap < t.MalfunctionGap {
		return fmt.Errorf("destroy_gap (%d) below malfunction_gap (%d)", t.DestroyGap, t.MalfunctionGap)
	}
	if t.MalfunctionTicks < 0 {
		return fmt.Errorf("malfunction_ticks must be >= 0, got %d", t.MalfunctionTicks)
	}
	return nil
}

// For is monotonic in gap for any table that passes Validate.
func (t Table) For(gap int) Consequence {
	switch {
	case gap <= 0:
		return None
	case gap >= t.DestroyGap:
		return Destroy
	case gap >= t.MalfunctionGap:
		return Malfunction
	case gap >= t.WarnGap:
		return Warn
	default:
		return None
	}
}

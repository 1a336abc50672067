// Package tier classifies voltage classes and their legal packet sizes.
package tier

import (
	"fmt"
	"strings"
)

// Tier is a discrete voltage class. Its value is the ordinal.
type Tier uint8

const (
	LV Tier = iota
	MV
	HV
	EV
	IV
)

// All lists every tier in ascending order.
var All = []Tier{LV, MV, HV, EV, IV}

var packetSizes = [...]int{
	LV: 32,
	MV: 128,
	HV: 512,
	EV: 2048,
	IV: 8192,
}

var names = [...]string{"LV", "MV", "HV", "EV", "IV"}

func (t Tier) Valid() bool { return int(t) < len(packetSizes) }

func (t Tier) Ordinal() int { return int(t) }

// PacketSize is the largest packet (EU) a tier may carry in one transfer.
func (t Tier) PacketSize() int {
	if !t.Valid() {
		return packetSizes[len(packetSizes)-1]
	}
	return packetSizes[t]
}

// PacketSizeFor is the functional form of Tier.PacketSize.
func PacketSizeFor(t Tier) int { return t.PacketSize() }

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TIER(%d)", uint8(t))
	}
	return names[t]
}

// FromPacketSize returns the lowest tier whose packet size is at least size.
// Sizes above the top tier map to the top tier.
func FromPacketSize(size int) Tier {
	for _, t := range All {
		if size <= t.PacketSize() {
			return t
		}
	}
	return All[len(All)-1]
}

// Gap is the ordinal distance between two tiers.
func Gap(a, b Tier) int {
	d := a.Ordinal() - b.Ordinal()
	if d < 0 {
		return -d
	}
	return d
}

// CanCarry reports whether a packet of the given size is safe for t.
func (t Tier) CanCarry(packet int) bool { return packet <= t.PacketSize() }

func Parse(s string) (Tier, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

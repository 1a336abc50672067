package tier

import (
	"encoding/json"
	"testing"
)

func TestPacketSizesStrictlyIncreasing(t *testing.T) {
	for i := 0; i < len(All); i++ {
		for j := i + 1; j < len(All); j++ {
			a, b := All[i], All[j]
			if PacketSizeFor(a) >= PacketSizeFor(b) {
				t.Fatalf("packet(%s)=%d not < packet(%s)=%d", a, a.PacketSize(), b, b.PacketSize())
			}
			if Gap(a, b) != Gap(b, a) {
				t.Fatalf("Gap not symmetric for %s,%s", a, b)
			}
			if Gap(a, b) != j-i {
				t.Fatalf("Gap(%s,%s)=%d want=%d", a, b, Gap(a, b), j-i)
			}
		}
	}
}

func TestFromPacketSize(t *testing.T) {
	cases := []struct {
		size int
		want Tier
	}{
		{0, LV},
		{1, LV},
		{32, LV},
		{33, MV},
		{128, MV},
		{512, HV},
		{513, EV},
		{8192, IV},
		{1 << 20, IV},
	}
	for _, c := range cases {
		if got := FromPacketSize(c.size); got != c.want {
			t.Fatalf("FromPacketSize(%d)=%s want=%s", c.size, got, c.want)
		}
	}
}

func TestCanCarry(t *testing.T) {
	if !LV.CanCarry(32) || LV.CanCarry(512) {
		t.Fatalf("LV CanCarry mismatch")
	}
	if Gap(HV, LV) != 2 {
		t.Fatalf("Gap(HV,LV)=%d want=2", Gap(HV, LV))
	}
}

func TestTextRoundTrip(t *testing.T) {
	b, err := json.Marshal(map[string]Tier{"t": EV})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"t":"EV"}` {
		t.Fatalf("json=%s", b)
	}
	var out map[string]Tier
	if err := json.Unmarshal([]byte(`{"t":"mv"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["t"] != MV {
		t.Fatalf("got %s want MV", out["t"])
	}
	if _, err := Parse("XV"); err == nil {
		t.Fatalf("expected parse error")
	}
}

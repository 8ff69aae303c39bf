package hwio

import "testing"

func TestReg8(t *testing.T) {
	r := Reg8{Value: 0x11, RoMask: 0xF0}

	if got := r.Read8(0, false); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}
	if got := r.Read8(9999, false); got != 0x11 {
		t.Errorf("invalid read with offset: %x", got)
	}

	r.Write8(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
	r.Write8(9999, 0x88)
	if r.Value != 0x18 {
		t.Errorf("writemask with offset not respected: %x", r.Value)
	}
}

func TestReg8WriteOnly(t *testing.T) {
	var calls []uint8
	r := Reg8{
		Name:    "TRIGGER",
		Flags:   WriteOnlyFlag,
		WriteCb: func(_, val uint8) { calls = append(calls, val) },
	}

	r.Write8(0x4014, 0x02)
	if len(calls) != 1 || calls[0] != 0x02 {
		t.Fatalf("write callback calls = %v, want [02]", calls)
	}
	if got := r.Read8(0x4014, false); got != 0 {
		t.Errorf("Read8 of writeonly reg = %02X, want 00", got)
	}
	if got := r.Read8(0x4014, true); got != 0x02 {
		t.Errorf("Peek of writeonly reg = %02X, want 02", got)
	}
}

func TestReg8String(t *testing.T) {
	r := Reg8{Name: "OAMDATA", Value: 0x5a}
	if got := r.String(); got != "OAMDATA{5a}" {
		t.Errorf("String() = %q", got)
	}
	r.ReadCb = func(v uint8) uint8 { return v }
	r.WriteCb = func(_, _ uint8) {}
	if got := r.String(); got != "OAMDATA{5a,r!,w!}" {
		t.Errorf("String() = %q", got)
	}
}

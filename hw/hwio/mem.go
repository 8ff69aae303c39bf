package hwio

import "oamdma/emu/log"

// Mem is a RAM or ROM area. When VSize is larger than len(Data), the area is
// mirrored every len(Data) bytes, so len(Data) must be a power of two.
type Mem struct {
	Name  string
	Data  []byte
	VSize int
	Flags RWFlags // only ReadOnlyFlag is meaningful

	// WriteCb, if set, replaces the store into Data.
	WriteCb func(addr uint16, val uint8)
}

// BankIO8 returns a view of m suitable for mapping into a Table. Data,
// Flags and WriteCb are captured at call time.
func (m *Mem) BankIO8() BankIO8 {
	n := len(m.Data)
	if n == 0 || n&(n-1) != 0 {
		panic("hwio: " + m.Name + ": memory size is not a power of two")
	}
	return &memView{
		name: m.Name,
		data: m.Data,
		mask: uint16(n - 1),
		ro:   m.Flags&ReadOnlyFlag != 0,
		wcb:  m.WriteCb,
	}
}

type memView struct {
	name string
	data []byte
	mask uint16
	ro   bool
	wcb  func(uint16, uint8)
}

func (v *memView) Read8(addr uint16, _ bool) uint8 { return v.data[addr&v.mask] }

func (v *memView) Write8(addr uint16, val uint8) {
	switch {
	case v.wcb != nil:
		v.wcb(addr, val)
	case v.ro:
		log.ModHwIo.ErrorZ("Write8 to readonly mem").
			String("name", v.name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
	default:
		v.data[addr&v.mask] = val
	}
}

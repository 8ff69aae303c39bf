package hwio

import "oamdma/emu/log"

// Device serves a whole address range through callbacks, which receive the
// full bus address. Missing callbacks read as 0 and ignore writes. A device
// without a peek callback peeks as 0, since a read could have side effects.
type Device struct {
	Name  string
	Size  int
	Flags RWFlags

	ReadCb  func(addr uint16) uint8
	PeekCb  func(addr uint16) uint8
	WriteCb func(addr uint16, val uint8)
}

func (d *Device) Read8(addr uint16, peek bool) uint8 {
	cb := d.ReadCb
	if peek {
		cb = d.PeekCb
	} else if d.Flags&WriteOnlyFlag != 0 {
		logAccessError("Read8 from writeonly device", d.Name, addr)
		return 0
	}
	if cb == nil {
		return 0
	}
	return cb(addr)
}

func (d *Device) Write8(addr uint16, val uint8) {
	if d.Flags&ReadOnlyFlag != 0 {
		logAccessError("Write8 to readonly device", d.Name, addr)
		return
	}
	if d.WriteCb != nil {
		d.WriteCb(addr, val)
	}
}

func logAccessError(msg, name string, addr uint16) {
	log.ModHwIo.ErrorZ(msg).
		String("name", name).
		Hex16("addr", addr).
		End()
}

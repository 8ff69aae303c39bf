package hw

import (
	"oamdma/emu/log"
	"oamdma/hw/hwdefs"
	"oamdma/hw/hwio"
)

// OAM is the PPU object attribute memory and its CPU-facing ports. The
// register bank is mapped at $2000-$3FFF, mirrored every 8 bytes.
type OAM struct {
	Mem [hwdefs.OAMSize]uint8

	OAMADDR hwio.Reg8 `hwio:"offset=0x3,writeonly,wcb"`
	OAMDATA hwio.Reg8 `hwio:"offset=0x4,rcb,wcb,pcb"`
}

func (oam *OAM) reset() {
	oam.Mem = [hwdefs.OAMSize]uint8{}
	oam.OAMADDR.Value = 0
	oam.OAMDATA.Value = 0
}

func (oam *OAM) WriteOAMADDR(_, val uint8) {
	log.ModOAM.DebugZ("Write to OAMADDR").Hex8("val", val).End()
}

// WriteOAMDATA stores val at OAMADDR, which is then incremented.
func (oam *OAM) WriteOAMDATA(_, val uint8) {
	addr := oam.OAMADDR.Value
	oam.Mem[addr] = val
	oam.OAMADDR.Value = addr + 1
}

func (oam *OAM) ReadOAMDATA(_ uint8) uint8 {
	return oam.Mem[oam.OAMADDR.Value]
}

func (oam *OAM) PeekOAMDATA(_ uint8) uint8 {
	return oam.Mem[oam.OAMADDR.Value]
}

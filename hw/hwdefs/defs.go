// Package hwdefs holds the fixed addresses and sizes of the OAM DMA protocol.
package hwdefs

const (
	// OAMDMA is the trigger register. Writing a page index there starts a
	// transfer of that page to the OAM.
	OAMDMA = uint16(0x4014)

	// OAMADDR and OAMDATA are the PPU object memory ports. OAMDATA
	// auto-increments OAMADDR on each write.
	OAMADDR = uint16(0x2003)
	OAMDATA = uint16(0x2004)

	// OAMSize is the size of the object attribute memory, and the number of
	// bytes copied by a DMA transfer.
	OAMSize = 0x100

	// CyclesPerByte is the number of cycles taken by a byte copy when memory
	// never stalls: read request, data capture, write.
	CyclesPerByte = 3
)

const (
	SoftReset = true
	HardReset = false
)

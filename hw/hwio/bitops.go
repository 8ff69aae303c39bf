package hwio

// Lo8 returns the low byte of v.
func Lo8(v uint16) uint8 { return uint8(v) }

// Hi8 returns the high byte of v.
func Hi8(v uint16) uint8 { return uint8(v >> 8) }

// Make16 assembles a 16-bit word from its high and low bytes.
func Make16(hi, lo uint8) uint16 { return uint16(hi)<<8 | uint16(lo) }

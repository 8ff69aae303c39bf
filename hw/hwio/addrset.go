package hwio

import (
	"iter"
	"math/bits"
)

const (
	NumAddrs = 0x10000 // 16-bit address space
	wordBits = 64
	numWords = NumAddrs / wordBits
)

// AddrSet is a set of bus addresses. The zero value is an empty set.
type AddrSet struct {
	words [numWords]uint64
}

func (s *AddrSet) Add(addr uint16) {
	s.words[addr/wordBits] |= 1 << (addr % wordBits)
}

func (s *AddrSet) Has(addr uint16) bool {
	return s.words[addr/wordBits]&(1<<(addr%wordBits)) != 0
}

// Len returns the number of addresses in the set.
func (s *AddrSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// All iterates over the addresses of the set in ascending order.
func (s *AddrSet) All() iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		for i, w := range s.words {
			for w != 0 {
				b := bits.TrailingZeros64(w)
				if !yield(uint16(i*wordBits + b)) {
					return
				}
				w &= w - 1
			}
		}
	}
}

// Package snapshot defines the serialized state of the emulated system.
package snapshot

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"
)

const Version = 1

type System struct {
	Version int
	Cycles  int64
	OpenBus uint8

	DMA    DMA
	MemCtl MemCtl
	OAM    OAM

	RAM  []uint8
	WRAM []uint8
}

type DMA struct {
	State uint8
	Src   uint16
	Phase uint8
	Data  uint8
}

type MemCtl struct {
	Pending bool
	Addr    uint16
	Wait    int
	Ready   bool
	RData   uint8
}

type OAM struct {
	Mem  []uint8
	Addr uint8
}

// Save writes the JSON encoding of s to w.
func (s *System) Save(w io.Writer) error {
	var e jx.Encoder
	s.Encode(&e)
	_, err := w.Write(e.Bytes())
	return err
}

// Load reads a snapshot previously written by Save.
func (s *System) Load(r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := s.Decode(jx.DecodeBytes(buf)); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if s.Version != Version {
		return fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}
	return nil
}

func (s *System) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("version")
	e.Int(s.Version)
	e.FieldStart("cycles")
	e.Int64(s.Cycles)
	e.FieldStart("openbus")
	e.Int(int(s.OpenBus))

	e.FieldStart("dma")
	e.ObjStart()
	e.FieldStart("state")
	e.Int(int(s.DMA.State))
	e.FieldStart("src")
	e.Int(int(s.DMA.Src))
	e.FieldStart("phase")
	e.Int(int(s.DMA.Phase))
	e.FieldStart("data")
	e.Int(int(s.DMA.Data))
	e.ObjEnd()

	e.FieldStart("memctl")
	e.ObjStart()
	e.FieldStart("pending")
	e.Bool(s.MemCtl.Pending)
	e.FieldStart("addr")
	e.Int(int(s.MemCtl.Addr))
	e.FieldStart("wait")
	e.Int(s.MemCtl.Wait)
	e.FieldStart("ready")
	e.Bool(s.MemCtl.Ready)
	e.FieldStart("rdata")
	e.Int(int(s.MemCtl.RData))
	e.ObjEnd()

	e.FieldStart("oam")
	e.ObjStart()
	e.FieldStart("mem")
	e.Base64(s.OAM.Mem)
	e.FieldStart("addr")
	e.Int(int(s.OAM.Addr))
	e.ObjEnd()

	e.FieldStart("ram")
	e.Base64(s.RAM)
	e.FieldStart("wram")
	e.Base64(s.WRAM)
	e.ObjEnd()
}

func decodeUint(d *jx.Decoder, max int) (int, error) {
	v, err := d.Int()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("value %d out of range [0, %d]", v, max)
	}
	return v, nil
}

func (s *System) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		var v int
		switch key {
		case "version":
			s.Version, err = d.Int()
		case "cycles":
			s.Cycles, err = d.Int64()
		case "openbus":
			v, err = decodeUint(d, 0xFF)
			s.OpenBus = uint8(v)
		case "dma":
			err = s.DMA.decode(d)
		case "memctl":
			err = s.MemCtl.decode(d)
		case "oam":
			err = s.OAM.decode(d)
		case "ram":
			s.RAM, err = d.Base64()
		case "wram":
			s.WRAM, err = d.Base64()
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

func (dma *DMA) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   int
			err error
		)
		switch key {
		case "state":
			v, err = decodeUint(d, 2)
			dma.State = uint8(v)
		case "src":
			v, err = decodeUint(d, 0xFFFF)
			dma.Src = uint16(v)
		case "phase":
			v, err = decodeUint(d, 2)
			dma.Phase = uint8(v)
		case "data":
			v, err = decodeUint(d, 0xFF)
			dma.Data = uint8(v)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (mc *MemCtl) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   int
			err error
		)
		switch key {
		case "pending":
			mc.Pending, err = d.Bool()
		case "addr":
			v, err = decodeUint(d, 0xFFFF)
			mc.Addr = uint16(v)
		case "wait":
			mc.Wait, err = decodeUint(d, 1<<30)
		case "ready":
			mc.Ready, err = d.Bool()
		case "rdata":
			v, err = decodeUint(d, 0xFF)
			mc.RData = uint8(v)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (oam *OAM) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   int
			err error
		)
		switch key {
		case "mem":
			oam.Mem, err = d.Base64()
		case "addr":
			v, err = decodeUint(d, 0xFF)
			oam.Addr = uint8(v)
		default:
			err = d.Skip()
		}
		return err
	})
}

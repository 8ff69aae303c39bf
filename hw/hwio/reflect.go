package hwio

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// InitRegs initializes the Reg8, Mem and Device fields of the structure
// pointed by data, according to their "hwio" struct tag. Along with offset and
// bank (see Table.MapBank), the following options are recognized:
//
//	reset=0x12      Reg8 value at reset.
//	rwmask=0xF0     Reg8 bits that can be written (others are read-only).
//	size=0x800      Mem buffer size, or Device range size.
//	vsize=0x2000    Mem virtual size (mirroring). Defaults to size.
//	readonly        Writes are rejected (and logged).
//	writeonly       Reads are rejected (and logged).
//	rcb[=Name]      Read callback. Default name is "Read" + upper-cased field name.
//	wcb[=Name]      Write callback. Default name is "Write" + upper-cased field name.
//	pcb[=Name]      Peek callback. Default name is "Peek" + upper-cased field name.
//
// Callback methods must be defined on data.
func InitRegs(data any) error {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: InitRegs expects a pointer to struct, got %T", data)
	}
	sval := val.Elem()
	styp := sval.Type()

	for i := range styp.NumField() {
		field := styp.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("hwio: %s.%s: %w", styp.Name(), field.Name, err)
		}

		fptr := sval.Field(i).Addr().Interface()
		switch r := fptr.(type) {
		case *Reg8:
			err = initReg8(val, field.Name, r, opts)
		case *Mem:
			err = initMem(val, field.Name, r, opts)
		case *Device:
			err = initDevice(val, field.Name, r, opts)
		default:
			err = fmt.Errorf("unsupported type %T", r)
		}
		if err != nil {
			return fmt.Errorf("hwio: %s.%s: %w", styp.Name(), field.Name, err)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

type tagOpts map[string]string

func parseTag(tag string) (tagOpts, error) {
	opts := make(tagOpts)
	for _, kv := range strings.Split(tag, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "offset", "bank", "reset", "rwmask", "size", "vsize",
			"readonly", "writeonly", "rcb", "wcb", "pcb":
		default:
			return nil, fmt.Errorf("unknown tag option %q", k)
		}
		if _, dup := opts[k]; dup {
			return nil, fmt.Errorf("duplicate tag option %q", k)
		}
		opts[k] = v
	}
	return opts, nil
}

func (o tagOpts) has(key string) bool {
	_, ok := o[key]
	return ok
}

func (o tagOpts) uint(key string, bits int) (uint64, bool, error) {
	s, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, true, fmt.Errorf("option %s: %w", key, err)
	}
	return v, true, nil
}

func (o tagOpts) rwflags() (RWFlags, error) {
	ro, wo := o.has("readonly"), o.has("writeonly")
	switch {
	case ro && wo:
		return 0, errors.New("readonly and writeonly are mutually exclusive")
	case ro:
		return ReadOnlyFlag, nil
	case wo:
		return WriteOnlyFlag, nil
	}
	return ReadWriteFlag, nil
}

// method returns the callback method for the given tag option, or an invalid
// value if the option is not present.
func (o tagOpts) method(obj reflect.Value, key, prefix, field string) (reflect.Value, error) {
	name, ok := o[key]
	if !ok {
		return reflect.Value{}, nil
	}
	if name == "" {
		name = prefix + strings.ToUpper(field)
	}
	m := obj.MethodByName(name)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s: method %s not found on %s", key, name, obj.Type())
	}
	return m, nil
}

func assignCb[F any](dst *F, m reflect.Value, key string) error {
	if !m.IsValid() {
		return nil
	}
	f, ok := m.Interface().(F)
	if !ok {
		var zero F
		return fmt.Errorf("%s: callback has type %s, want %T", key, m.Type(), zero)
	}
	*dst = f
	return nil
}

func initReg8(obj reflect.Value, name string, r *Reg8, opts tagOpts) error {
	r.Name = name
	reset, _, err := opts.uint("reset", 8)
	if err != nil {
		return err
	}
	r.Value = uint8(reset)
	if mask, ok, err := opts.uint("rwmask", 8); err != nil {
		return err
	} else if ok {
		r.RoMask = ^uint8(mask)
	}
	if r.Flags, err = opts.rwflags(); err != nil {
		return err
	}

	rcb, err := opts.method(obj, "rcb", "Read", name)
	if err != nil {
		return err
	}
	wcb, err := opts.method(obj, "wcb", "Write", name)
	if err != nil {
		return err
	}
	pcb, err := opts.method(obj, "pcb", "Peek", name)
	if err != nil {
		return err
	}
	return errors.Join(
		assignCb(&r.ReadCb, rcb, "rcb"),
		assignCb(&r.WriteCb, wcb, "wcb"),
		assignCb(&r.PeekCb, pcb, "pcb"),
	)
}

func initMem(obj reflect.Value, name string, m *Mem, opts tagOpts) error {
	m.Name = name
	size, ok, err := opts.uint("size", 32)
	if err != nil {
		return err
	}
	if !ok || size == 0 || size > NumAddrs || size&(size-1) != 0 {
		return fmt.Errorf("mem requires a pow2 size (got %#x)", size)
	}
	m.Data = make([]byte, size)
	m.VSize = int(size)
	if vsize, ok, err := opts.uint("vsize", 32); err != nil {
		return err
	} else if ok {
		if vsize < size || vsize > NumAddrs {
			return fmt.Errorf("invalid vsize %#x", vsize)
		}
		m.VSize = int(vsize)
	}
	switch {
	case opts.has("writeonly"):
		return errors.New("mem cannot be writeonly")
	case opts.has("readonly"):
		m.Flags = ReadOnlyFlag
	}
	wcb, err := opts.method(obj, "wcb", "Write", name)
	if err != nil {
		return err
	}
	return assignCb(&m.WriteCb, wcb, "wcb")
}

func initDevice(obj reflect.Value, name string, d *Device, opts tagOpts) error {
	d.Name = name
	size, ok, err := opts.uint("size", 32)
	if err != nil {
		return err
	}
	if !ok || size == 0 || size > NumAddrs {
		return fmt.Errorf("device requires a size (got %#x)", size)
	}
	d.Size = int(size)
	if d.Flags, err = opts.rwflags(); err != nil {
		return err
	}

	rcb, err := opts.method(obj, "rcb", "Read", name)
	if err != nil {
		return err
	}
	wcb, err := opts.method(obj, "wcb", "Write", name)
	if err != nil {
		return err
	}
	pcb, err := opts.method(obj, "pcb", "Peek", name)
	if err != nil {
		return err
	}
	return errors.Join(
		assignCb(&d.ReadCb, rcb, "rcb"),
		assignCb(&d.WriteCb, wcb, "wcb"),
		assignCb(&d.PeekCb, pcb, "pcb"),
	)
}

type bankReg struct {
	offset uint16
	regPtr any
}

// bankGetRegs returns the registers of bank number bankNum, in declaration
// order. InitRegs must have been called on bank.
func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	val := reflect.ValueOf(bank)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	sval := val.Elem()
	styp := sval.Type()

	var regs []bankReg
	for i := range styp.NumField() {
		field := styp.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("hwio: %s.%s: %w", styp.Name(), field.Name, err)
		}
		off, ok, err := opts.uint("offset", 16)
		if err != nil {
			return nil, fmt.Errorf("hwio: %s.%s: %w", styp.Name(), field.Name, err)
		}
		if !ok {
			continue
		}
		num, _, err := opts.uint("bank", 8)
		if err != nil {
			return nil, fmt.Errorf("hwio: %s.%s: %w", styp.Name(), field.Name, err)
		}
		if int(num) != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: uint16(off),
			regPtr: sval.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}

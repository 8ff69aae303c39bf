package log

import (
	"fmt"
	"strconv"
)

type FieldType uint8

const (
	FieldTypeBool FieldType = iota + 1
	FieldTypeString
	FieldTypeHex8
	FieldTypeHex16
	FieldTypeInt
	FieldTypeError
	FieldTypeStringer
)

// ZField is a typed log field. Formatting is deferred until the entry is
// emitted.
type ZField struct {
	Type FieldType
	Key  string

	String    string
	Integer   int64
	Boolean   bool
	Error     error
	Interface fmt.Stringer
}

const hexdigits = "0123456789ABCDEF"

// appendHex appends the ndigits low hex digits of v, most significant first.
func appendHex(dst []byte, v uint64, ndigits int) []byte {
	for i := ndigits - 1; i >= 0; i-- {
		dst = append(dst, hexdigits[(v>>(4*i))&0xF])
	}
	return dst
}

// Value returns the textual form of the field value.
func (f *ZField) Value() string {
	var buf [4]byte
	switch f.Type {
	case FieldTypeBool:
		return strconv.FormatBool(f.Boolean)
	case FieldTypeString:
		return f.String
	case FieldTypeInt:
		return strconv.FormatInt(f.Integer, 10)
	case FieldTypeHex8:
		return string(appendHex(buf[:0], uint64(f.Integer), 2))
	case FieldTypeHex16:
		return string(appendHex(buf[:0], uint64(f.Integer), 4))
	case FieldTypeError:
		if f.Error == nil {
			return "<nil>"
		}
		return f.Error.Error()
	case FieldTypeStringer:
		if f.Interface == nil {
			return "<nil>"
		}
		return f.Interface.String()
	}
	return ""
}

package partition

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
)

// ComponentType is the type tag of a partition key component. The numeric
// value is both the ordinal used for cross-type ordering and the leading byte
// of every encoded form.
type ComponentType byte

const (
	TypeUndefined ComponentType = 0x00
	TypeNull      ComponentType = 0x01
	TypeFalse     ComponentType = 0x02
	TypeTrue      ComponentType = 0x03
	TypeMinNumber ComponentType = 0x04
	TypeNumber    ComponentType = 0x05
	TypeMaxNumber ComponentType = 0x06
	TypeMinString ComponentType = 0x07
	TypeString    ComponentType = 0x08
	TypeMaxString ComponentType = 0x09
	TypeInfinity  ComponentType = 0xFF
)

// MaxStringChars is the number of UTF-16 code units a string keeps after
// truncation.
const MaxStringChars = 100

func (t ComponentType) String() string {
	switch t {
	case TypeUndefined:
		return "Undefined"
	case TypeNull:
		return "Null"
	case TypeFalse:
		return "False"
	case TypeTrue:
		return "True"
	case TypeMinNumber:
		return "MinNumber"
	case TypeNumber:
		return "Number"
	case TypeMaxNumber:
		return "MaxNumber"
	case TypeMinString:
		return "MinString"
	case TypeString:
		return "String"
	case TypeMaxString:
		return "MaxString"
	case TypeInfinity:
		return "Infinity"
	default:
		return fmt.Sprintf("ComponentType(%#02x)", byte(t))
	}
}

// isSentinelOnly reports whether the type is an open-ended range marker that
// never appears in a concrete document key.
func (t ComponentType) isSentinelOnly() bool {
	switch t {
	case TypeMinNumber, TypeMaxNumber, TypeMinString, TypeMaxString, TypeInfinity:
		return true
	default:
		return false
	}
}

// Component is one scalar element of a partition key, or a sentinel marker.
// It is an immutable value type; the zero value is Undefined.
//
// A String component keeps its text as a Go string, which already is the
// UTF-8 byte sequence every encoder consumes.
type Component struct {
	typ ComponentType
	num float64
	str string
}

// Singleton components.
var (
	Undefined = Component{typ: TypeUndefined}
	Null      = Component{typ: TypeNull}
	False     = Component{typ: TypeFalse}
	True      = Component{typ: TypeTrue}
	MinNumber = Component{typ: TypeMinNumber}
	MaxNumber = Component{typ: TypeMaxNumber}
	MinString = Component{typ: TypeMinString}
	MaxString = Component{typ: TypeMaxString}
	Infinity  = Component{typ: TypeInfinity}
)

// Bool returns the component for a boolean value.
func Bool(b bool) Component {
	if b {
		return True
	}
	return False
}

// Number returns the component for a numeric value.
func Number(v float64) Component {
	return Component{typ: TypeNumber, num: v}
}

// String returns the component for a text value.
func String(s string) Component {
	return Component{typ: TypeString, str: s}
}

// Type returns the component's type tag.
func (c Component) Type() ComponentType {
	return c.typ
}

// Ordinal returns the position of the component's type in the cross-type order.
func (c Component) Ordinal() int {
	return int(c.typ)
}

// NumberValue returns the payload of a Number component.
func (c Component) NumberValue() (float64, bool) {
	return c.num, c.typ == TypeNumber
}

// StringValue returns the payload of a String component.
func (c Component) StringValue() (string, bool) {
	return c.str, c.typ == TypeString
}

// BoolValue returns the payload of a Bool component.
func (c Component) BoolValue() (bool, bool) {
	return c.typ == TypeTrue, c.typ == TypeTrue || c.typ == TypeFalse
}

// Compare orders c against other. Components of different types order by
// ordinal, components of the same type by payload. The open-ended sentinels
// and Infinity only compare against their own type; anything else is a
// caller error.
func (c Component) Compare(other Component) (int, error) {
	if c.typ != other.typ {
		if c.typ.isSentinelOnly() || other.typ.isSentinelOnly() {
			return 0, pkerrors.NewInvalidArgument(pkerrors.CodeSentinelMisuse,
				fmt.Sprintf("cannot compare %s with %s", c.typ, other.typ))
		}
		return cmp.Compare(c.typ, other.typ), nil
	}
	return c.comparePayload(other), nil
}

// compareOrdered is the key-level order: ordinal first, payload second. It
// never fails, which is what boundary keys carrying sentinels need.
func (c Component) compareOrdered(other Component) int {
	if c.typ != other.typ {
		return cmp.Compare(c.typ, other.typ)
	}
	return c.comparePayload(other)
}

func (c Component) comparePayload(other Component) int {
	switch c.typ {
	case TypeNumber:
		return cmp.Compare(c.num, other.num)
	case TypeString:
		return strings.Compare(c.str, other.str)
	default:
		return 0
	}
}

// Equal reports whether both components have the same type and payload.
func (c Component) Equal(other Component) bool {
	return c.compareOrdered(other) == 0
}

// Truncate bounds a String component to MaxStringChars UTF-16 code units.
// Every other component is returned unchanged.
func (c Component) Truncate() Component {
	if c.typ != TypeString || len(c.str) <= MaxStringChars {
		return c
	}
	units := utf16.Encode([]rune(c.str))
	if len(units) <= MaxStringChars {
		return c
	}
	// A surrogate pair split at the boundary decodes to U+FFFD.
	return String(string(utf16.Decode(units[:MaxStringChars])))
}

func (c Component) String() string {
	switch c.typ {
	case TypeNumber:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(c.str)
	case TypeTrue:
		return "true"
	case TypeFalse:
		return "false"
	case TypeNull:
		return "null"
	default:
		return c.typ.String()
	}
}

// FromValue converts a native Go value into a component. Components pass
// through unchanged, nil becomes Null, and all integer and float kinds
// become Number.
func FromValue(v any) (Component, error) {
	switch x := v.(type) {
	case Component:
		return x, nil
	case nil:
		return Null, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int8:
		return Number(float64(x)), nil
	case int16:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint:
		return Number(float64(x)), nil
	case uint8:
		return Number(float64(x)), nil
	case uint16:
		return Number(float64(x)), nil
	case uint32:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	default:
		return Component{}, pkerrors.NewInvalidArgument(pkerrors.CodeUnsupportedValue,
			fmt.Sprintf("unsupported partition key value of type %T", v))
	}
}

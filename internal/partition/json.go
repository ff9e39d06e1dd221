package partition

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
)

const infinityLiteral = "Infinity"

// MarshalJSON renders the key in its wire form: a JSON array of component
// values, with {} for Undefined and {"type":"<Name>"} for the open-ended
// sentinels. ExclusiveMaximum collapses to the string "Infinity".
func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsExclusiveMaximum() {
		return json.Marshal(infinityLiteral)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range k.components {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON renders one component of the wire form.
func (c Component) MarshalJSON() ([]byte, error) {
	switch c.typ {
	case TypeUndefined:
		return []byte("{}"), nil
	case TypeNull:
		return []byte("null"), nil
	case TypeFalse:
		return []byte("false"), nil
	case TypeTrue:
		return []byte("true"), nil
	case TypeNumber:
		return json.Marshal(c.num)
	case TypeString:
		return json.Marshal(c.str)
	case TypeMinNumber, TypeMaxNumber, TypeMinString, TypeMaxString:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{Type: c.typ.String()})
	default:
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeSentinelMisuse,
			fmt.Sprintf("%s can only appear as the whole key", c.typ))
	}
}

// UnmarshalJSON parses the wire form produced by MarshalJSON.
func (k *Key) UnmarshalJSON(data []byte) error {
	parsed, err := ParseKeyJSON(data)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKeyJSON parses the wire form of a partition key. Sentinel objects are
// accepted because server-declared range boundaries carry them.
func ParseKeyJSON(data []byte) (Key, error) {
	vdata, vtype, _, err := jsonparser.Get(data)
	if err != nil {
		return Key{}, malformed("partition key is not valid JSON", err)
	}

	switch vtype {
	case jsonparser.String:
		s, err := jsonparser.ParseString(vdata)
		if err != nil {
			return Key{}, malformed("invalid string literal", err)
		}
		if s != infinityLiteral {
			return Key{}, malformed(fmt.Sprintf("unexpected string literal %q", s), nil)
		}
		return ExclusiveMaximum, nil

	case jsonparser.Array:
		var components []Component
		var firstErr error
		_, err := jsonparser.ArrayEach(vdata, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
			if firstErr != nil {
				return
			}
			if err != nil {
				firstErr = err
				return
			}
			c, err := parseComponentJSON(value, dataType)
			if err != nil {
				firstErr = err
				return
			}
			components = append(components, c)
		})
		if err != nil {
			return Key{}, malformed("invalid partition key array", err)
		}
		if firstErr != nil {
			return Key{}, firstErr
		}
		return NewKey(components...), nil

	default:
		return Key{}, malformed(fmt.Sprintf("partition key must be an array, got %s", vtype), nil)
	}
}

func parseComponentJSON(value []byte, dataType jsonparser.ValueType) (Component, error) {
	switch dataType {
	case jsonparser.Null:
		return Null, nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return Component{}, malformed("invalid boolean", err)
		}
		return Bool(b), nil
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			return Component{}, malformed("invalid number", err)
		}
		return Number(f), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return Component{}, malformed("invalid string", err)
		}
		return String(s), nil
	case jsonparser.Object:
		return parseSentinelJSON(value)
	default:
		return Component{}, malformed(fmt.Sprintf("unsupported component of JSON type %s", dataType), nil)
	}
}

// parseSentinelJSON maps {} to Undefined and {"type":"<Name>"} to the named
// open-ended sentinel.
func parseSentinelJSON(value []byte) (Component, error) {
	var name string
	fields := 0
	err := jsonparser.ObjectEach(value, func(key []byte, v []byte, dataType jsonparser.ValueType, offset int) error {
		fields++
		if string(key) != "type" || dataType != jsonparser.String {
			return fmt.Errorf("unexpected field %q", key)
		}
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return err
		}
		name = s
		return nil
	})
	if err != nil {
		return Component{}, malformed("invalid sentinel object", err)
	}
	if fields == 0 {
		return Undefined, nil
	}

	switch name {
	case TypeMinNumber.String():
		return MinNumber, nil
	case TypeMaxNumber.String():
		return MaxNumber, nil
	case TypeMinString.String():
		return MinString, nil
	case TypeMaxString.String():
		return MaxString, nil
	default:
		return Component{}, malformed(fmt.Sprintf("unknown sentinel type %q", name), nil)
	}
}

func malformed(message string, cause error) error {
	return pkerrors.NewCorruption(pkerrors.CodeMalformedJSON, message, cause)
}

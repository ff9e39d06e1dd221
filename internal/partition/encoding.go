package partition

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
)

const (
	// MaxKeyBytes is the size of the scratch buffer a full key is encoded into.
	MaxKeyBytes = 336

	// maxStringBytesToAppend bounds the string payload of the sortable form.
	maxStringBytesToAppend = 100

	stringTerminatorV1 = 0x00
	stringTerminatorV2 = 0xFF
)

// AppendForHashing appends the V1 hashing form of c to dst. Numbers are the
// raw little-endian IEEE-754 bits, strings end with 0x00.
func (c Component) AppendForHashing(dst []byte) ([]byte, error) {
	return c.appendHashed(dst, stringTerminatorV1)
}

// AppendForHashingV2 appends the V2 hashing form of c to dst. It differs from
// V1 only in the string terminator (0xFF), which keeps the two hash spaces
// apart.
func (c Component) AppendForHashingV2(dst []byte) ([]byte, error) {
	return c.appendHashed(dst, stringTerminatorV2)
}

func (c Component) appendHashed(dst []byte, terminator byte) ([]byte, error) {
	switch c.typ {
	case TypeUndefined, TypeNull, TypeFalse, TypeTrue:
		return append(dst, byte(c.typ)), nil
	case TypeNumber:
		dst = append(dst, byte(TypeNumber))
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(c.num)), nil
	case TypeString:
		dst = append(dst, byte(TypeString))
		dst = append(dst, c.str...)
		return append(dst, terminator), nil
	default:
		return dst, pkerrors.NewInvalidArgument(pkerrors.CodeSentinelMisuse,
			fmt.Sprintf("%s cannot be hashed", c.typ))
	}
}

// AppendBinaryEncoding appends the self-delimiting sortable form of c to dst.
// Comparing two encodings byte by byte gives the same order as comparing the
// components.
func (c Component) AppendBinaryEncoding(dst []byte) []byte {
	switch c.typ {
	case TypeNumber:
		return appendSortableNumber(append(dst, byte(TypeNumber)), c.num)
	case TypeString:
		return appendSortableString(append(dst, byte(TypeString)), c.str)
	default:
		return append(dst, byte(c.typ))
	}
}

// appendSortableNumber writes the order-preserving 64-bit image of v: the
// most significant byte whole, then 7 bits per byte with the low bit set on
// every byte but the last.
func appendSortableNumber(dst []byte, v float64) []byte {
	payload := encodeDoubleAsUint64(v)

	dst = append(dst, byte(payload>>56))
	payload <<= 8

	var b byte
	first := true
	for payload != 0 {
		if !first {
			dst = append(dst, b)
		}
		first = false
		b = byte(payload>>56) | 0x01
		payload <<= 7
	}
	return append(dst, b&0xFE)
}

func appendSortableString(dst []byte, s string) []byte {
	short := len(s) <= maxStringBytesToAppend
	n := len(s)
	if !short {
		n = maxStringBytesToAppend + 1
	}
	for i := 0; i < n; i++ {
		b := s[i]
		if b < 0xFF {
			b++
		}
		dst = append(dst, b)
	}
	if short {
		dst = append(dst, 0x00)
	}
	return dst
}

// encodeDoubleAsUint64 maps the bits of v onto an unsigned integer whose
// order matches numeric order. -0 and +0 map to the same value.
func encodeDoubleAsUint64(v float64) uint64 {
	const mask = uint64(1) << 63
	bits := math.Float64bits(v)
	if bits < mask {
		return bits ^ mask
	}
	return ^bits + 1
}

func decodeDoubleFromUint64(u uint64) float64 {
	const mask = uint64(1) << 63
	if u < mask {
		u = ^(u - 1)
	} else {
		u ^= mask
	}
	return math.Float64frombits(u)
}

// EncodeBinary returns the concatenated sortable encodings of components.
func EncodeBinary(components []Component) []byte {
	var scratch [MaxKeyBytes]byte
	buf := scratch[:0]
	for _, c := range components {
		buf = c.AppendBinaryEncoding(buf)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

// DecodeBinary parses a concatenation of sortable encodings. Long strings
// come back as their 101-byte encoded prefix, so only untruncated values
// round-trip exactly.
func DecodeBinary(data []byte) ([]Component, error) {
	var components []Component
	for pos := 0; pos < len(data); {
		typ := ComponentType(data[pos])
		pos++

		switch typ {
		case TypeUndefined, TypeNull, TypeFalse, TypeTrue,
			TypeMinNumber, TypeMaxNumber, TypeMinString, TypeMaxString, TypeInfinity:
			components = append(components, Component{typ: typ})

		case TypeNumber:
			v, n, err := readSortableNumber(data[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			components = append(components, Number(v))

		case TypeString:
			s, n, err := readSortableString(data[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			components = append(components, String(s))

		default:
			return nil, pkerrors.NewCorruption(pkerrors.CodeUnknownTag,
				fmt.Sprintf("unknown component tag %#02x at offset %d", byte(typ), pos-1), nil)
		}
	}
	return components, nil
}

func readSortableNumber(data []byte) (float64, int, error) {
	if len(data) < 2 {
		return 0, 0, pkerrors.NewCorruption(pkerrors.CodeTruncatedInput, "number payload is truncated", nil)
	}
	payload := uint64(data[0]) << 56
	shift := 49
	for i := 1; i < len(data); i++ {
		if shift < 0 {
			return 0, 0, pkerrors.NewCorruption(pkerrors.CodeTruncatedInput, "number payload is too long", nil)
		}
		b := data[i]
		payload |= uint64(b>>1) << uint(shift)
		if b&0x01 == 0 {
			return decodeDoubleFromUint64(payload), i + 1, nil
		}
		shift -= 7
	}
	return 0, 0, pkerrors.NewCorruption(pkerrors.CodeTruncatedInput, "number payload has no final byte", nil)
}

func readSortableString(data []byte) (string, int, error) {
	buf := make([]byte, 0, maxStringBytesToAppend+1)
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == 0x00 {
			return string(buf), i + 1, nil
		}
		if b < 0xFF {
			b--
		}
		buf = append(buf, b)
		if len(buf) == maxStringBytesToAppend+1 {
			return string(buf), i + 1, nil
		}
	}
	return "", 0, pkerrors.NewCorruption(pkerrors.CodeTruncatedInput, "string payload has no terminator", nil)
}

// ToHex encodes b as lowercase hexadecimal.
func ToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// FromHex decodes an effective partition key. Odd lengths are rejected as
// invalid arguments and non-hex characters as corruption.
func FromHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeOddHexLength,
			fmt.Sprintf("hex string has odd length %d", len(s)))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, pkerrors.NewCorruption(pkerrors.CodeInvalidHex, "hex string is malformed", err)
	}
	return b, nil
}

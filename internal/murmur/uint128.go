package murmur

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Uint128 is an unsigned 128-bit integer split into two 64-bit halves.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Bytes returns the canonical little-endian layout: Lo first, then Hi, each
// in little-endian byte order.
func (u Uint128) Bytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], u.Lo)
	binary.LittleEndian.PutUint64(b[8:], u.Hi)
	return b
}

// BigEndianBytes returns the value as 16 big-endian bytes. This is Bytes()
// reversed.
func (u Uint128) BigEndianBytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], u.Hi)
	binary.BigEndian.PutUint64(b[8:], u.Lo)
	return b
}

// Big converts the value to a big.Int.
func (u Uint128) Big() *big.Int {
	b := u.BigEndianBytes()
	return new(big.Int).SetBytes(b[:])
}

func (u Uint128) String() string {
	return fmt.Sprintf("%016x%016x", u.Hi, u.Lo)
}

package codec

import "encoding/binary"

// Uint8Codec encodes a uint8 as a single byte.
type Uint8Codec struct{}

func (Uint8Codec) Width() int            { return 1 }
func (Uint8Codec) Encode(v uint8) []byte { return []byte{v} }
func (Uint8Codec) Decode(b []byte) uint8 { return b[0] }

// Uint32Codec encodes a uint32 as 4 little-endian bytes.
type Uint32Codec struct{}

func (Uint32Codec) Width() int { return 4 }
func (Uint32Codec) Encode(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
func (Uint32Codec) Decode(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// Uint64Codec encodes a uint64 as 8 little-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Width() int { return 8 }
func (Uint64Codec) Encode(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
func (Uint64Codec) Decode(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// Int64Codec encodes an int64 as 8 little-endian bytes (two's complement).
type Int64Codec struct{}

func (Int64Codec) Width() int { return 8 }
func (Int64Codec) Encode(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}
func (Int64Codec) Decode(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }

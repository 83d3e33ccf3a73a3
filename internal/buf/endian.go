// Package buf contains bounds helpers and the little-endian field codec used
// for allocation headers and intrusive free-list nodes stored inside arenas.
//
// The Put/Get helpers take an explicit offset and rely on Go's slice bounds
// checks: an out-of-range offset panics instead of touching a neighbour.
package buf

import "encoding/binary"

// U8 reads the byte at off.
func U8(b []byte, off int) uint8 {
	return b[off]
}

// PutU8 writes v at off.
func PutU8(b []byte, off int, v uint8) {
	b[off] = v
}

// U16 reads a little-endian uint16 at off.
func U16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// PutU16 writes a little-endian uint16 at off.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

// U32 reads a little-endian uint32 at off.
func U32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// PutU32 writes a little-endian uint32 at off.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// U64 reads a little-endian uint64 at off.
func U64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// PutU64 writes a little-endian uint64 at off.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

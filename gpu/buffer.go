package gpu

import (
	"encoding/binary"
	"math"
)

// Buffer is a structured buffer of fixed-stride records.
// Words are little endian and 4 bytes wide.
type Buffer struct {
	id     uint64
	name   string
	count  int
	stride int
	data   []byte
}

func (b *Buffer) ID() uint64   { return b.id }
func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Count() int   { return b.count }
func (b *Buffer) Stride() int  { return b.stride }

func (b *Buffer) offset(record, word int) int {
	return record*b.stride + word*4
}

// Int32 reads word of the given record as a signed integer.
func (b *Buffer) Int32(record, word int) int32 {
	return int32(binary.LittleEndian.Uint32(b.data[b.offset(record, word):]))
}

// Float32 reads word of the given record as a float.
func (b *Buffer) Float32(record, word int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.data[b.offset(record, word):]))
}

// PutFloat32 writes word of the given record.
func (b *Buffer) PutFloat32(record, word int, v float32) {
	binary.LittleEndian.PutUint32(b.data[b.offset(record, word):], math.Float32bits(v))
}

package embedcache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Matrix is an ordered list of fixed-dimension embedding rows.
// Row i always corresponds to corpus entry i.
type Matrix [][]float32

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Dim returns the row dimension, or 0 for an empty matrix.
func (m Matrix) Dim() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Validate checks that every row has the same non-zero dimension.
func (m Matrix) Validate() error {
	if len(m) == 0 {
		return nil
	}
	dim := len(m[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-dimension rows", ErrCorruptEntry)
	}
	for i, row := range m {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has dim %d, want %d", ErrCorruptEntry, i, len(row), dim)
		}
	}
	return nil
}

var magic = [4]byte{'E', 'M', 'B', '1'}

const headerLen = 12

// Encode serializes m as a small header (magic, rows, dim) followed by
// little-endian IEEE 754 float32 values in row-major order.
func Encode(m Matrix) ([]byte, error) {
	if len(m) == 0 {
		return nil, ErrEmptyMatrix
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	rows, dim := m.Rows(), m.Dim()

	b := make([]byte, headerLen+rows*dim*4)
	copy(b[:4], magic[:])
	binary.LittleEndian.PutUint32(b[4:8], uint32(rows))
	binary.LittleEndian.PutUint32(b[8:12], uint32(dim))

	off := headerLen
	for _, row := range m {
		for _, v := range row {
			binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
			off += 4
		}
	}
	return b, nil
}

// Decode parses bytes produced by Encode.
func Decode(b []byte) (Matrix, error) {
	if len(b) < headerLen {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrCorruptEntry, len(b))
	}
	if [4]byte(b[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptEntry, b[:4])
	}
	rows := int(binary.LittleEndian.Uint32(b[4:8]))
	dim := int(binary.LittleEndian.Uint32(b[8:12]))

	want := headerLen + rows*dim*4
	if rows < 0 || dim <= 0 || len(b) != want {
		return nil, fmt.Errorf("%w: size mismatch: got %d want %d (rows=%d dim=%d)",
			ErrCorruptEntry, len(b), want, rows, dim)
	}

	m := make(Matrix, rows)
	off := headerLen
	for i := range m {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
			off += 4
		}
		m[i] = row
	}
	return m, nil
}

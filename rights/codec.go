package rights

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrValueOutOfRange is returned when a mask outside 0..255 is written.
	ErrValueOutOfRange = errors.New("rights value out of byte range")
	// ErrNegativeOffset is returned when writing below offset zero.
	ErrNegativeOffset = errors.New("rights offset must be non-negative")
	// ErrMalformed is returned by [Decode] for input that is not base64url.
	ErrMalformed = errors.New("malformed rights encoding")
)

// MaxValue is the largest mask a single resource slot can hold.
const MaxValue = 0xFF

// ReadByteAt returns the unsigned byte at offset, or 0 when offset lies
// outside buf. A nil buf is treated as empty.
func ReadByteAt(buf []byte, offset int) int {
	if offset < 0 || offset >= len(buf) {
		return 0
	}
	return int(buf[offset])
}

// WriteByteAt returns a copy of buf, zero-padded to at least offset+1 bytes,
// with the byte at offset set to value. buf itself is never modified.
func WriteByteAt(buf []byte, offset, value int) ([]byte, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
	}
	if value < 0 || value > MaxValue {
		return nil, fmt.Errorf("%w: %d", ErrValueOutOfRange, value)
	}

	size := len(buf)
	if offset >= size {
		size = offset + 1
	}
	out := make([]byte, size)
	copy(out, buf)
	out[offset] = byte(value)
	return out, nil
}

// HasBit reports whether every bit of mask is present in value. Both operands
// are reduced modulo 256 first, so hasBit(v, 0) is always true and
// hasBit(0, m) is false for any m with a non-zero low byte.
func HasBit(value, mask int) bool {
	m := mask & MaxValue
	return value&MaxValue&m == m
}

// Normalize reduces value modulo 256. It reproduces the wrap-around applied to
// historically persisted rights strings and exists for import tooling only;
// [WriteByteAt] rejects such values instead.
func Normalize(value int) byte {
	return byte(value & MaxValue)
}

// Buffer is a packed rights buffer.
type Buffer []byte

// Get returns the mask stored at offset, or 0.
func (b Buffer) Get(offset int) int {
	return ReadByteAt(b, offset)
}

// Set returns a new buffer with value stored at offset.
func (b Buffer) Set(offset, value int) (Buffer, error) {
	out, err := WriteByteAt(b, offset, value)
	if err != nil {
		return nil, err
	}
	return Buffer(out), nil
}

// Has reports whether the mask at offset contains every bit of mask.
func (b Buffer) Has(offset, mask int) bool {
	return HasBit(b.Get(offset), mask)
}

// Len returns the materialized length of the buffer.
func (b Buffer) Len() int {
	return len(b)
}

// Clone returns an independent copy. Cloning nil yields nil.
func (b Buffer) Clone() Buffer {
	if b == nil {
		return nil
	}
	out := make(Buffer, len(b))
	copy(out, b)
	return out
}

// Grow returns a copy zero-padded to at least n bytes.
func (b Buffer) Grow(n int) Buffer {
	if n <= len(b) {
		return b.Clone()
	}
	out := make(Buffer, n)
	copy(out, b)
	return out
}

// Equal reports whether a and b grant the same masks at every offset.
// Trailing zero bytes are insignificant.
func (b Buffer) Equal(other Buffer) bool {
	return bytes.Equal(trimZeros(b), trimZeros(other))
}

// Encode renders the buffer as unpadded base64url. An empty buffer encodes
// to "".
func (b Buffer) Encode() string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// String implements fmt.Stringer using [Buffer.Encode].
func (b Buffer) String() string {
	return b.Encode()
}

// Decode parses the output of [Buffer.Encode].
func Decode(s string) (Buffer, error) {
	if s == "" {
		return Buffer{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Buffer(raw), nil
}

func trimZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

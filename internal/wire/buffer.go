package wire

import "encoding/binary"

// Writer serializes into a fixed-capacity buffer obtained from the pool or a
// stack scratch array. It never reallocates: once cap(buf) is exhausted it
// stops writing and records the total capacity it would have needed, so the
// caller gets a CapacityError instead of a silent realloc or an out-of-bounds
// panic.
type Writer struct {
	buf        []byte
	overflowed bool
	needed     int
}

// NewWriter wraps buf (len 0, some capacity) for serialization.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the bytes written so far. Only meaningful when Overflowed is
// false.
func (w *Writer) Bytes() []byte { return w.buf }

// Overflowed reports whether the buffer's capacity was exceeded.
func (w *Writer) Overflowed() bool { return w.overflowed }

// Needed returns the minimum capacity that would have avoided overflow, once
// Overflowed is true (it keeps counting past the first overflow so the
// caller gets the true total, not just where writing stopped).
func (w *Writer) Needed() int { return w.needed }

func (w *Writer) reserve(n int) []byte {
	w.needed += n
	if len(w.buf)+n > cap(w.buf) {
		w.overflowed = true
		return nil
	}
	old := len(w.buf)
	w.buf = w.buf[:old+n]
	return w.buf[old : old+n]
}

func (w *Writer) WriteU8(v uint8) {
	if dst := w.reserve(1); dst != nil {
		dst[0] = v
	}
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	if dst := w.reserve(2); dst != nil {
		binary.LittleEndian.PutUint16(dst, v)
	}
}

func (w *Writer) WriteU32(v uint32) {
	if dst := w.reserve(4); dst != nil {
		binary.LittleEndian.PutUint32(dst, v)
	}
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	if dst := w.reserve(8); dst != nil {
		binary.LittleEndian.PutUint64(dst, v)
	}
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteRawBytes(b []byte) {
	if dst := w.reserve(len(b)); dst != nil {
		copy(dst, b)
	}
}

// WriteBoundedString writes a u16 length prefix followed by the raw bytes of
// s. Returns ErrStringTooLong without touching the buffer if s exceeds max.
func (w *Writer) WriteBoundedString(s string, max int) error {
	if len(s) > max {
		return ErrStringTooLong
	}
	w.WriteU16(uint16(len(s)))
	w.WriteRawBytes([]byte(s))
	return nil
}

// Reader deserializes from a borrowed byte slice. It never copies: fields
// are returned as sub-slices of the original input, or as Go's native
// int/bool/etc for fixed-width fields. Turning a borrowed string field into
// an owned Go string is left to BoundedString.String, so the caller only
// pays for the copy on fields it actually inspects.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for deserialization. buf is retained, not copied: the
// caller must keep it alive for as long as any BoundedString derived from
// this Reader is still in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrBufferTooShort
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadRawBytes borrows n bytes from the input without copying.
func (r *Reader) ReadRawBytes(n int) ([]byte, error) {
	return r.take(n)
}

// ReadBoundedString reads a u16 length prefix and borrows that many bytes,
// rejecting the field outright if the declared length exceeds max so an
// oversized string is never even materialized.
func (r *Reader) ReadBoundedString(max int) (BoundedString, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	if int(n) > max {
		return nil, ErrStringTooLong
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return BoundedString(b), nil
}

// BoundedString is a borrowed, not-yet-copied string field. Call String to
// materialize it only when the field is actually needed.
type BoundedString []byte

// String copies the borrowed bytes into a new Go string.
func (s BoundedString) String() string { return string(s) }

// Len reports the byte length without copying.
func (s BoundedString) Len() int { return len(s) }

// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wire

import (
	"encoding/binary"
	"math"
	"time"
)

// Writer accumulates a serialized message. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf as its initial backing array, reset to
// length zero so repeated encodes can reuse the allocation.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the serialized payload accumulated so far.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteU8(v uint8)  { w.buf = append(w.buf, v) }
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteI8(v int8)   { w.WriteU8(uint8(v)) }
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteDuration encodes d as its underlying nanosecond count, an i64.
func (w *Writer) WriteDuration(d time.Duration) { w.WriteI64(int64(d)) }

// WriteBytes encodes a byte vector as a u16 length prefix then the bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString encodes a string the same way as WriteBytes.
func (w *Writer) WriteString(s string) {
	w.WriteU16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader consumes a serialized message, tracking an offset into buf.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrShortBuffer
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadDuration() (time.Duration, error) {
	v, err := r.ReadI64()
	return time.Duration(v), err
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, ErrOversizeLength
	}
	b := make([]byte, n)
	copy(b, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return b, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

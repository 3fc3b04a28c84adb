package utils

import (
	"encoding/binary"
	"math"
)

// BufWriter is the growable counterpart of BufStack.
type BufWriter struct {
	buf []byte
}

func NewBufWriter() *BufWriter {
	return &BufWriter{buf: make([]byte, 0, 64)}
}

func (bw *BufWriter) Bytes() []byte {
	return bw.buf
}

func (bw *BufWriter) Len() int {
	return len(bw.buf)
}

func (bw *BufWriter) Write(p []byte) (int, error) {
	bw.buf = append(bw.buf, p...)
	return len(p), nil
}

func (bw *BufWriter) WriteByte(b byte) error {
	bw.buf = append(bw.buf, b)
	return nil
}

func (bw *BufWriter) WriteU8(b byte) {
	bw.buf = append(bw.buf, b)
}

func (bw *BufWriter) WriteLU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	bw.buf = append(bw.buf, b[:]...)
}

func (bw *BufWriter) WriteLU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.buf = append(bw.buf, b[:]...)
}

func (bw *BufWriter) WriteLF(f float32) {
	bw.WriteLU32(math.Float32bits(f))
}

func (bw *BufWriter) WriteQ16F(f, lo, hi float32) {
	bw.WriteLU16(EncodeQuant16(f, lo, hi))
}

func (bw *BufWriter) WriteZString(s string) {
	bw.buf = append(bw.buf, StringToBytes(s, true)...)
}

// WriteChunk writes  id | size | payload.
func (bw *BufWriter) WriteChunk(id uint32, payload []byte) {
	bw.WriteLU32(id)
	bw.WriteLU32(uint32(len(payload)))
	bw.buf = append(bw.buf, payload...)
}

package utils

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var ErrTruncatedData = errors.New("truncated data")

// BufStack is a sequential little-endian reader over a byte slice.
// Sub buffers keep a link to the parent so errors can print the whole chain.
type BufStack struct {
	parent         *BufStack
	buf            []byte
	relativeOffset int
	absoluteOffset int
	pos            int
	kind           string
	name           string
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:  b,
		kind: kind,
	}
}

// SubBuf creates a child reader over [offset:offset+size] of bs.
func (bs *BufStack) SubBuf(kind string, offset, size int) (*BufStack, error) {
	if offset < 0 || size < 0 || offset+size > len(bs.buf) {
		return nil, errors.Wrapf(ErrTruncatedData, "sub buffer %q [o:0x%x,s:0x%x] of %v", kind, offset, size, bs)
	}
	return &BufStack{
		parent:         bs,
		relativeOffset: offset,
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
		buf:            bs.buf[offset : offset+size],
	}, nil
}

// SubBufFollowing takes next size bytes of bs as a child reader and skips them.
func (bs *BufStack) SubBufFollowing(kind string, size int) (*BufStack, error) {
	child, err := bs.SubBuf(kind, bs.pos, size)
	if err != nil {
		return nil, err
	}
	bs.pos += size
	return child, nil
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) Name() string {
	return bs.name
}

func (bs *BufStack) Kind() string {
	return bs.kind
}

func (bs *BufStack) Size() int {
	return len(bs.buf)
}

func (bs *BufStack) Pos() int {
	return bs.pos
}

func (bs *BufStack) Left() int {
	return len(bs.buf) - bs.pos
}

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[o:0x%x,s:0x%x,ao:0x%x,pos:0x%x]",
		bs.kind, bs.name, bs.relativeOffset, len(bs.buf), bs.absoluteOffset, bs.pos)
}

func (bs *BufStack) StringChain() string {
	s := bs.String()
	if bs.parent != nil {
		s += fmt.Sprintf("::%s", bs.parent.StringChain())
	}
	return s
}

func (bs *BufStack) Read(amount int) ([]byte, error) {
	if amount < 0 || bs.pos+amount > len(bs.buf) {
		return nil, errors.Wrapf(ErrTruncatedData, "read 0x%x bytes at %v", amount, bs.StringChain())
	}
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos], nil
}

func (bs *BufStack) Skip(amount int) error {
	_, err := bs.Read(amount)
	return err
}

func (bs *BufStack) ReadLU32() (uint32, error) {
	b, err := bs.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (bs *BufStack) ReadLU16() (uint16, error) {
	b, err := bs.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (bs *BufStack) ReadByte() (byte, error) {
	b, err := bs.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (bs *BufStack) ReadLF() (float32, error) {
	u, err := bs.ReadLU32()
	return math.Float32frombits(u), err
}

// ReadLFs fills dst with consecutive little-endian floats.
func (bs *BufStack) ReadLFs(dst []float32) error {
	for i := range dst {
		f, err := bs.ReadLF()
		if err != nil {
			return err
		}
		dst[i] = f
	}
	return nil
}

// ReadQ16F reads a u16 and maps it onto [lo, hi].
func (bs *BufStack) ReadQ16F(lo, hi float32) (float32, error) {
	raw, err := bs.ReadLU16()
	if err != nil {
		return 0, err
	}
	return DecodeQuant16(raw, lo, hi), nil
}

// ReadZString reads a zero terminated string, decoded with the configured charmap.
func (bs *BufStack) ReadZString() (string, error) {
	for i := bs.pos; i < len(bs.buf); i++ {
		if bs.buf[i] == 0 {
			s := BytesToString(bs.buf[bs.pos:i])
			bs.pos = i + 1
			return s, nil
		}
	}
	return "", errors.Wrapf(ErrTruncatedData, "unterminated string at %v", bs.StringChain())
}

// VerifyEnd returns error if any bytes left unread.
func (bs *BufStack) VerifyEnd() error {
	if bs.pos != len(bs.buf) {
		return errors.Errorf("Mismatch sizes: %v != %v at %v", bs.pos, len(bs.buf), bs.StringChain())
	}
	return nil
}

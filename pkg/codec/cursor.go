package codec

import (
	"encoding/binary"
	"unicode/utf8"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

const (
	TagLength     = 8
	AddressLength = 32
)

// Cursor reads little-endian fields from an immutable buffer, checking the
// remaining length before every read. The first failure sticks: later reads
// return zero values and Err reports the original error.
type Cursor struct {
	b   []byte
	p   int
	err error
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b}
}

func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) Offset() int {
	return c.p
}

func (c *Cursor) Remaining() int {
	return len(c.b) - c.p
}

func (c *Cursor) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// take advances past n bytes, or fails with TruncatedBuffer.
func (c *Cursor) take(n int, field string) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || n > c.Remaining() {
		c.fail(clerk.NewErr(clerk.TruncatedBuffer, "%s at offset %d: need %d bytes, have %d", field, c.p, n, c.Remaining()))
		return nil
	}
	p := c.p
	c.p += n
	return c.b[p : p+n : p+n]
}

func (c *Cursor) Bytes(n int, field string) []byte {
	b := c.take(n, field)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (c *Cursor) Tag() (tag Tag) {
	copy(tag[:], c.take(TagLength, "tag"))
	return
}

func (c *Cursor) Address(field string) (a clerk.Address) {
	copy(a[:], c.take(AddressLength, field))
	return
}

func (c *Cursor) U8(field string) uint8 {
	b := c.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads one byte: zero is false, anything else is true.
func (c *Cursor) Bool(field string) bool {
	return c.U8(field) != 0
}

func (c *Cursor) U16(field string) uint16 {
	b := c.take(2, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *Cursor) U32(field string) uint32 {
	b := c.take(4, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *Cursor) U64(field string) uint64 {
	b := c.take(8, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *Cursor) I64(field string) int64 {
	return int64(c.U64(field))
}

// String reads a u32 byte length followed by that many UTF-8 bytes.
func (c *Cursor) String(field string) string {
	start := c.p
	n := c.U32(field + " length")
	if c.err != nil {
		return ""
	}
	if uint64(n) > uint64(c.Remaining()) {
		c.fail(clerk.NewErr(clerk.TruncatedBuffer, "%s at offset %d: declared length %d, have %d", field, start, n, c.Remaining()))
		return ""
	}
	b := c.take(int(n), field)
	if !utf8.Valid(b) {
		c.fail(clerk.NewErr(clerk.InvalidEncoding, "%s at offset %d: not valid UTF-8", field, start))
		return ""
	}
	return string(b)
}

// Variant reads a one-byte enum ordinal, failing with UnknownVariant when
// it is not below count.
func (c *Cursor) Variant(field string, count int) uint8 {
	start := c.p
	ord := c.U8(field)
	if c.err != nil {
		return 0
	}
	if int(ord) >= count {
		c.fail(clerk.NewErr(clerk.UnknownVariant, "%s at offset %d: ordinal %d out of range (0-%d)", field, start, ord, count-1))
		return 0
	}
	return ord
}

// VecLen reads a u32 element count. If the remaining bytes cannot hold
// count elements of at least minElem bytes it fails immediately, before
// the caller allocates anything.
func (c *Cursor) VecLen(field string, minElem int) int {
	start := c.p
	n := c.U32(field + " count")
	if c.err != nil {
		return 0
	}
	if minElem > 0 && uint64(n)*uint64(minElem) > uint64(c.Remaining()) {
		c.fail(clerk.NewErr(clerk.TruncatedBuffer, "%s at offset %d: %d elements need %d bytes, have %d", field, start, n, uint64(n)*uint64(minElem), c.Remaining()))
		return 0
	}
	return int(n)
}

// Option reads a one-byte presence flag (0 none, 1 some).
func (c *Cursor) Option(field string) bool {
	start := c.p
	flag := c.U8(field + " flag")
	if c.err != nil {
		return false
	}
	switch flag {
	case 0:
		return false
	case 1:
		return true
	}
	c.fail(clerk.NewErr(clerk.InvalidEncoding, "%s at offset %d: option flag %d", field, start, flag))
	return false
}

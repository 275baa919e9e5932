package codec

import (
	"bytes"
	"encoding/hex"
	"testing"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

func TestCursorBytes(t *testing.T) {
	c := NewCursor(hx2b("01020304"))
	if b := c.Bytes(4, "b"); !bytes.Equal(b, hx2b("01020304")) {
		t.Errorf("Bytes: wrong value: %x", b)
	}
	if c.Remaining() != 0 || c.Err() != nil {
		t.Errorf("Bytes: cursor not complete: %d %v", c.Remaining(), c.Err())
	}
}

func TestCursorIntegers(t *testing.T) {
	c := NewCursor(hx2b("ff" + "0102" + "01020304" + "0102030405060708" + "feffffffffffffff"))
	if v := c.U8("u8"); v != 0xff {
		t.Errorf("U8: wrong value: %x", v)
	}
	if v := c.U16("u16"); v != 0x0201 {
		t.Errorf("U16: wrong value: %x", v)
	}
	if v := c.U32("u32"); v != 0x04030201 {
		t.Errorf("U32: wrong value: %x", v)
	}
	if v := c.U64("u64"); v != 0x0807060504030201 {
		t.Errorf("U64: wrong value: %x", v)
	}
	if v := c.I64("i64"); v != -2 {
		t.Errorf("I64: wrong value: %d", v)
	}
	if c.Err() != nil || c.Remaining() != 0 {
		t.Errorf("Integers: cursor not complete: %d %v", c.Remaining(), c.Err())
	}
}

func TestCursorBool(t *testing.T) {
	c := NewCursor(hx2b("000102ff"))
	expect := []bool{false, true, true, true}
	for i, e := range expect {
		if v := c.Bool("b"); v != e {
			t.Errorf("Bool %d: wrong value: %v", i, v)
		}
	}
}

func TestCursorString(t *testing.T) {
	c := NewCursor(append(hx2b("09000000"), "Acme Corp"...))
	if s := c.String("name"); s != "Acme Corp" {
		t.Errorf("String: wrong value: %q", s)
	}
	if c.Err() != nil || c.Remaining() != 0 {
		t.Errorf("String: cursor not complete: %d %v", c.Remaining(), c.Err())
	}
	// empty string
	c = NewCursor(hx2b("00000000"))
	if s := c.String("empty"); s != "" || c.Err() != nil {
		t.Errorf("String: empty string failed: %q %v", s, c.Err())
	}
}

func TestCursorStringTruncated(t *testing.T) {
	c := NewCursor(append(hx2b("0a000000"), "Acme Corp"...))
	if s := c.String("name"); s != "" {
		t.Errorf("String: returned value on overrun: %q", s)
	}
	if !clerk.IsError(c.Err(), clerk.TruncatedBuffer) {
		t.Errorf("String: expected TruncatedBuffer, got %v", c.Err())
	}
	// huge declared length must not panic
	c = NewCursor(hx2b("ffffffff00"))
	c.String("name")
	if !clerk.IsError(c.Err(), clerk.TruncatedBuffer) {
		t.Errorf("String: expected TruncatedBuffer, got %v", c.Err())
	}
}

func TestCursorStringInvalidUTF8(t *testing.T) {
	c := NewCursor(hx2b("02000000c328"))
	c.String("name")
	if !clerk.IsError(c.Err(), clerk.InvalidEncoding) {
		t.Errorf("String: expected InvalidEncoding, got %v", c.Err())
	}
}

func TestCursorOverrunSticks(t *testing.T) {
	c := NewCursor(hx2b("010203"))
	if v := c.U32("first"); v != 0 {
		t.Errorf("U32: should return zero on overrun: %x", v)
	}
	if !clerk.IsError(c.Err(), clerk.TruncatedBuffer) {
		t.Fatalf("U32: expected TruncatedBuffer, got %v", c.Err())
	}
	first := c.Err()
	// later reads that would fit still return zero and keep the first error
	if v := c.U8("second"); v != 0 {
		t.Errorf("U8: should return zero after failure: %x", v)
	}
	if c.Err() != first {
		t.Errorf("Err: first error was replaced: %v", c.Err())
	}
	if c.Offset() != 0 {
		t.Errorf("Offset: advanced on failure: %d", c.Offset())
	}
}

func TestCursorVariant(t *testing.T) {
	c := NewCursor(hx2b("0205"))
	if v := c.Variant("status", 6); v != 2 {
		t.Errorf("Variant: wrong ordinal: %d", v)
	}
	c.Variant("status", 3)
	if !clerk.IsError(c.Err(), clerk.UnknownVariant) {
		t.Errorf("Variant: expected UnknownVariant, got %v", c.Err())
	}
}

func TestCursorVecLen(t *testing.T) {
	c := NewCursor(hx2b("02000000" + "aaaa" + "bbbb"))
	if n := c.VecLen("v", 2); n != 2 || c.Err() != nil {
		t.Errorf("VecLen: wrong count: %d %v", n, c.Err())
	}
	// a count the buffer cannot hold fails before any element is read
	c = NewCursor(hx2b("ffffff7f" + "aaaa"))
	if n := c.VecLen("v", 80); n != 0 || !clerk.IsError(c.Err(), clerk.TruncatedBuffer) {
		t.Errorf("VecLen: expected TruncatedBuffer, got %d %v", n, c.Err())
	}
}

func TestCursorOption(t *testing.T) {
	c := NewCursor(hx2b("000102"))
	if c.Option("a") {
		t.Errorf("Option: flag 0 reported present")
	}
	if !c.Option("b") {
		t.Errorf("Option: flag 1 reported absent")
	}
	c.Option("c")
	if !clerk.IsError(c.Err(), clerk.InvalidEncoding) {
		t.Errorf("Option: expected InvalidEncoding, got %v", c.Err())
	}
}

func TestWriterMirrorsCursor(t *testing.T) {
	w := NewWriter(0)
	w.U8(7)
	w.Bool(true)
	w.U16(0x0201)
	w.U32(0x04030201)
	w.U64(0x0807060504030201)
	w.I64(-2)
	w.String("Acme Corp")
	w.OptionSome()
	w.U64(5)
	w.OptionNone()
	expect := "07" + "01" + "0102" + "01020304" + "0102030405060708" + "feffffffffffffff" +
		"09000000" + hex.EncodeToString([]byte("Acme Corp")) + "01" + "0500000000000000" + "00"
	if got := hex.EncodeToString(w.Bytes()); got != expect {
		t.Errorf("Writer: wrong bytes:\n%s\n%s", got, expect)
	}
}

// Test Helpers

func hx2b(str string) []byte {
	b, err := hex.DecodeString(str)
	if err != nil {
		panic("bad fixture: " + str)
	}
	return b
}

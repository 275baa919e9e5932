package codec

import (
	"encoding/binary"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

// Writer is the inverse of Cursor: same widths, same order. Writes never
// fail; callers validate lengths before encoding.
type Writer struct {
	b []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{b: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte {
	return w.b
}

func (w *Writer) Len() int {
	return len(w.b)
}

func (w *Writer) Raw(b []byte) {
	w.b = append(w.b, b...)
}

func (w *Writer) Tag(tag [TagLength]byte) {
	w.b = append(w.b, tag[:]...)
}

func (w *Writer) Address(a clerk.Address) {
	w.b = append(w.b, a[:]...)
}

func (w *Writer) U8(v uint8) {
	w.b = append(w.b, v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.b = append(w.b, 1)
	} else {
		w.b = append(w.b, 0)
	}
}

func (w *Writer) U16(v uint16) {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
}

func (w *Writer) U32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

func (w *Writer) U64(v uint64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, v)
}

func (w *Writer) I64(v int64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, uint64(v))
}

func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.b = append(w.b, s...)
}

func (w *Writer) VecLen(n int) {
	w.U32(uint32(n))
}

// OptionNone and OptionSome write the presence flag; OptionSome is followed
// by the caller writing the value.
func (w *Writer) OptionNone() {
	w.b = append(w.b, 0)
}

func (w *Writer) OptionSome() {
	w.b = append(w.b, 1)
}

package codec

import (
	"fmt"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

// Tag is the 8-byte account discriminator that starts every record.
type Tag [TagLength]byte

// AccountTag is the Anchor discriminator for an account struct name.
func AccountTag(name string) Tag {
	return Tag(solana.Sighash("account", name))
}

func (t Tag) String() string {
	return fmt.Sprintf("%x", t[:])
}

type FieldType int

const (
	TypeAddress FieldType = iota
	TypeU8
	TypeBool
	TypeU16
	TypeU32
	TypeU64
	TypeI64
	TypeString
	TypeEnum
	TypeVec
)

var fieldTypeNames = []string{"address", "u8", "bool", "u16", "u32", "u64", "i64", "string", "enum", "vec"}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Field is one entry of a record layout.
type Field struct {
	Name     string
	Type     FieldType
	Variants []string // TypeEnum: ordinal table
	Elem     []Field  // TypeVec: element layout
}

// MinSize is the smallest encoding of the field (strings and vectors
// count only their length prefix).
func (f Field) MinSize() int {
	switch f.Type {
	case TypeAddress:
		return AddressLength
	case TypeU8, TypeBool, TypeEnum:
		return 1
	case TypeU16:
		return 2
	case TypeU32, TypeString, TypeVec:
		return 4
	case TypeU64, TypeI64:
		return 8
	}
	return 0
}

func layoutMinSize(fields []Field) int {
	n := 0
	for _, f := range fields {
		n += f.MinSize()
	}
	return n
}

// Schema binds a tag to a record layout and its typed codec.
type Schema struct {
	Kind   clerk.Kind
	Tag    Tag
	Fields []Field
	decode func(b []byte) (any, error)
	encode func(v any) ([]byte, error)
}

// MinSize is the smallest possible encoded record, tag included.
func (s *Schema) MinSize() int {
	return TagLength + layoutMinSize(s.Fields)
}

func (s *Schema) Decode(b []byte) (any, error) {
	return s.decode(b)
}

func (s *Schema) Encode(v any) ([]byte, error) {
	return s.encode(v)
}

// Registry maps tags to schemas. It is immutable once built.
type Registry struct {
	byTag  map[Tag]*Schema
	byKind map[clerk.Kind]*Schema
	order  []*Schema
}

func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{
		byTag:  make(map[Tag]*Schema, len(schemas)),
		byKind: make(map[clerk.Kind]*Schema, len(schemas)),
	}
	for _, s := range schemas {
		if prev, dup := r.byTag[s.Tag]; dup {
			return nil, fmt.Errorf("registry: %s and %s share tag %s", prev.Kind, s.Kind, s.Tag)
		}
		if _, dup := r.byKind[s.Kind]; dup {
			return nil, fmt.Errorf("registry: duplicate schema for %s", s.Kind)
		}
		r.byTag[s.Tag] = s
		r.byKind[s.Kind] = s
		r.order = append(r.order, s)
	}
	return r, nil
}

func MustRegistry(schemas ...*Schema) *Registry {
	r, err := NewRegistry(schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(tag Tag) (*Schema, bool) {
	s, ok := r.byTag[tag]
	return s, ok
}

func (r *Registry) ByKind(kind clerk.Kind) (*Schema, bool) {
	s, ok := r.byKind[kind]
	return s, ok
}

func (r *Registry) Schemas() []*Schema {
	return append([]*Schema(nil), r.order...)
}

// Classify reads the leading tag and finds its schema.
func (r *Registry) Classify(blob []byte) (*Schema, error) {
	if len(blob) < TagLength {
		return nil, clerk.NewErr(clerk.TruncatedBuffer, "tag at offset 0: need %d bytes, have %d", TagLength, len(blob))
	}
	var tag Tag
	copy(tag[:], blob)
	s, ok := r.byTag[tag]
	if !ok {
		return nil, clerk.NewErr(clerk.UnknownTag, "no schema for tag %s", tag)
	}
	return s, nil
}

// Decode classifies blob and decodes it into its typed record.
func (r *Registry) Decode(blob []byte) (clerk.Kind, any, error) {
	s, err := r.Classify(blob)
	if err != nil {
		return "", nil, err
	}
	v, err := s.decode(blob)
	if err != nil {
		return s.Kind, nil, err
	}
	return s.Kind, v, nil
}

// FieldValue is one decoded field from a layout walk.
type FieldValue struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Walk decodes blob by following its schema's field list rather than the
// typed decoder. It is used for inspection and returns the bytes consumed.
func (r *Registry) Walk(blob []byte) (clerk.Kind, []FieldValue, int, error) {
	s, err := r.Classify(blob)
	if err != nil {
		return "", nil, 0, err
	}
	c := NewCursor(blob)
	c.Tag()
	values := walkFields(c, s.Fields)
	if c.Err() != nil {
		return s.Kind, nil, c.Offset(), c.Err()
	}
	return s.Kind, values, c.Offset(), nil
}

func walkFields(c *Cursor, fields []Field) []FieldValue {
	out := make([]FieldValue, 0, len(fields))
	for _, f := range fields {
		var v any
		switch f.Type {
		case TypeAddress:
			v = c.Address(f.Name)
		case TypeU8:
			v = c.U8(f.Name)
		case TypeBool:
			v = c.Bool(f.Name)
		case TypeU16:
			v = c.U16(f.Name)
		case TypeU32:
			v = c.U32(f.Name)
		case TypeU64:
			v = c.U64(f.Name)
		case TypeI64:
			v = c.I64(f.Name)
		case TypeString:
			v = c.String(f.Name)
		case TypeEnum:
			ord := c.Variant(f.Name, len(f.Variants))
			if c.Err() == nil {
				v = f.Variants[ord]
			}
		case TypeVec:
			n := c.VecLen(f.Name, layoutMinSize(f.Elem))
			elems := make([][]FieldValue, 0, n)
			for i := 0; i < n && c.Err() == nil; i++ {
				elems = append(elems, walkFields(c, f.Elem))
			}
			v = elems
		}
		if c.Err() != nil {
			return nil
		}
		out = append(out, FieldValue{Name: f.Name, Type: f.Type.String(), Value: v})
	}
	return out
}

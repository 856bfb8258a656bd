package tag

import (
	"bytes"
	"math"
)

// Ref is a tag reference by path and class. An empty path is a null reference.
type Ref struct {
	Class Class
	Path  string
}

// IsNull reports whether r points nowhere.
func (r Ref) IsNull() bool {
	return r.Path == ""
}

// Value holds one decoded field. Only the member matching the field kind is set.
type Value struct {
	// Uint holds integer fields zero extended and F32 fields as raw bits.
	Uint   uint64
	String string
	Ref    Ref
	Block  []*Element
	Data   []byte
}

// Element is one decoded instance of a Struct.
type Element struct {
	Def    *Struct
	Values []Value
}

// NewElement returns a zero-valued element of s.
func NewElement(s *Struct) *Element {
	return &Element{Def: s, Values: make([]Value, len(s.Fields))}
}

// Tag is a decoded source tag.
type Tag struct {
	Def  *Definition
	Root *Element
}

// Class returns the tag's class.
func (t *Tag) Class() Class {
	return t.Def.Class
}

func (e *Element) value(name string) *Value {
	i := e.Def.FieldIndex(name)
	if i < 0 {
		return nil
	}
	return &e.Values[i]
}

// Uint returns an unsigned integer field, or zero if e has no such field.
func (e *Element) Uint(name string) uint64 {
	if v := e.value(name); v != nil {
		return v.Uint
	}
	return 0
}

// Int returns a signed integer field sign extended from its stored width.
func (e *Element) Int(name string) int64 {
	i := e.Def.FieldIndex(name)
	if i < 0 {
		return 0
	}
	raw := e.Values[i].Uint
	switch e.Def.Fields[i].Kind {
	case KindI16:
		return int64(int16(raw)) //nolint:gosec // stored as 16 bits
	case KindI32:
		return int64(int32(raw)) //nolint:gosec // stored as 32 bits
	default:
		return int64(raw) //nolint:gosec // integer fields are at most 32 bits
	}
}

// Float returns an F32 field.
func (e *Element) Float(name string) float32 {
	return math.Float32frombits(uint32(e.Uint(name))) //nolint:gosec // F32 bits
}

// Ref returns a dependency field.
func (e *Element) Ref(name string) Ref {
	if v := e.value(name); v != nil {
		return v.Ref
	}
	return Ref{Class: ClassNone}
}

// Block returns the elements of a block field.
func (e *Element) Block(name string) []*Element {
	if v := e.value(name); v != nil {
		return v.Block
	}
	return nil
}

// Data returns the payload of a data field.
func (e *Element) Data(name string) []byte {
	if v := e.value(name); v != nil {
		return v.Data
	}
	return nil
}

// SetUint sets an integer field. It reports false if there is no such field.
func (e *Element) SetUint(name string, n uint64) bool {
	v := e.value(name)
	if v == nil {
		return false
	}
	v.Uint = n
	return true
}

// SetFloat sets an F32 field.
func (e *Element) SetFloat(name string, f float32) bool {
	return e.SetUint(name, uint64(math.Float32bits(f)))
}

// SetString sets a String32 field.
func (e *Element) SetString(name, s string) bool {
	v := e.value(name)
	if v == nil {
		return false
	}
	v.String = s
	return true
}

// SetRef sets a dependency field.
func (e *Element) SetRef(name string, r Ref) bool {
	v := e.value(name)
	if v == nil {
		return false
	}
	v.Ref = r
	return true
}

// SetData sets a data field.
func (e *Element) SetData(name string, data []byte) bool {
	v := e.value(name)
	if v == nil {
		return false
	}
	v.Data = data
	return true
}

// Append adds a zero element to a block field and returns it.
func (e *Element) Append(name string) *Element {
	i := e.Def.FieldIndex(name)
	if i < 0 || e.Def.Fields[i].Block == nil {
		return nil
	}
	child := NewElement(e.Def.Fields[i].Block)
	e.Values[i].Block = append(e.Values[i].Block, child)
	return child
}

// Equal reports whether e and o hold the same values. Padding is ignored.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Def != o.Def || len(e.Values) != len(o.Values) {
		return false
	}
	for i := range e.Def.Fields {
		a, b := &e.Values[i], &o.Values[i]
		switch e.Def.Fields[i].Kind {
		case KindPad:
		case KindString32:
			if a.String != b.String {
				return false
			}
		case KindDependency:
			if a.Ref.Path != b.Ref.Path || (!a.Ref.IsNull() && a.Ref.Class != b.Ref.Class) {
				return false
			}
		case KindBlock:
			if len(a.Block) != len(b.Block) {
				return false
			}
			for j := range a.Block {
				if !a.Block[j].Equal(b.Block[j]) {
					return false
				}
			}
		case KindData:
			if !bytes.Equal(a.Data, b.Data) {
				return false
			}
		default:
			if a.Uint != b.Uint {
				return false
			}
		}
	}
	return true
}

// Walk calls fn for e and every element nested below it, depth first.
func (e *Element) Walk(fn func(*Element) error) error {
	if err := fn(e); err != nil {
		return err
	}
	for i := range e.Def.Fields {
		for _, child := range e.Values[i].Block {
			if err := child.Walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

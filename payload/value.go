package payload

import "fmt"

// Kind is the tag of a setting Value.
type Kind int

const (
	KindString Kind = iota + 1
	KindBool
	KindInteger
	KindReal
	KindStringArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindStringArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a plist-compatible setting value. The zero Value has no kind
// and is rejected by the serializer.
//
// The typed accessors never fail: reading a kind other than the stored one
// returns that kind's zero value, so form code can read optimistically.
type Value struct {
	kind Kind
	s    string
	b    bool
	i    int64
	f    float64
	ss   []string
}

func String(s string) Value { return Value{kind: KindString, s: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

func Real(f float64) Value { return Value{kind: KindReal, f: f} }

func StringArray(ss []string) Value {
	cp := make([]string, len(ss))
	copy(cp, ss)
	return Value{kind: KindStringArray, ss: cp}
}

// Kind reports the stored kind.
func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

func (v Value) AsBool() bool {
	if v.kind != KindBool {
		return false
	}
	return v.b
}

func (v Value) AsInt() int64 {
	if v.kind != KindInteger {
		return 0
	}
	return v.i
}

func (v Value) AsReal() float64 {
	if v.kind != KindReal {
		return 0
	}
	return v.f
}

// AsStringArray returns a copy of the stored array, or an empty slice.
func (v Value) AsStringArray() []string {
	if v.kind != KindStringArray {
		return []string{}
	}
	cp := make([]string, len(v.ss))
	copy(cp, v.ss)
	return cp
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindReal:
		return v.f == o.f
	case KindStringArray:
		if len(v.ss) != len(o.ss) {
			return false
		}
		for i := range v.ss {
			if v.ss[i] != o.ss[i] {
				return false
			}
		}
		return true
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return fmt.Sprint(v.b)
	case KindInteger:
		return fmt.Sprint(v.i)
	case KindReal:
		return fmt.Sprint(v.f)
	case KindStringArray:
		return fmt.Sprint(v.ss)
	}
	return "<invalid>"
}

package bridge

import (
	"strconv"
	"strings"
)

// Kind discriminates the variants a property Value can hold.
type Kind int

const (
	KindAbsent Kind = iota
	KindTitle
	KindText
	KindSelect
	KindNumber
	KindFormula
	KindCheckbox
)

// Value is one typed property value. The zero Value is absent, which is
// how missing properties and cleared fields are represented.
type Value struct {
	Kind Kind
	Str  string  // title, text and select payload
	Num  float64 // number and formula payload
	Bool bool    // checkbox payload
}

func TitleValue(s string) Value    { return Value{Kind: KindTitle, Str: s} }
func TextValue(s string) Value     { return Value{Kind: KindText, Str: s} }
func SelectValue(s string) Value   { return Value{Kind: KindSelect, Str: s} }
func NumberValue(n float64) Value  { return Value{Kind: KindNumber, Num: n} }
func FormulaValue(n float64) Value { return Value{Kind: KindFormula, Num: n} }
func CheckboxValue(b bool) Value   { return Value{Kind: KindCheckbox, Bool: b} }

// Absent reports whether no value is present.
func (v Value) Absent() bool { return v.Kind == KindAbsent }

// Numeric reports whether the value carries a number payload.
func (v Value) Numeric() bool { return v.Kind == KindNumber || v.Kind == KindFormula }

// Number returns the numeric payload, coercing numeric text. ok is false
// when no number can be extracted.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindNumber, KindFormula:
		return v.Num, true
	case KindTitle, KindText, KindSelect:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// String renders the canonical string form used for comparison.
func (v Value) String() string {
	switch v.Kind {
	case KindTitle, KindText, KindSelect:
		return v.Str
	case KindNumber, KindFormula:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindCheckbox:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// Properties is a named bag of property values: database properties keyed
// by property name, or resolved board fields keyed by field name.
type Properties map[string]Value

// Title returns the bag's title text, regardless of which property name
// carries it. Empty when there is none.
func (p Properties) Title() string {
	for _, v := range p {
		if v.Kind == KindTitle {
			return v.Str
		}
	}
	return ""
}

// Select returns the chosen option of a select property, "" when unset.
func (p Properties) Select(name string) string {
	if v := p[name]; v.Kind == KindSelect {
		return v.Str
	}
	return ""
}

// Number returns a number property's value. ok is false when the property
// is absent or not a plain number.
func (p Properties) Number(name string) (float64, bool) {
	v := p[name]
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Derived returns the computed number of a formula property.
func (p Properties) Derived(name string) (float64, bool) {
	v := p[name]
	if v.Kind != KindFormula {
		return 0, false
	}
	return v.Num, true
}

// Checkbox returns a checkbox property's state, false when absent.
func (p Properties) Checkbox(name string) bool {
	v := p[name]
	return v.Kind == KindCheckbox && v.Bool
}

// Text returns a text property's content, "" when absent.
func (p Properties) Text(name string) string {
	if v := p[name]; v.Kind == KindText {
		return v.Str
	}
	return ""
}

package payload

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is an immutable set of field values bound to its schema.
type Record struct {
	schema *Schema
	values []Value
}

// Record builds a record from Go values given in field order.
// Each value goes through ValueOf, the field kind check and the field validator.
func (s *Schema) Record(values ...any) (Record, error) {
	if err := s.Validate(); err != nil {
		return Record{}, err
	}
	if len(values) != len(s.Fields) {
		return Record{}, &Error{Kind: ErrArityMismatch, Schema: s.label(), Want: len(s.Fields), Got: len(values)}
	}
	out := make([]Value, len(values))
	for i, raw := range values {
		f := s.Fields[i]
		v, err := ValueOf(raw)
		if err != nil {
			var pe *Error
			if errors.As(err, &pe) {
				pe.Schema, pe.Field = s.label(), f.Name
			}
			return Record{}, err
		}
		if v, err = s.admit(f, v); err != nil {
			return Record{}, err
		}
		if f.Validate != nil && !v.IsAbsent() {
			if verr := f.Validate(v); verr != nil {
				return Record{}, &Error{Kind: ErrInvalidValue, Schema: s.label(), Field: f.Name, Err: verr}
			}
		}
		out[i] = v
	}
	return Record{schema: s, values: out}, nil
}

// admit checks v against the declared kind of f and normalizes it.
func (s *Schema) admit(f Field, v Value) (Value, error) {
	if v.IsAbsent() {
		if !f.Optional {
			return Value{}, fieldErr(ErrTypeMismatch, s, f.Name, "value required")
		}
		return v, nil
	}
	// An optional empty string cannot be told apart from absent on the wire.
	if f.Optional && v.Kind() == KindString && v.str == "" {
		return Absent(), nil
	}
	if f.Kind == KindEnum {
		if v.Kind() == KindEnum {
			v = *v.elem
		}
		m, ok := f.member(v.String())
		if !ok || m.Kind() != v.Kind() {
			return Value{}, fieldErr(ErrTypeMismatch, s, f.Name, fmt.Sprintf("%q is not an enum member", v.String()))
		}
		return Enum(m), nil
	}
	if v.Kind() != f.Kind {
		return Value{}, fieldErr(ErrTypeMismatch, s, f.Name, fmt.Sprintf("want %s, got %s", f.Kind, v.Kind()))
	}
	return v, nil
}

// Schema returns the schema the record belongs to.
func (r Record) Schema() *Schema { return r.schema }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.values) }

// At returns the i-th value in field order.
func (r Record) At(i int) Value { return r.values[i] }

// Values returns a copy of the values in field order.
func (r Record) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	if r.schema == nil {
		return Value{}, false
	}
	_, i, ok := r.schema.Field(name)
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// Equal reports whether both records share a schema and hold equal values.
func (r Record) Equal(o Record) bool {
	if r.schema != o.schema || len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Encode is a shorthand for r.Schema().Encode(r).
func (r Record) Encode() (string, error) {
	if r.schema == nil {
		return "", &Error{Kind: ErrInvalidSchema, Detail: "record without schema"}
	}
	return r.schema.Encode(r)
}

func (r Record) lookup(name string, want Kind) (Value, error) {
	v, ok := r.Get(name)
	if !ok {
		return Value{}, fieldErr(ErrTypeMismatch, r.schema, name, "no such field")
	}
	if v.Kind() != want {
		return Value{}, fieldErr(ErrTypeMismatch, r.schema, name, fmt.Sprintf("want %s, got %s", want, v.Kind()))
	}
	return v, nil
}

// Str returns a string field.
func (r Record) Str(name string) (string, error) {
	v, err := r.lookup(name, KindString)
	return v.str, err
}

// OptStr returns a string field, or "" when it is absent.
func (r Record) OptStr(name string) (string, error) {
	if v, ok := r.Get(name); ok && v.IsAbsent() {
		return "", nil
	}
	return r.Str(name)
}

// Int returns an integer field.
func (r Record) Int(name string) (int64, error) {
	v, err := r.lookup(name, KindInt)
	return v.num, err
}

// Float returns a floating point field.
func (r Record) Float(name string) (float64, error) {
	v, err := r.lookup(name, KindFloat)
	return v.flt, err
}

// Decimal returns a decimal field.
func (r Record) Decimal(name string) (decimal.Decimal, error) {
	v, err := r.lookup(name, KindDecimal)
	return v.dec, err
}

// Rat returns a copy of a rational field.
func (r Record) Rat(name string) (*big.Rat, error) {
	v, err := r.lookup(name, KindRat)
	if err != nil {
		return nil, err
	}
	x, _ := v.Rat()
	return x, nil
}

// Bool returns a boolean field.
func (r Record) Bool(name string) (bool, error) {
	v, err := r.lookup(name, KindBool)
	return v.num == 1, err
}

// UUID returns a UUID field.
func (r Record) UUID(name string) (uuid.UUID, error) {
	v, err := r.lookup(name, KindUUID)
	return v.id, err
}

// Time returns a timestamp field.
func (r Record) Time(name string) (time.Time, error) {
	v, err := r.lookup(name, KindTime)
	return v.ts, err
}

// Member returns the scalar behind an enum field.
func (r Record) Member(name string) (Value, error) {
	v, err := r.lookup(name, KindEnum)
	if err != nil {
		return Value{}, err
	}
	return *v.elem, nil
}

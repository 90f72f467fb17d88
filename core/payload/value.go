package payload

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind enumerates the value shapes a payload field can hold.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindInt
	KindFloat
	KindDecimal
	KindRat
	KindBool
	KindEnum
	KindUUID
	KindTime
)

var kindNames = [...]string{
	KindAbsent:  "absent",
	KindString:  "string",
	KindInt:     "int",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindRat:     "rat",
	KindBool:    "bool",
	KindEnum:    "enum",
	KindUUID:    "uuid",
	KindTime:    "time",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single field value. The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	dec  decimal.Decimal
	rat  *big.Rat
	id   uuid.UUID
	ts   time.Time
	elem *Value
}

// Absent returns the distinguished "no value" marker.
func Absent() Value { return Value{} }

// String wraps a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps an integer value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float wraps a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Decimal wraps an arbitrary precision decimal.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, dec: d} }

// Rat wraps a rational number. A nil r is treated as zero.
func Rat(r *big.Rat) Value {
	c := new(big.Rat)
	if r != nil {
		c.Set(r)
	}
	return Value{kind: KindRat, rat: c}
}

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, num: boolInt(b)} }

// UUID wraps a UUID value.
func UUID(id uuid.UUID) Value { return Value{kind: KindUUID, id: id} }

// Time wraps a timestamp. Only whole seconds survive encoding.
func Time(t time.Time) Value { return Value{kind: KindTime, ts: t} }

// Naive wraps a timestamp whose wall clock carries no zone: the wall clock of t is
// reinterpreted as UTC and its own location is ignored.
func Naive(t time.Time) Value {
	return Time(time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC))
}

// Enum wraps an enum member by its underlying scalar value.
func Enum(member Value) Value {
	if member.kind == KindEnum && member.elem != nil {
		member = *member.elem
	}
	m := member
	return Value{kind: KindEnum, elem: &m}
}

// Enumerated is implemented by Go enum types to expose the scalar they stand for.
type Enumerated interface {
	EnumValue() any
}

// ValueOf converts a Go value through a closed set of supported types.
// Anything outside that set yields ErrUnsupportedType.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		return uintValue(uint64(x), v)
	case uint64:
		return uintValue(x, v)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case decimal.Decimal:
		return Decimal(x), nil
	case *big.Rat:
		if x == nil {
			return Absent(), nil
		}
		return Rat(x), nil
	case uuid.UUID:
		return UUID(x), nil
	case time.Time:
		return Time(x), nil
	case *time.Time:
		if x == nil {
			return Absent(), nil
		}
		return Time(*x), nil
	case Enumerated:
		inner, err := ValueOf(x.EnumValue())
		if err != nil {
			return Value{}, err
		}
		if inner.kind == KindAbsent {
			return Value{}, &Error{Kind: ErrUnsupportedType, Type: fmt.Sprintf("%T", v), Detail: "enum without value"}
		}
		return Enum(inner), nil
	default:
		return Value{}, &Error{Kind: ErrUnsupportedType, Type: fmt.Sprintf("%T", v)}
	}
}

// Kind reports the value shape.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the absent marker.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// String returns the canonical wire form of v.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindDecimal:
		return v.dec.String()
	case KindRat:
		return v.rat.RatString()
	case KindBool:
		return strconv.FormatInt(v.num, 10)
	case KindEnum:
		return v.elem.String()
	case KindUUID:
		return hex.EncodeToString(v.id[:])
	case KindTime:
		return strconv.FormatInt(v.ts.Unix(), 10)
	default:
		return ""
	}
}

// Equal reports whether both values have the same kind and the same wire form.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindEnum && v.elem.kind != o.elem.kind {
		return false
	}
	return v.String() == o.String()
}

// Str returns the string held by a string value.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Int returns the integer held by an int value.
func (v Value) Int() (int64, bool) { return v.num, v.kind == KindInt }

// Float returns the number held by a float value.
func (v Value) Float() (float64, bool) { return v.flt, v.kind == KindFloat }

// Decimal returns the number held by a decimal value.
func (v Value) Decimal() (decimal.Decimal, bool) { return v.dec, v.kind == KindDecimal }

// Rat returns a copy of the number held by a rational value.
func (v Value) Rat() (*big.Rat, bool) {
	if v.kind != KindRat {
		return nil, false
	}
	return new(big.Rat).Set(v.rat), true
}

// Bool returns the flag held by a bool value.
func (v Value) Bool() (bool, bool) { return v.num == 1, v.kind == KindBool }

// UUID returns the identifier held by a uuid value.
func (v Value) UUID() (uuid.UUID, bool) { return v.id, v.kind == KindUUID }

// Time returns the timestamp held by a time value.
func (v Value) Time() (time.Time, bool) { return v.ts, v.kind == KindTime }

// Member returns the underlying scalar of an enum value.
func (v Value) Member() (Value, bool) {
	if v.kind != KindEnum || v.elem == nil {
		return Value{}, false
	}
	return *v.elem, true
}

func uintValue(n uint64, orig any) (Value, error) {
	if n > math.MaxInt64 {
		return Value{}, &Error{Kind: ErrUnsupportedType, Type: fmt.Sprintf("%T", orig), Detail: "overflows int64"}
	}
	return Int(int64(n)), nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

package payload

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var transport = base64.RawURLEncoding

// Encode serializes r into a single token.
func (s *Schema) Encode(r Record) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if r.schema != s {
		return "", &Error{Kind: ErrInvalidSchema, Schema: s.label(), Detail: "record belongs to schema " + r.schema.label()}
	}
	sep := s.sep()
	parts := make([]string, 0, len(s.Fields)+1)
	if s.Prefix != "" {
		parts = append(parts, s.Prefix)
	}
	for i, f := range s.Fields {
		seg, err := canonical(r.values[i])
		if err != nil {
			return "", fieldErr(ErrUnsupportedType, s, f.Name, err.Error())
		}
		if strings.Contains(seg, sep) {
			return "", fieldErr(ErrSeparatorCollision, s, f.Name, fmt.Sprintf("%q contains %q", seg, sep))
		}
		parts = append(parts, seg)
	}
	token := strings.Join(parts, sep)
	if s.MaxLen > 0 && len(token) > s.MaxLen {
		return "", &Error{Kind: ErrPayloadTooLong, Schema: s.label(), Want: s.MaxLen, Got: len(token)}
	}
	if s.Encoded {
		token = transport.EncodeToString([]byte(token))
	}
	return token, nil
}

// Pack builds a record from values and encodes it.
func (s *Schema) Pack(values ...any) (string, error) {
	r, err := s.Record(values...)
	if err != nil {
		return "", err
	}
	return s.Encode(r)
}

// MustPack is Pack for schemas and values fixed at compile time.
func (s *Schema) MustPack(values ...any) string {
	token, err := s.Pack(values...)
	if err != nil {
		panic(err)
	}
	return token
}

// Decode parses a token produced by Encode.
func (s *Schema) Decode(token string) (Record, error) {
	if err := s.Validate(); err != nil {
		return Record{}, err
	}
	raw := token
	if s.Encoded {
		b, err := transport.DecodeString(token)
		if err != nil {
			return Record{}, &Error{Kind: ErrDecode, Schema: s.label(), Detail: "base64url", Err: err}
		}
		raw = string(b)
	}

	var segs []string
	if raw != "" || s.Prefix != "" || len(s.Fields) > 0 {
		segs = strings.Split(raw, s.sep())
	}
	if s.Prefix != "" {
		if segs[0] != s.Prefix {
			return Record{}, &Error{Kind: ErrPrefixMismatch, Schema: s.label(), Detail: fmt.Sprintf("want %q, got %q", s.Prefix, segs[0])}
		}
		segs = segs[1:]
	}
	if len(segs) != len(s.Fields) {
		return Record{}, &Error{Kind: ErrArityMismatch, Schema: s.label(), Want: len(s.Fields), Got: len(segs)}
	}

	values := make([]Value, len(segs))
	for i, seg := range segs {
		f := s.Fields[i]
		if seg == "" && f.Optional {
			continue
		}
		v, err := coerce(f, seg)
		if err != nil {
			return Record{}, &Error{Kind: ErrTypeMismatch, Schema: s.label(), Field: f.Name, Detail: fmt.Sprintf("%q as %s", seg, f.Kind), Err: err}
		}
		if f.Validate != nil {
			if verr := f.Validate(v); verr != nil {
				return Record{}, &Error{Kind: ErrDecode, Schema: s.label(), Field: f.Name, Err: verr}
			}
		}
		values[i] = v
	}
	return Record{schema: s, values: values}, nil
}

// Match reports whether token decodes under s.
func (s *Schema) Match(token string) bool {
	_, err := s.Decode(token)
	return err == nil
}

func canonical(v Value) (string, error) {
	switch v.kind {
	case KindAbsent, KindString, KindInt, KindFloat, KindDecimal, KindRat, KindBool, KindUUID, KindTime:
		return v.String(), nil
	case KindEnum:
		if v.elem == nil {
			return "", fmt.Errorf("enum without member")
		}
		return canonical(*v.elem)
	default:
		return "", fmt.Errorf("value of %s", v.kind)
	}
}

func coerce(f Field, seg string) (Value, error) {
	switch f.Kind {
	case KindString:
		return String(seg), nil
	case KindInt:
		n, err := strconv.ParseInt(seg, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Int(n), nil
	case KindFloat:
		x, err := strconv.ParseFloat(seg, 64)
		if err != nil {
			return Value{}, err
		}
		return Float(x), nil
	case KindDecimal:
		d, err := decimal.NewFromString(seg)
		if err != nil {
			return Value{}, err
		}
		return Decimal(d), nil
	case KindRat:
		r, ok := new(big.Rat).SetString(seg)
		if !ok {
			return Value{}, fmt.Errorf("not a rational")
		}
		return Rat(r), nil
	case KindBool:
		switch seg {
		case "1":
			return Bool(true), nil
		case "0":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("not 1 or 0")
	case KindUUID:
		// Only the undashed hex form that Encode writes.
		if len(seg) != 32 {
			return Value{}, fmt.Errorf("uuid must be 32 hex digits")
		}
		id, err := uuid.Parse(seg)
		if err != nil {
			return Value{}, err
		}
		return UUID(id), nil
	case KindTime:
		n, err := strconv.ParseInt(seg, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Time(time.Unix(n, 0).UTC()), nil
	case KindEnum:
		m, ok := f.member(seg)
		if !ok {
			return Value{}, fmt.Errorf("unknown member")
		}
		return Enum(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported kind %s", f.Kind)
	}
}

package payload

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparator is used when a schema leaves Separator empty.
const DefaultSeparator = ":"

// Schema describes one payload record type. Field order is the wire order.
type Schema struct {
	// Name is used in error messages only.
	Name string
	// Prefix is emitted as the first segment when non-empty.
	Prefix string
	// Separator is a single character; empty means DefaultSeparator.
	Separator string
	// Encoded passes the joined token through base64url without padding.
	Encoded bool
	// MaxLen bounds the joined token in bytes. Zero disables the check.
	MaxLen int
	Fields []Field
}

// Field declares one positional value of a schema.
type Field struct {
	Name string
	Kind Kind
	// Optional fields accept the absent value and decode an empty segment as absent.
	Optional bool
	// Members lists the allowed scalars of a KindEnum field.
	Members []Value
	// Validate runs on construction and after decoding.
	Validate func(Value) error
}

// Validate checks that the schema can encode anything at all.
func (s *Schema) Validate() error {
	sep := s.sep()
	if utf8.RuneCountInString(sep) != 1 {
		return &Error{Kind: ErrInvalidSchema, Schema: s.label(), Detail: fmt.Sprintf("separator %q must be a single character", sep)}
	}
	if strings.Contains(s.Prefix, sep) {
		return &Error{Kind: ErrInvalidSchema, Schema: s.label(), Detail: fmt.Sprintf("prefix %q contains separator %q", s.Prefix, sep)}
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return &Error{Kind: ErrInvalidSchema, Schema: s.label(), Detail: "unnamed field"}
		}
		if _, dup := seen[f.Name]; dup {
			return fieldErr(ErrInvalidSchema, s, f.Name, "duplicate field")
		}
		seen[f.Name] = struct{}{}
		switch f.Kind {
		case KindAbsent:
			return fieldErr(ErrInvalidSchema, s, f.Name, "field kind not set")
		case KindEnum:
			if len(f.Members) == 0 {
				return fieldErr(ErrInvalidSchema, s, f.Name, "enum without members")
			}
			for _, m := range f.Members {
				if m.IsAbsent() || m.Kind() == KindEnum {
					return fieldErr(ErrInvalidSchema, s, f.Name, "enum member must be a scalar")
				}
			}
		default:
			if f.Kind > KindTime {
				return fieldErr(ErrInvalidSchema, s, f.Name, "unknown kind "+f.Kind.String())
			}
		}
	}
	return nil
}

// Field returns the declaration of the named field.
func (s *Schema) Field(name string) (Field, int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

func (s *Schema) sep() string {
	if s.Separator == "" {
		return DefaultSeparator
	}
	return s.Separator
}

func (s *Schema) label() string {
	if s == nil {
		return ""
	}
	if s.Name != "" {
		return s.Name
	}
	return s.Prefix
}

// member looks up v among the enum members of f by canonical form.
func (f Field) member(canonical string) (Value, bool) {
	for _, m := range f.Members {
		if m.String() == canonical {
			return m, true
		}
	}
	return Value{}, false
}

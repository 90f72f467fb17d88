package payload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSeparatorCollision reports a field whose encoded form contains the separator.
	ErrSeparatorCollision = errors.New("payload: separator collision")
	// ErrPayloadTooLong reports a token above the schema length limit.
	ErrPayloadTooLong = errors.New("payload: too long")
	// ErrUnsupportedType reports a Go value that has no canonical encoding.
	ErrUnsupportedType = errors.New("payload: unsupported type")
	// ErrDecode reports a token that cannot be turned back into a record.
	ErrDecode = errors.New("payload: decode failed")
	// ErrPrefixMismatch reports a token that belongs to another schema.
	ErrPrefixMismatch = errors.New("payload: prefix mismatch")
	// ErrArityMismatch reports a segment or value count different from the field count.
	ErrArityMismatch = errors.New("payload: arity mismatch")
	// ErrTypeMismatch reports a value that does not fit the declared field kind.
	ErrTypeMismatch = errors.New("payload: type mismatch")
	// ErrInvalidValue reports a value rejected by a field validator.
	ErrInvalidValue = errors.New("payload: invalid value")
	// ErrInvalidSchema reports a schema that cannot encode anything.
	ErrInvalidSchema = errors.New("payload: invalid schema")
)

var errorCodes = map[error]string{
	ErrSeparatorCollision: "SEPARATOR_COLLISION",
	ErrPayloadTooLong:     "PAYLOAD_TOO_LONG",
	ErrUnsupportedType:    "UNSUPPORTED_TYPE",
	ErrDecode:             "DECODE_ERROR",
	ErrPrefixMismatch:     "PREFIX_MISMATCH",
	ErrArityMismatch:      "ARITY_MISMATCH",
	ErrTypeMismatch:       "TYPE_MISMATCH",
	ErrInvalidValue:       "INVALID_VALUE",
	ErrInvalidSchema:      "INVALID_SCHEMA",
}

// Error carries the details of a codec failure. Kind is always one of the Err* sentinels,
// so callers can match with errors.Is.
type Error struct {
	Kind   error
	Schema string
	Field  string
	// Type is the offending Go type for ErrUnsupportedType.
	Type string
	// Want and Got hold counts for ErrArityMismatch and byte lengths for ErrPayloadTooLong.
	Want, Got int
	Detail    string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Schema != "" {
		b.WriteString(": schema ")
		b.WriteString(e.Schema)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Type != "" {
		fmt.Fprintf(&b, ": type %s", e.Type)
	}
	switch {
	case errors.Is(e.Kind, ErrArityMismatch):
		fmt.Fprintf(&b, ": expected %d, got %d", e.Want, e.Got)
	case errors.Is(e.Kind, ErrPayloadTooLong):
		fmt.Fprintf(&b, ": %d bytes > %d", e.Got, e.Want)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns a stable identifier used as err_code in handler logs.
func (e *Error) Code() string {
	if code, ok := errorCodes[e.Kind]; ok {
		return code
	}
	return "PAYLOAD_ERROR"
}

func fieldErr(kind error, s *Schema, field, detail string) *Error {
	return &Error{Kind: kind, Schema: s.label(), Field: field, Detail: detail}
}

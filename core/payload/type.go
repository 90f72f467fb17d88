package payload

// Type binds a schema to a Go struct.
//
//	var Order = payload.Type[OrderRef]{
//		Schema: &payload.Schema{Prefix: "ord", Fields: []payload.Field{{Name: "id", Kind: payload.KindInt}}},
//		Values: func(o OrderRef) []any { return []any{o.ID} },
//		Build: func(r payload.Record) (OrderRef, error) {
//			id, err := r.Int("id")
//			return OrderRef{ID: id}, err
//		},
//	}
type Type[T any] struct {
	Schema *Schema
	// Values returns the field values of v in declaration order.
	Values func(v T) []any
	// Build turns a decoded record back into T.
	Build func(r Record) (T, error)
}

// Pack encodes v.
func (t Type[T]) Pack(v T) (string, error) {
	return t.Schema.Pack(t.Values(v)...)
}

// Unpack decodes token into T. Errors from Build are reported as ErrDecode.
func (t Type[T]) Unpack(token string) (T, error) {
	var zero T
	r, err := t.Schema.Decode(token)
	if err != nil {
		return zero, err
	}
	v, err := t.Build(r)
	if err != nil {
		return zero, &Error{Kind: ErrDecode, Schema: t.Schema.label(), Err: err}
	}
	return v, nil
}

// Match reports whether token decodes under the bound schema.
func (t Type[T]) Match(token string) bool {
	return t.Schema.Match(token)
}

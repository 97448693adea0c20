package functions

import (
	"encoding/json"
	"fmt"
)

// Runs a map function against doc and drains every emission into a list.
//
// The list is never nil on success, so a function that emits nothing
// yields an empty list. A panic inside the function is returned as an
// error wrapping [ErrPanic], and emissions that cannot be written as JSON
// as one wrapping [ErrResult].
func CallMap(fn any, doc Document) (rows []Emission, err error) {
	m, err := AsMap(fn)
	if err != nil {
		return nil, err
	}

	defer recoverInto(&err)

	rows = []Emission{}
	emit := func(key, value any) {
		rows = append(rows, Emission{Key: key, Value: value})
	}
	if err := m(doc, emit); err != nil {
		return nil, err
	}
	if err := encodable(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Runs a reduce function.
func CallReduce(fn any, keys, values []any, rereduce bool) (result any, err error) {
	r, err := AsReduce(fn)
	if err != nil {
		return nil, err
	}

	defer recoverInto(&err)
	if result, err = r(keys, values, rereduce); err != nil {
		return nil, err
	}
	if err := encodable(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Runs a validate function.
func CallValidate(fn any, newDoc, oldDoc, userCtx Document) (result any, err error) {
	v, err := AsValidate(fn)
	if err != nil {
		return nil, err
	}

	defer recoverInto(&err)
	if result, err = v(newDoc, oldDoc, userCtx); err != nil {
		return nil, err
	}
	if err := encodable(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Fails with [ErrResult] when v cannot be marshaled, e.g. a NaN or a
// channel.
func encodable(v any) error {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Errorf("%w: %v", ErrResult, err)
	}
	return nil
}

// Converts a recovered panic into an error stored in *err.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}

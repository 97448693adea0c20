package functions

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Opaque JSON value handed to user functions untouched.
type Document = any

// Callback a map function uses to emit one key/value pair.
type Emit = func(key, value any)

// Produces zero or more key/value pairs from one document.
type MapFunc func(doc Document, emit Emit) error

// Combines values into an aggregate. On rereduce, keys is nil and values
// holds results of earlier reductions.
type ReduceFunc func(keys, values []any, rereduce bool) (any, error)

// Decides whether an update from oldDoc to newDoc is acceptable.
//
// The result is passed back to the host as-is; a boolean is the usual
// answer, a string is read as a rejection reason.
type ValidateFunc func(newDoc, oldDoc, userCtx Document) (any, error)

// Factory called once at load time with the caller's [Reporter]. The
// returned value is the function that gets registered or invoked.
type LogAware func(r Reporter) any

// Receives log events produced while user functions run.
type Reporter interface {
	Log(msg string)
}

// Adapts a plain function to the [Reporter] interface.
type ReporterFunc func(msg string)

// Calls f(msg).
func (f ReporterFunc) Log(msg string) {
	f(msg)
}

// Reporter that drops every message.
var Discard Reporter = ReporterFunc(func(string) {})

// One key/value pair emitted by a map function.
type Emission struct {
	Key   any
	Value any
}

// Encodes the emission as a two-element array.
func (e Emission) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Key, e.Value})
}

// Returns fn as a [MapFunc].
func AsMap(fn any) (MapFunc, error) {
	switch f := deref(fn).(type) {
	case MapFunc:
		return f, nil
	case func(Document, Emit) error:
		return f, nil
	}
	return nil, fmt.Errorf("%w: %T is not a map function", ErrSignature, fn)
}

// Returns fn as a [ReduceFunc].
func AsReduce(fn any) (ReduceFunc, error) {
	switch f := deref(fn).(type) {
	case ReduceFunc:
		return f, nil
	case func([]any, []any, bool) (any, error):
		return f, nil
	}
	return nil, fmt.Errorf("%w: %T is not a reduce function", ErrSignature, fn)
}

// Returns fn as a [ValidateFunc].
func AsValidate(fn any) (ValidateFunc, error) {
	switch f := deref(fn).(type) {
	case ValidateFunc:
		return f, nil
	case func(Document, Document, Document) (any, error):
		return f, nil
	}
	return nil, fmt.Errorf("%w: %T is not a validate function", ErrSignature, fn)
}

// Returns fn as a [LogAware] factory, if it is one.
func asLogAware(fn any) (LogAware, bool) {
	switch f := deref(fn).(type) {
	case LogAware:
		return f, true
	case func(Reporter) any:
		return f, true
	}
	return nil, false
}

// Unwraps a pointer to a function value.
//
// Plugin lookups of exported variables yield pointers, while lookups of
// exported functions yield the function itself.
func deref(fn any) any {
	v := reflect.ValueOf(fn)
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Func {
		return v.Elem().Interface()
	}
	return fn
}

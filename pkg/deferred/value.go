// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package deferred models descriptor fields whose value is only known once
// another resource exists, such as the generated name of a Namespace.
//
// A Value is in exactly one of three states: unset (the zero value),
// concrete, or deferred to a Source. Deferred values are carried through
// JSON as placeholder tokens that Scan finds again, so a descriptor can be
// rendered before any of its dependencies exist.
package deferred

import (
	"encoding/json"
	"fmt"

	"sigs.k8s.io/crdkit/pkg/object/reference"
)

// Value holds either a concrete T, a Source to read T from later, or
// nothing.
type Value[T any] struct {
	value  T
	source *Source
	set    bool
}

// String, Bool and Int64 are the shapes descriptor fields most often take.
type (
	String = Value[string]
	Bool   = Value[bool]
	Int64  = Value[int64]
)

// Of returns a concrete value.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// Str is shorthand for Of on strings, the common case for metadata.
func Str(s string) String {
	return Of(s)
}

// FromSource returns a value deferred to the passed source.
func FromSource[T any](src Source) Value[T] {
	return Value[T]{source: &src, set: true}
}

// FromResource returns a value read from the field at path of the resource
// declared in the same stack under the logical name.
func FromResource[T any](name, path string) Value[T] {
	return FromSource[T](Source{Resource: name, Path: path})
}

// FromObject returns a value read from the field at path of a cluster
// object that the stack does not declare.
func FromObject[T any](ref reference.ObjectReference, path string) Value[T] {
	return FromSource[T](Source{Object: &ref, Path: path})
}

// IsSet returns false only for the zero Value.
func (v Value[T]) IsSet() bool {
	return v.set
}

// IsDeferred returns true if the value is read from a Source.
func (v Value[T]) IsDeferred() bool {
	return v.source != nil
}

// Get returns the concrete value, and false if the value is unset or
// deferred.
func (v Value[T]) Get() (T, bool) {
	if !v.set || v.source != nil {
		var zero T
		return zero, false
	}
	return v.value, true
}

// Source returns a copy of the source of a deferred value, or nil.
func (v Value[T]) Source() *Source {
	if v.source == nil {
		return nil
	}
	src := *v.source
	return &src
}

// Equal fulfills the Equal interface from github.com/google/go-cmp.
func (v Value[T]) Equal(o Value[T]) bool {
	if v.set != o.set {
		return false
	}
	if v.IsDeferred() || o.IsDeferred() {
		return v.IsDeferred() && o.IsDeferred() && v.source.Equal(*o.source)
	}
	a, err := json.Marshal(v.value)
	if err != nil {
		return false
	}
	b, err := json.Marshal(o.value)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

func (v Value[T]) String() string {
	switch {
	case !v.set:
		return "<unset>"
	case v.source != nil:
		return "<deferred " + v.source.String() + ">"
	default:
		return fmt.Sprintf("%v", v.value)
	}
}

// MarshalJSON writes concrete values as T, deferred values as their
// placeholder token and unset values as null.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	switch {
	case !v.set:
		return []byte("null"), nil
	case v.source != nil:
		token, err := v.source.Token()
		if err != nil {
			return nil, err
		}
		return json.Marshal(token)
	default:
		return json.Marshal(v.value)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON: a string holding exactly one
// token becomes a deferred value.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value[T]{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if src, ok, err := ParseToken(s); err != nil {
			return err
		} else if ok {
			*v = FromSource[T](src)
			return nil
		}
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*v = Of(value)
	return nil
}

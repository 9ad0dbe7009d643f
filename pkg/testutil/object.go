// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0
//
// The testutil package houses utility function for testing.

package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/yaml"
)

// Unstructured translates the passed object config string into an
// object in Unstructured format. The mutators modify the object
// before it is returned. Integers decode as int64, the way the API
// machinery stores them.
func Unstructured(t *testing.T, manifest string, mutators ...Mutator) *unstructured.Unstructured {
	jsonBytes, err := yaml.YAMLToJSON([]byte(manifest))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	obj := map[string]interface{}{}
	if !assert.NoError(t, utiljson.Unmarshal(jsonBytes, &obj)) {
		t.FailNow()
	}
	u := &unstructured.Unstructured{Object: obj}
	for _, m := range mutators {
		m.Mutate(u)
	}
	return u
}

// Mutator inteface defines a function to update an object
// while translating it unto Unstructured format from yaml config.
type Mutator interface {
	Mutate(u *unstructured.Unstructured)
}

// MutatorFunc adapts a function to the Mutator interface.
type MutatorFunc func(u *unstructured.Unstructured)

func (f MutatorFunc) Mutate(u *unstructured.Unstructured) {
	f(u)
}

// ToIdentifier translates object yaml config into ObjMetadata.
func ToIdentifier(t *testing.T, manifest string) object.ObjMetadata {
	id, err := object.UnstructuredToObjMeta(Unstructured(t, manifest))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return id
}

// AddOwningInv returns a Mutator which adds the passed inv string
// as the owning inventory annotation.
func AddOwningInv(inv string) Mutator {
	return MutatorFunc(func(u *unstructured.Unstructured) {
		object.SetAnnotation(u, object.OwningInventoryAnnotation, inv)
	})
}

// AddProtect returns a Mutator which marks the object to be kept when it
// is removed from the stack.
func AddProtect() Mutator {
	return MutatorFunc(func(u *unstructured.Unstructured) {
		object.SetAnnotation(u, object.OnRemoveAnnotation, object.OnRemoveKeep)
	})
}

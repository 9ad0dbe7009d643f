// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package reference points at cluster objects that a stack does not declare
// itself, such as a Secret created out of band that a deferred value reads
// from.
package reference

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/crdkit/pkg/object"
)

const (
	segmentDelimiter  = "/"
	namespacesSegment = "namespaces"
)

// ObjectReference is a reference to a KRM resource by name and kind.
// Group is preferred over APIVersion, so the reference does not need to
// change when the referenced resource moves to a newer version.
// If neither is provided, the empty (core) group is used.
type ObjectReference struct {
	Kind string `json:"kind"`

	// +optional
	APIVersion string `json:"apiVersion,omitempty"`

	// +optional
	Group string `json:"group,omitempty"`

	Name string `json:"name,omitempty"`

	// Namespace defaults to the namespace of the object holding the
	// reference, when the referenced kind is namespace-scoped.
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// FromUnstructured returns a reference to the passed object.
func FromUnstructured(obj *unstructured.Unstructured) ObjectReference {
	gvk := obj.GroupVersionKind()
	return ObjectReference{
		Name:      obj.GetName(),
		Namespace: obj.GetNamespace(),
		Kind:      gvk.Kind,
		Group:     gvk.Group,
	}
}

// GroupVersionKind prefers Group over APIVersion. The version is empty when
// only the group is known.
func (r ObjectReference) GroupVersionKind() schema.GroupVersionKind {
	if r.Group != "" {
		return schema.GroupVersionKind{Group: r.Group, Kind: r.Kind}
	}
	return schema.FromAPIVersionAndKind(r.APIVersion, r.Kind)
}

// ToObjMetadata drops the version of the reference.
func (r ObjectReference) ToObjMetadata() object.ObjMetadata {
	return object.ObjMetadata{
		Namespace: r.Namespace,
		Name:      r.Name,
		GroupKind: r.GroupVersionKind().GroupKind(),
	}
}

// Validate checks the fields needed to look the object up.
func (r ObjectReference) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("invalid object reference (%s): empty name", r)
	}
	if r.Kind == "" {
		return fmt.Errorf("invalid object reference (%s): empty kind", r)
	}
	return nil
}

// String returns the format GROUP[/VERSION][/namespaces/NAMESPACE]/KIND/NAME
func (r ObjectReference) String() string {
	group := r.Group
	if group == "" {
		group = r.APIVersion
	}
	if r.Namespace != "" {
		return fmt.Sprintf("%s/namespaces/%s/%s/%s", group, r.Namespace, r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", group, r.Kind, r.Name)
}

// Equal returns true if both references point at the same object.
// Fulfills Equal interface from github.com/google/go-cmp
func (r ObjectReference) Equal(b ObjectReference) bool {
	return r.GroupVersionKind().GroupKind() == b.GroupVersionKind().GroupKind() &&
		r.Name == b.Name &&
		r.Namespace == b.Namespace
}

// Parse parses a string in the format returned by String.
//
//	GROUP[/VERSION][/namespaces/NAMESPACE]/KIND/NAME
//
// Group may be the empty string, but version, namespace, name, and kind may not.
func Parse(in string) (ObjectReference, error) {
	in = strings.TrimSpace(in)
	s := strings.Split(in, segmentDelimiter)
	switch len(s) {
	case 3: // group/kind/name
		return ObjectReference{Group: s[0], Kind: s[1], Name: s[2]}, nil
	case 4: // group/version/kind/name
		return ObjectReference{
			APIVersion: s[0] + segmentDelimiter + s[1],
			Kind:       s[2],
			Name:       s[3],
		}, nil
	case 5: // group/namespaces/namespace/kind/name
		if s[1] != namespacesSegment {
			return ObjectReference{}, fmt.Errorf("missing %q segment: %q", namespacesSegment, in)
		}
		return ObjectReference{Group: s[0], Namespace: s[2], Kind: s[3], Name: s[4]}, nil
	case 6: // group/version/namespaces/namespace/kind/name
		if s[2] != namespacesSegment {
			return ObjectReference{}, fmt.Errorf("missing %q segment: %q", namespacesSegment, in)
		}
		return ObjectReference{
			APIVersion: s[0] + segmentDelimiter + s[1],
			Namespace:  s[3],
			Kind:       s[4],
			Name:       s[5],
		}, nil
	default:
		return ObjectReference{}, fmt.Errorf("wrong number of segments: %q", in)
	}
}

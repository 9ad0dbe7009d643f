// Copyright 2021 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	// OnRemoveAnnotation is the lifecycle annotation key for "on-remove"
	// operations. Protected resources carry it with OnRemoveKeep.
	OnRemoveAnnotation = "crdkit.sigs.k8s.io/on-remove"
	// OnRemoveKeep prevents deletion on prune and destroy.
	OnRemoveKeep = "keep"

	// OwningInventoryAnnotation records the inventory id of the stack that
	// applied the object.
	OwningInventoryAnnotation = "config.k8s.io/owning-inventory"

	// DependsOnAnnotation lists the objects a rendered object must wait
	// for, in object reference format, separated by commas.
	DependsOnAnnotation = "config.kubernetes.io/depends-on"
	// ApplyTimeMutationAnnotation carries the deferred field substitutions
	// of a rendered object.
	ApplyTimeMutationAnnotation = "config.kubernetes.io/apply-time-mutation"

	annotationSeparator = ","
)

// HasAnnotation returns the annotation value and true if the passed key
// is one of the annotations of the object; empty string and false otherwise.
func HasAnnotation(u *unstructured.Unstructured, key string) (string, bool) {
	if u == nil {
		return "", false
	}
	value, found := u.GetAnnotations()[key]
	return value, found
}

// SetAnnotation adds or replaces one annotation, allocating the map when
// the object has none.
func SetAnnotation(u *unstructured.Unstructured, key, value string) {
	a := u.GetAnnotations()
	if a == nil {
		a = map[string]string{}
	}
	a[key] = value
	u.SetAnnotations(a)
}

// PreventDeletion returns true if the object is annotated to be kept when
// it is removed from the stack or the stack is destroyed.
func PreventDeletion(u *unstructured.Unstructured) bool {
	value, found := HasAnnotation(u, OnRemoveAnnotation)
	return found && value == OnRemoveKeep
}

// JoinAnnotationValues encodes a list of values for annotations that hold
// more than one entry, such as DependsOnAnnotation.
func JoinAnnotationValues(values []string) string {
	return strings.Join(values, annotationSeparator)
}

// SplitAnnotationValues is the inverse of JoinAnnotationValues. Empty
// entries are dropped.
func SplitAnnotationValues(value string) []string {
	var values []string
	for _, v := range strings.Split(value, annotationSeparator) {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

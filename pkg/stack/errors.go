// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"fmt"

	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/graph"
	"sigs.k8s.io/crdkit/pkg/object"
)

// DuplicateResourceError is returned when a logical name is registered
// twice in one stack.
type DuplicateResourceError struct {
	Name string
}

func (e DuplicateResourceError) Error() string {
	return fmt.Sprintf("resource %q is already declared in this stack", e.Name)
}

// UnknownDependencyError is returned when a resource depends on, or reads
// a deferred value from, a resource that is not declared in the stack.
type UnknownDependencyError struct {
	Resource   string
	Dependency string
}

func (e UnknownDependencyError) Error() string {
	return fmt.Sprintf("resource %q depends on %q, which is not declared in this stack", e.Resource, e.Dependency)
}

// CyclicDependencyError is returned when the resources cannot be ordered.
type CyclicDependencyError = graph.CyclicDependencyError

// UnresolvedValueError is returned when a deferred value cannot be read
// from its source.
type UnresolvedValueError struct {
	Resource string
	Source   deferred.Source
	Reason   string
}

func (e *UnresolvedValueError) Error() string {
	return fmt.Sprintf("resource %q: unable to resolve deferred value from %s: %s", e.Resource, e.Source, e.Reason)
}

// DependencyFailedError is reported for a resource that was not applied
// because a resource it depends on failed.
type DependencyFailedError struct {
	Resource   string
	Dependency string
}

func (e DependencyFailedError) Error() string {
	return fmt.Sprintf("resource %q skipped: dependency %q was not applied", e.Resource, e.Dependency)
}

// DuplicateObjectError is reported when two resources of one stack resolve
// to the same cluster object.
type DuplicateObjectError struct {
	Resource   string
	Other      string
	Identifier object.ObjMetadata
}

func (e DuplicateObjectError) Error() string {
	return fmt.Sprintf("resource %q: object %s is already declared by resource %q", e.Resource, e.Identifier, e.Other)
}

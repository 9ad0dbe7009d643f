// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package crd

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/crdkit/pkg/deferred"
)

// ResourceOptions are deployment-time flags for one declared resource.
// Wrappers forward them to the Registrar untouched.
type ResourceOptions struct {
	// Protect keeps the cluster object when the resource is removed from
	// the stack or the stack is destroyed.
	Protect bool
	// DependsOn orders this resource after the listed ones, in addition to
	// the ordering implied by deferred values.
	DependsOn []*CustomResource
}

// Registrar is the generic "create custom resource" primitive of a
// resource-management engine.
type Registrar interface {
	// RegisterCustomResource declares one resource under a logical name
	// that is unique within the engine. The name is for bookkeeping; the
	// cluster object is named by desc.Metadata.Name.
	RegisterCustomResource(name string, desc Descriptor, opts ResourceOptions) (*CustomResource, error)
}

// RegistrarFunc adapts a function to the Registrar interface.
type RegistrarFunc func(name string, desc Descriptor, opts ResourceOptions) (*CustomResource, error)

// RegisterCustomResource calls f.
func (f RegistrarFunc) RegisterCustomResource(name string, desc Descriptor, opts ResourceOptions) (*CustomResource, error) {
	return f(name, desc, opts)
}

// CustomResource is the handle of a declared resource. It is immutable.
type CustomResource struct {
	name string
	desc Descriptor
	opts ResourceOptions
}

// NewCustomResource is used by Registrar implementations to build handles.
func NewCustomResource(name string, desc Descriptor, opts ResourceOptions) *CustomResource {
	return &CustomResource{name: name, desc: desc, opts: opts}
}

// Name returns the logical name.
func (r *CustomResource) Name() string {
	return r.name
}

func (r *CustomResource) Descriptor() Descriptor {
	return r.desc
}

func (r *CustomResource) Options() ResourceOptions {
	return r.opts
}

func (r *CustomResource) GroupVersionKind() schema.GroupVersionKind {
	return r.desc.GroupVersionKind()
}

// Output returns a string read from the live object at path once the
// resource has been applied. Using it in another declaration orders that
// declaration after this one.
func (r *CustomResource) Output(path string) deferred.String {
	return OutputOf[string](r, path)
}

// MetadataName is Output("$.metadata.name").
func (r *CustomResource) MetadataName() deferred.String {
	return r.Output("$.metadata.name")
}

// MetadataNamespace is Output("$.metadata.namespace").
func (r *CustomResource) MetadataNamespace() deferred.String {
	return r.Output("$.metadata.namespace")
}

// OutputOf is Output for values that are not strings.
func OutputOf[T any](r *CustomResource, path string) deferred.Value[T] {
	return deferred.FromResource[T](r.name, path)
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package crd gives each custom resource schema its own typed constructor
// on top of one generic registration primitive.
//
// A wrapper is declared once per CRD:
//
//	var NewBackendConfig = crd.NewConstructor[BackendConfigSpec](
//		"cloud.google.com/v1beta1", "BackendConfig")
//
// and called wherever a resource of that kind is declared:
//
//	bc, err := NewBackendConfig(stack, "polaris-backend-config",
//		crd.Args[BackendConfigSpec]{Name: "polaris-backend-config", Spec: spec},
//		crd.ResourceOptions{Protect: true})
//
// The apiVersion and kind come from the wrapper, never from the caller.
package crd

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/crdkit/pkg/deferred"
)

// Args is the narrow argument record of a wrapper for spec schema S.
type Args[S any] struct {
	// Name is the cluster-facing name of the object.
	Name string
	// Namespace is optional; leave it unset for cluster-scoped kinds.
	Namespace   deferred.String
	Labels      map[string]deferred.String
	Annotations map[string]deferred.String
	Spec        S
}

// Kind binds a spec schema to fixed apiVersion and kind constants.
type Kind[S any] struct {
	apiVersion string
	kind       string
}

// NewKind returns the wrapper for one CRD schema.
func NewKind[S any](apiVersion, kind string) Kind[S] {
	return Kind[S]{apiVersion: apiVersion, kind: kind}
}

func (k Kind[S]) APIVersion() string {
	return k.apiVersion
}

func (k Kind[S]) Kind() string {
	return k.kind
}

func (k Kind[S]) GroupVersionKind() schema.GroupVersionKind {
	return schema.FromAPIVersionAndKind(k.apiVersion, k.kind)
}

// Descriptor maps args onto the generic descriptor. It copies fields and
// does nothing else.
func (k Kind[S]) Descriptor(args Args[S]) Descriptor {
	return Descriptor{
		APIVersion: k.apiVersion,
		Kind:       k.kind,
		Metadata: Metadata{
			Name:        args.Name,
			Namespace:   args.Namespace,
			Labels:      args.Labels,
			Annotations: args.Annotations,
		},
		Spec: args.Spec,
	}
}

// New registers the descriptor built from args with reg. The handle and
// error are those of the registrar.
func (k Kind[S]) New(reg Registrar, name string, args Args[S], opts ResourceOptions) (*CustomResource, error) {
	return reg.RegisterCustomResource(name, k.Descriptor(args), opts)
}

// Constructor is the call signature of a typed wrapper.
type Constructor[S any] func(reg Registrar, name string, args Args[S], opts ResourceOptions) (*CustomResource, error)

// NewConstructor returns the constructor of the wrapper for one CRD schema.
func NewConstructor[S any](apiVersion, kind string) Constructor[S] {
	return NewKind[S](apiVersion, kind).New
}

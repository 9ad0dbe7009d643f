// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package v1 wraps built-in core/v1 kinds that stacks commonly declare next
// to their custom resources.
package v1

import (
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/crdkit/pkg/crd"
)

// NamespaceSpec reuses the upstream type. It only holds finalizers, so most
// declarations leave it empty and the spec is left out of the object.
type NamespaceSpec = corev1.NamespaceSpec

// Namespace is the wrapper for Namespace objects.
var Namespace = crd.NewKind[NamespaceSpec]("v1", "Namespace")

// NewNamespace declares a Namespace. Namespaces are cluster-scoped, so
// args.Namespace must stay unset.
var NewNamespace crd.Constructor[NamespaceSpec] = Namespace.New

type NamespaceArgs = crd.Args[NamespaceSpec]

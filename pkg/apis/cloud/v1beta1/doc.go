// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package v1beta1 wraps the cloud.google.com/v1beta1 custom resources of
// GKE Ingress as typed constructors.
package v1beta1

import (
	"sigs.k8s.io/crdkit/pkg/crd"
)

const (
	GroupName  = "cloud.google.com"
	APIVersion = GroupName + "/v1beta1"

	BackendConfigKind = "BackendConfig"
)

// BackendConfig is the wrapper for BackendConfig objects.
var BackendConfig = crd.NewKind[BackendConfigSpec](APIVersion, BackendConfigKind)

// NewBackendConfig declares a BackendConfig.
var NewBackendConfig crd.Constructor[BackendConfigSpec] = BackendConfig.New

// BackendConfigArgs is the argument record of NewBackendConfig.
type BackendConfigArgs = crd.Args[BackendConfigSpec]

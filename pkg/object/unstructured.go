// Copyright 2021 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	extensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/yaml"
)

var (
	CoreNamespace   = CoreV1Namespace.GroupKind()
	CoreV1Namespace = corev1.SchemeGroupVersion.WithKind("Namespace")
	ExtensionsCRD   = ExtensionsV1CRD.GroupKind()
	ExtensionsV1CRD = extensionsv1.SchemeGroupVersion.WithKind("CustomResourceDefinition")
)

// IsKindNamespace returns true if the passed Unstructured object is
// GroupKind == Core/Namespace (no version checked); false otherwise.
func IsKindNamespace(u *unstructured.Unstructured) bool {
	if u == nil {
		return false
	}
	return CoreNamespace == u.GroupVersionKind().GroupKind()
}

// IsCRD returns true if the passed Unstructured object has
// GroupKind == Extensions/CustomResourceDefinition; false otherwise.
func IsCRD(u *unstructured.Unstructured) bool {
	if u == nil {
		return false
	}
	return ExtensionsCRD == u.GroupVersionKind().GroupKind()
}

// GetCRDGroupKind returns the GroupKind served by the passed
// CustomResourceDefinition and true if the passed object is a CRD
// declaring both a group and a kind.
func GetCRDGroupKind(u *unstructured.Unstructured) (schema.GroupKind, bool) {
	if !IsCRD(u) {
		return schema.GroupKind{}, false
	}
	crd := &extensionsv1.CustomResourceDefinition{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, crd); err != nil {
		return schema.GroupKind{}, false
	}
	if crd.Spec.Group == "" || crd.Spec.Names.Kind == "" {
		return schema.GroupKind{}, false
	}
	return schema.GroupKind{Group: crd.Spec.Group, Kind: crd.Spec.Names.Kind}, true
}

// YamlStringer delays YAML marshalling for logging until String() is called.
type YamlStringer struct {
	O *unstructured.Unstructured
}

// String marshals the wrapped object to a YAML string. If serializing errors,
// the error string will be returned instead. This is primarily for use with
// verbose logging.
func (ys YamlStringer) String() string {
	if ys.O == nil {
		return "<nil>"
	}
	yamlBytes, err := yaml.Marshal(ys.O.Object)
	if err != nil {
		return fmt.Sprintf("<<failed to serialize as yaml: %s>>", err)
	}
	return string(yamlBytes)
}

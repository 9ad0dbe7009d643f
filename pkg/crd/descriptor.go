// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package crd

import (
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/crdkit/pkg/deferred"
)

// Descriptor is the generic (apiVersion, kind, metadata, spec) record of
// one declared object.
type Descriptor struct {
	APIVersion string
	Kind       string
	Metadata   Metadata
	// Spec is the caller's payload as supplied. Its shape is owned by the
	// CRD; only its JSON encoding is relied upon.
	Spec interface{}
}

// Metadata is the part of ObjectMeta a declaration controls. Namespace,
// label and annotation values may be deferred.
type Metadata struct {
	// Name is the cluster-facing name of the object.
	Name string
	// Namespace is left out of the object when unset.
	Namespace   deferred.String
	Labels      map[string]deferred.String
	Annotations map[string]deferred.String
}

// GroupVersionKind parses APIVersion and Kind.
func (d Descriptor) GroupVersionKind() schema.GroupVersionKind {
	return schema.FromAPIVersionAndKind(d.APIVersion, d.Kind)
}

type wireDescriptor struct {
	APIVersion string       `json:"apiVersion"`
	Kind       string       `json:"kind"`
	Metadata   wireMetadata `json:"metadata"`
	Spec       interface{}  `json:"spec,omitempty"`
}

type wireMetadata struct {
	Name        string                     `json:"name"`
	Namespace   *deferred.String           `json:"namespace,omitempty"`
	Labels      map[string]deferred.String `json:"labels,omitempty"`
	Annotations map[string]deferred.String `json:"annotations,omitempty"`
}

// ToUnstructured encodes the descriptor as an object. Deferred values are
// written as placeholder tokens (see deferred.Scan). Unset values and the
// nulls they encode to are dropped, and so is an empty spec.
func (d Descriptor) ToUnstructured() (*unstructured.Unstructured, error) {
	wire := wireDescriptor{
		APIVersion: d.APIVersion,
		Kind:       d.Kind,
		Metadata: wireMetadata{
			Name:        d.Metadata.Name,
			Labels:      d.Metadata.Labels,
			Annotations: d.Metadata.Annotations,
		},
		Spec: d.Spec,
	}
	if d.Metadata.Namespace.IsSet() {
		ns := d.Metadata.Namespace
		wire.Metadata.Namespace = &ns
	}

	jsonBytes, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %q: %w", d.Kind, d.Metadata.Name, err)
	}
	obj := map[string]interface{}{}
	if err := utiljson.Unmarshal(jsonBytes, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode %s %q: %w", d.Kind, d.Metadata.Name, err)
	}
	pruneNulls(obj)
	if spec, ok := obj["spec"].(map[string]interface{}); ok && len(spec) == 0 {
		delete(obj, "spec")
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

func pruneNulls(value interface{}) {
	switch typed := value.(type) {
	case map[string]interface{}:
		for k, v := range typed {
			if v == nil {
				delete(typed, k)
				continue
			}
			pruneNulls(v)
		}
	case []interface{}:
		for _, v := range typed {
			pruneNulls(v)
		}
	}
}

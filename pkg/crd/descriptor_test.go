// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package crd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/crdkit/pkg/deferred"
)

func TestDescriptorToUnstructured(t *testing.T) {
	nsToken, err := deferred.Source{Resource: "monitoring-ns", Path: "$.metadata.name"}.Token()
	require.NoError(t, err)

	testCases := map[string]struct {
		desc     Descriptor
		expected map[string]interface{}
	}{
		"cluster-scoped without spec": {
			desc: Descriptor{
				APIVersion: "v1",
				Kind:       "Namespace",
				Metadata:   Metadata{Name: "monitoring"},
				Spec:       struct{}{},
			},
			expected: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "Namespace",
				"metadata":   map[string]interface{}{"name": "monitoring"},
			},
		},
		"deferred namespace, labels and unset spec fields": {
			desc: Descriptor{
				APIVersion: "cloud.google.com/v1beta1",
				Kind:       "BackendConfig",
				Metadata: Metadata{
					Name:      "polaris-backend-config",
					Namespace: deferred.FromResource[string]("monitoring-ns", "$.metadata.name"),
					Labels: map[string]deferred.String{
						"app":   deferred.Str("polaris"),
						"unset": {},
					},
				},
				Spec: map[string]interface{}{
					"timeoutSec": 40,
					"iap": map[string]interface{}{
						"enabled":                true,
						"oauthclientCredentials": map[string]interface{}{"secretName": deferred.String{}},
					},
				},
			},
			expected: map[string]interface{}{
				"apiVersion": "cloud.google.com/v1beta1",
				"kind":       "BackendConfig",
				"metadata": map[string]interface{}{
					"name":      "polaris-backend-config",
					"namespace": nsToken,
					"labels":    map[string]interface{}{"app": "polaris"},
				},
				"spec": map[string]interface{}{
					"timeoutSec": int64(40),
					"iap": map[string]interface{}{
						"enabled":                true,
						"oauthclientCredentials": map[string]interface{}{},
					},
				},
			},
		},
		"nil spec": {
			desc: Descriptor{
				APIVersion: "example.com/v1",
				Kind:       "Widget",
				Metadata:   Metadata{Name: "w", Namespace: deferred.Str("default")},
			},
			expected: map[string]interface{}{
				"apiVersion": "example.com/v1",
				"kind":       "Widget",
				"metadata":   map[string]interface{}{"name": "w", "namespace": "default"},
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			u, err := tc.desc.ToUnstructured()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, u.Object)
		})
	}
}

func TestDescriptorToUnstructuredInvalidSource(t *testing.T) {
	desc := Descriptor{
		APIVersion: "v1",
		Kind:       "ConfigMap",
		Metadata: Metadata{
			Name:      "cm",
			Namespace: deferred.FromSource[string](deferred.Source{Path: "$.metadata.name"}),
		},
	}
	_, err := desc.ToUnstructured()
	assert.Error(t, err)
}

func TestCustomResourceOutputs(t *testing.T) {
	r := NewCustomResource("monitoring-ns", Descriptor{APIVersion: "v1", Kind: "Namespace"}, ResourceOptions{Protect: true})
	assert.Equal(t, "monitoring-ns", r.Name())
	assert.Equal(t, "Namespace", r.GroupVersionKind().Kind)
	assert.True(t, r.Options().Protect)
	assert.Equal(t, &deferred.Source{Resource: "monitoring-ns", Path: "$.metadata.name"}, r.MetadataName().Source())
	assert.Equal(t, &deferred.Source{Resource: "monitoring-ns", Path: "$.metadata.namespace"}, r.MetadataNamespace().Source())
	phase := OutputOf[int64](r, "$.status.replicas")
	assert.True(t, phase.IsDeferred())
}

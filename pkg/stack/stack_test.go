// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/crdkit/pkg/apis/cloud/v1beta1"
	corev1 "sigs.k8s.io/crdkit/pkg/apis/core/v1"
	"sigs.k8s.io/crdkit/pkg/config"
	"sigs.k8s.io/crdkit/pkg/crd"
	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/object/reference"
	"sigs.k8s.io/crdkit/pkg/testutil"
	"sigs.k8s.io/yaml"
)

var secretRef = reference.ObjectReference{Kind: "Secret", Name: "polaris-oauth-credentials"}

// polarisStack declares the monitoring Namespace and a protected
// BackendConfig living in it, reading its OAuth secret name from a Secret
// the stack does not declare.
func polarisStack(t *testing.T, cfg config.StackConfig) (*Stack, *crd.CustomResource, *crd.CustomResource) {
	s := New(cfg)
	ns, err := corev1.NewNamespace(s, "monitoring-namespace", corev1.NamespaceArgs{Name: "monitoring"}, crd.ResourceOptions{})
	require.NoError(t, err)
	bc, err := v1beta1.NewBackendConfig(s, "polaris-backend-config", v1beta1.BackendConfigArgs{
		Name:      "polaris-backend-config",
		Namespace: ns.MetadataName(),
		Spec: v1beta1.BackendConfigSpec{
			IAP: &v1beta1.IAPConfig{
				Enabled: true,
				OAuthClientCredentials: &v1beta1.OAuthClientCredentials{
					SecretName: deferred.FromObject[string](secretRef, "$.metadata.name"),
				},
			},
		},
	}, crd.ResourceOptions{Protect: true})
	require.NoError(t, err)
	return s, ns, bc
}

func TestRegisterCustomResource(t *testing.T) {
	valid := crd.Descriptor{APIVersion: "v1", Kind: "Namespace", Metadata: crd.Metadata{Name: "monitoring"}}
	testCases := map[string]struct {
		name    string
		desc    crd.Descriptor
		opts    crd.ResourceOptions
		isError bool
	}{
		"valid": {
			name: "ns",
			desc: valid,
		},
		"empty logical name": {
			desc:    valid,
			isError: true,
		},
		"empty kind": {
			name:    "ns",
			desc:    crd.Descriptor{APIVersion: "v1", Metadata: crd.Metadata{Name: "monitoring"}},
			isError: true,
		},
		"empty metadata name": {
			name:    "ns",
			desc:    crd.Descriptor{APIVersion: "v1", Kind: "Namespace"},
			isError: true,
		},
		"nil dependency": {
			name:    "ns",
			desc:    valid,
			opts:    crd.ResourceOptions{DependsOn: []*crd.CustomResource{nil}},
			isError: true,
		},
		"malformed deferred value": {
			name: "ns",
			desc: crd.Descriptor{
				APIVersion: "v1",
				Kind:       "Namespace",
				Metadata:   crd.Metadata{Name: "monitoring", Namespace: deferred.FromResource[string]("", "$.metadata.name")},
			},
			isError: true,
		},
	}
	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			s := New(config.StackConfig{Name: "test"})
			r, err := s.RegisterCustomResource(tc.name, tc.desc, tc.opts)
			if tc.isError {
				assert.Error(t, err)
				assert.Empty(t, s.Resources())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.name, r.Name())
			assert.Equal(t, []*crd.CustomResource{r}, s.Resources())
			found, ok := s.Resource(tc.name)
			assert.True(t, ok)
			assert.Same(t, r, found)
		})
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	s := New(config.StackConfig{Name: "test"})
	_, err := corev1.NewNamespace(s, "ns", corev1.NamespaceArgs{Name: "a"}, crd.ResourceOptions{})
	require.NoError(t, err)
	_, err = corev1.NewNamespace(s, "ns", corev1.NamespaceArgs{Name: "b"}, crd.ResourceOptions{})
	assert.Equal(t, DuplicateResourceError{Name: "ns"}, err)
	assert.Len(t, s.Resources(), 1)
}

func TestRegisterConcurrently(t *testing.T) {
	s := New(config.StackConfig{Name: "test"})
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := corev1.NewNamespace(s, name, corev1.NamespaceArgs{Name: name}, crd.ResourceOptions{})
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()
	assert.Len(t, s.Resources(), 8)
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(config.StackConfig{Name: "test"})
	assert.Equal(t, config.DefaultInventoryNamespace, s.Config().InventoryNamespace)
	assert.Equal(t, config.DefaultFieldManager, s.Config().FieldManager)
}

func TestPlan(t *testing.T) {
	crdManifest := `
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
spec:
  group: example.com
  names:
    kind: Widget
    plural: widgets
  scope: Namespaced
`
	testCases := map[string]struct {
		declare  func(t *testing.T, s *Stack)
		expected [][]string
	}{
		"deferred namespace orders the namespace first": {
			declare: func(t *testing.T, s *Stack) {
				polarisStackInto(t, s)
			},
			expected: [][]string{{"monitoring-namespace"}, {"polaris-backend-config"}},
		},
		"independent resources share a wave": {
			declare: func(t *testing.T, s *Stack) {
				for _, name := range []string{"a", "b"} {
					_, err := corev1.NewNamespace(s, name, corev1.NamespaceArgs{Name: name}, crd.ResourceOptions{})
					require.NoError(t, err)
				}
			},
			expected: [][]string{{"a", "b"}},
		},
		"dependsOn option": {
			declare: func(t *testing.T, s *Stack) {
				a, err := corev1.NewNamespace(s, "a", corev1.NamespaceArgs{Name: "a"}, crd.ResourceOptions{})
				require.NoError(t, err)
				_, err = corev1.NewNamespace(s, "b", corev1.NamespaceArgs{Name: "b"}, crd.ResourceOptions{DependsOn: []*crd.CustomResource{a}})
				require.NoError(t, err)
			},
			expected: [][]string{{"a"}, {"b"}},
		},
		"concrete namespace declared in the stack": {
			declare: func(t *testing.T, s *Stack) {
				_, err := v1beta1.NewBackendConfig(s, "bc", v1beta1.BackendConfigArgs{
					Name:      "bc",
					Namespace: deferred.Str("monitoring"),
				}, crd.ResourceOptions{})
				require.NoError(t, err)
				_, err = corev1.NewNamespace(s, "ns", corev1.NamespaceArgs{Name: "monitoring"}, crd.ResourceOptions{})
				require.NoError(t, err)
			},
			expected: [][]string{{"ns"}, {"bc"}},
		},
		"custom resource after its definition": {
			declare: func(t *testing.T, s *Stack) {
				_, err := s.RegisterCustomResource("widget", crd.Descriptor{
					APIVersion: "example.com/v1",
					Kind:       "Widget",
					Metadata:   crd.Metadata{Name: "w", Namespace: deferred.Str("default")},
				}, crd.ResourceOptions{})
				require.NoError(t, err)
				u := testutil.Unstructured(t, crdManifest)
				_, err = s.RegisterCustomResource("widget-crd", crd.Descriptor{
					APIVersion: u.GetAPIVersion(),
					Kind:       u.GetKind(),
					Metadata:   crd.Metadata{Name: u.GetName()},
					Spec:       u.Object["spec"],
				}, crd.ResourceOptions{})
				require.NoError(t, err)
			},
			expected: [][]string{{"widget-crd"}, {"widget"}},
		},
	}
	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			s := New(config.StackConfig{Name: "test"})
			tc.declare(t, s)
			waves, err := s.Plan()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, waves)
		})
	}
}

func polarisStackInto(t *testing.T, s *Stack) {
	ns, err := corev1.NewNamespace(s, "monitoring-namespace", corev1.NamespaceArgs{Name: "monitoring"}, crd.ResourceOptions{})
	require.NoError(t, err)
	_, err = v1beta1.NewBackendConfig(s, "polaris-backend-config", v1beta1.BackendConfigArgs{
		Name:      "polaris-backend-config",
		Namespace: ns.MetadataName(),
	}, crd.ResourceOptions{})
	require.NoError(t, err)
}

func TestPlanErrors(t *testing.T) {
	t.Run("unknown deferred source", func(t *testing.T) {
		s := New(config.StackConfig{Name: "test"})
		_, err := v1beta1.NewBackendConfig(s, "bc", v1beta1.BackendConfigArgs{
			Name:      "bc",
			Namespace: deferred.FromResource[string]("missing", "$.metadata.name"),
		}, crd.ResourceOptions{})
		require.NoError(t, err)
		_, err = s.Plan()
		assert.Equal(t, UnknownDependencyError{Resource: "bc", Dependency: "missing"}, err)
	})

	t.Run("dependency from another stack", func(t *testing.T) {
		other := New(config.StackConfig{Name: "other"})
		foreign, err := corev1.NewNamespace(other, "a", corev1.NamespaceArgs{Name: "a"}, crd.ResourceOptions{})
		require.NoError(t, err)

		s := New(config.StackConfig{Name: "test"})
		_, err = corev1.NewNamespace(s, "a", corev1.NamespaceArgs{Name: "a"}, crd.ResourceOptions{})
		require.NoError(t, err)
		_, err = corev1.NewNamespace(s, "b", corev1.NamespaceArgs{Name: "b"}, crd.ResourceOptions{DependsOn: []*crd.CustomResource{foreign}})
		require.NoError(t, err)
		_, err = s.Plan()
		assert.Equal(t, UnknownDependencyError{Resource: "b", Dependency: "a"}, err)
	})

	t.Run("cycle", func(t *testing.T) {
		s := New(config.StackConfig{Name: "test"})
		a, err := v1beta1.NewBackendConfig(s, "a", v1beta1.BackendConfigArgs{
			Name:      "a",
			Namespace: deferred.FromResource[string]("b", "$.metadata.namespace"),
		}, crd.ResourceOptions{})
		require.NoError(t, err)
		_, err = v1beta1.NewBackendConfig(s, "b", v1beta1.BackendConfigArgs{
			Name:      "b",
			Namespace: deferred.Str("default"),
		}, crd.ResourceOptions{DependsOn: []*crd.CustomResource{a}})
		require.NoError(t, err)
		_, err = s.Plan()
		var cycle CyclicDependencyError
		require.True(t, errors.As(err, &cycle), "expected cycle, got %v", err)
		assert.Equal(t, []string{"a", "b"}, cycle.Vertices)
	})

	t.Run("self reference", func(t *testing.T) {
		s := New(config.StackConfig{Name: "test"})
		_, err := v1beta1.NewBackendConfig(s, "a", v1beta1.BackendConfigArgs{
			Name:      "a",
			Namespace: deferred.FromResource[string]("a", "$.metadata.name"),
		}, crd.ResourceOptions{})
		require.NoError(t, err)
		_, err = s.Plan()
		assert.Error(t, err)
	})
}

func TestCommonLabels(t *testing.T) {
	s := New(config.StackConfig{
		Name:         "test",
		CommonLabels: map[string]string{"team": "sre", "app": "common"},
	})
	r, err := corev1.NewNamespace(s, "ns", corev1.NamespaceArgs{
		Name:   "monitoring",
		Labels: map[string]deferred.String{"app": deferred.Str("polaris")},
	}, crd.ResourceOptions{})
	require.NoError(t, err)

	obj, err := s.desired(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "sre", "app": "polaris"}, obj.GetLabels())
}

func TestRender(t *testing.T) {
	s, _, _ := polarisStack(t, config.StackConfig{Name: "polaris"})
	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf))

	var docs []map[string]interface{}
	for _, doc := range strings.Split(buf.String(), "\n---\n") {
		m := map[string]interface{}{}
		require.NoError(t, yaml.Unmarshal([]byte(doc), &m))
		docs = append(docs, m)
	}
	require.Len(t, docs, 2)

	nsDoc := docs[0]
	assert.Equal(t, "Namespace", nsDoc["kind"])
	assert.NotContains(t, nsDoc, "spec")

	bcDoc := docs[1]
	assert.Equal(t, "BackendConfig", bcDoc["kind"])
	metadata := bcDoc["metadata"].(map[string]interface{})
	annotations := metadata["annotations"].(map[string]interface{})
	assert.Equal(t, "/Namespace/monitoring", annotations[object.DependsOnAnnotation])
	assert.Equal(t, object.OnRemoveKeep, annotations[object.OnRemoveAnnotation])

	var subs []deferred.Substitution
	require.NoError(t, yaml.Unmarshal([]byte(annotations[object.ApplyTimeMutationAnnotation].(string)), &subs))
	require.Len(t, subs, 2)
	assert.Equal(t, "$.metadata.namespace", subs[0].TargetPath)
	assert.Equal(t, "monitoring-namespace", subs[0].Source.Resource)
	assert.Equal(t, "$.spec.iap.oauthclientCredentials.secretName", subs[1].TargetPath)
	assert.True(t, secretRef.Equal(*subs[1].Source.Object))

	_, isToken, err := deferred.ParseToken(metadata["namespace"].(string))
	require.NoError(t, err)
	assert.True(t, isToken, "namespace is rendered as a token")
}

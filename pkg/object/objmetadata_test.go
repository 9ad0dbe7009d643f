// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	backendConfigGK = schema.GroupKind{Group: "cloud.google.com", Kind: "BackendConfig"}
	namespaceGK     = schema.GroupKind{Kind: "Namespace"}

	bcID = ObjMetadata{Namespace: "monitoring", Name: "polaris-backend-config", GroupKind: backendConfigGK}
	nsID = ObjMetadata{Name: "monitoring", GroupKind: namespaceGK}
	crID = ObjMetadata{Name: "polaris:viewer", GroupKind: schema.GroupKind{Group: "rbac.authorization.k8s.io", Kind: "ClusterRole"}}
)

func TestCreateObjMetadata(t *testing.T) {
	testCases := map[string]struct {
		namespace string
		name      string
		gk        schema.GroupKind
		expected  string
		isError   bool
	}{
		"whitespace is trimmed": {
			namespace: " monitoring\n",
			name:      "\tpolaris-backend-config ",
			gk:        backendConfigGK,
			expected:  "monitoring_polaris-backend-config_cloud.google.com_BackendConfig",
		},
		"cluster-scoped": {
			name:     "monitoring",
			gk:       namespaceGK,
			expected: "_monitoring__Namespace",
		},
		"empty name": {
			namespace: "monitoring",
			name:      " ",
			gk:        backendConfigGK,
			isError:   true,
		},
		"empty GroupKind": {
			name:    "polaris",
			isError: true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			id, err := CreateObjMetadata(tc.namespace, tc.name, tc.gk)
			if tc.isError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id.String())
		})
	}
}

func TestParseObjMetadata(t *testing.T) {
	testCases := map[string]struct {
		in       string
		expected ObjMetadata
		isError  bool
	}{
		"namespaced": {
			in:       "monitoring_polaris-backend-config_cloud.google.com_BackendConfig",
			expected: bcID,
		},
		"cluster-scoped core": {
			in:       "_monitoring__Namespace",
			expected: nsID,
		},
		"rbac colon transcoded": {
			in:       "_polaris__viewer_rbac.authorization.k8s.io_ClusterRole",
			expected: crID,
		},
		"too few fields": {
			in:      "monitoring_polaris",
			isError: true,
		},
		"too many fields": {
			in:      "monitoring_polaris_extra_cloud.google.com_BackendConfig",
			isError: true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			id, err := ParseObjMetadata(tc.in)
			if tc.isError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
			assert.Equal(t, tc.in, id.String())
		})
	}
}

func TestUnstructuredToObjMeta(t *testing.T) {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion("cloud.google.com/v1beta1")
	u.SetKind("BackendConfig")
	u.SetName("polaris-backend-config")
	u.SetNamespace("monitoring")

	id, err := UnstructuredToObjMeta(u)
	require.NoError(t, err)
	assert.Equal(t, bcID, id)

	_, err = UnstructuredToObjMeta(nil)
	assert.Error(t, err)
}

func TestObjMetadataSet(t *testing.T) {
	a := ObjMetadataSet{nsID, bcID}
	b := ObjMetadataSet{bcID, crID}

	assert.True(t, a.Contains(nsID))
	assert.False(t, a.Contains(crID))
	assert.Equal(t, ObjMetadataSet{nsID}, a.Diff(b))
	assert.Equal(t, ObjMetadataSet{nsID, bcID, crID}, a.Union(b))
	assert.True(t, a.Equal(ObjMetadataSet{bcID, nsID, bcID}))
	assert.False(t, a.Equal(b))
	assert.Equal(t, []string{
		"_monitoring__Namespace",
		"monitoring_polaris-backend-config_cloud.google.com_BackendConfig",
	}, a.Strings())
}

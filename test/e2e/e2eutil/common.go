// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package e2eutil

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onsi/gomega"
	v1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/crdkit/pkg/flowcontrol"
	"sigs.k8s.io/crdkit/pkg/object/reference"
	"sigs.k8s.io/crdkit/pkg/stack/event"
	"sigs.k8s.io/yaml"
)

// BackendConfigCRD is a minimal definition of the GKE BackendConfig kind,
// enough for the API server to store the objects the tests apply.
var BackendConfigCRD = []byte(`
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: backendconfigs.cloud.google.com
spec:
  group: cloud.google.com
  names:
    kind: BackendConfig
    listKind: BackendConfigList
    plural: backendconfigs
    singular: backendconfig
  scope: Namespaced
  versions:
  - name: v1beta1
    served: true
    storage: true
    schema:
      openAPIV3Schema:
        type: object
        x-kubernetes-preserve-unknown-fields: true
`)

func RandomString(prefix string) string {
	return prefix + strings.Split(uuid.New().String(), "-")[0]
}

func ManifestToUnstructured(manifest []byte) *unstructured.Unstructured {
	u := make(map[string]interface{})
	if err := yaml.Unmarshal(manifest, &u); err != nil {
		panic(fmt.Errorf("failed to parse manifest yaml: %w", err))
	}
	return &unstructured.Unstructured{Object: u}
}

func RunCollect(ch <-chan event.Event) []event.Event {
	var events []event.Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func RunCollectNoErr(ch <-chan event.Event) []event.Event {
	events := RunCollect(ch)
	for _, e := range events {
		gomega.Expect(e.Type).NotTo(gomega.Equal(event.ErrorType), "unexpected error event: %v", e.ErrorEvent.Err)
	}
	return events
}

// CreateBackendConfigCRD installs the BackendConfig CRD and waits until it
// is established.
func CreateBackendConfigCRD(ctx context.Context, c client.Client) {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	gomega.Expect(yaml.Unmarshal(BackendConfigCRD, crd)).To(gomega.Succeed())
	err := c.Create(ctx, crd)
	if err != nil && !apierrors.IsAlreadyExists(err) {
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	}
	gomega.Eventually(func() bool {
		var current apiextensionsv1.CustomResourceDefinition
		if err := c.Get(ctx, client.ObjectKeyFromObject(crd), &current); err != nil {
			return false
		}
		for _, cond := range current.Status.Conditions {
			if cond.Type == apiextensionsv1.Established && cond.Status == apiextensionsv1.ConditionTrue {
				return true
			}
		}
		return false
	}, 30*time.Second, time.Second).Should(gomega.BeTrue(), "BackendConfig CRD not established")
}

func DeleteBackendConfigCRD(ctx context.Context, c client.Client) {
	DeleteUnstructuredIfExists(ctx, c, ManifestToUnstructured(BackendConfigCRD))
}

func CreateRandomNamespace(ctx context.Context, c client.Client) *v1.Namespace {
	namespace := &v1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name: RandomString("e2e-test-"),
		},
	}
	gomega.Expect(c.Create(ctx, namespace)).To(gomega.Succeed())
	return namespace
}

func DeleteNamespace(ctx context.Context, c client.Client, namespace *v1.Namespace) {
	err := c.Delete(ctx, namespace)
	if err != nil && !apierrors.IsNotFound(err) {
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	}
}

func DeleteUnstructuredIfExists(ctx context.Context, c client.Client, obj *unstructured.Unstructured) {
	err := c.Delete(ctx, obj)
	if err != nil && !apierrors.IsNotFound(err) {
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	}
}

// GetUnstructured reads the live state of the referenced object.
func GetUnstructured(ctx context.Context, c client.Client, ref reference.ObjectReference) (*unstructured.Unstructured, error) {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(ref.GroupVersionKind())
	err := c.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, u)
	return u, err
}

func AssertUnstructuredExists(ctx context.Context, c client.Client, ref reference.ObjectReference) *unstructured.Unstructured {
	u, err := GetUnstructured(ctx, c, ref)
	gomega.Expect(err).NotTo(gomega.HaveOccurred(), "expected GET not to error (%s): %s", ref, err)
	return u
}

// AssertUnstructuredGone passes when the object is not found or is being
// deleted. Namespaces in particular linger while they are finalized.
func AssertUnstructuredGone(ctx context.Context, c client.Client, ref reference.ObjectReference) {
	u, err := GetUnstructured(ctx, c, ref)
	if err != nil {
		gomega.Expect(apierrors.IsNotFound(err)).To(gomega.BeTrue(), "expected GET to error with NotFound (%s): %s", ref, err)
		return
	}
	gomega.Expect(u.GetDeletionTimestamp()).NotTo(gomega.BeNil(), "expected %s to be deleted", ref)
}

func IsFlowControlEnabled(config *rest.Config) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	enabled, err := flowcontrol.IsEnabled(ctx, config)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return enabled
}

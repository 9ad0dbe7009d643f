// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/inventory"
	"sigs.k8s.io/crdkit/pkg/object"
)

// clusterClient bundles what every run needs to reach the cluster.
type clusterClient struct {
	client dynamic.Interface
	mapper meta.RESTMapper
}

// resourceFor returns the dynamic client for objects of gvk in namespace.
// An empty version selects the preferred one. Cluster-scoped kinds ignore
// the namespace; namespaced kinds require one.
func (c clusterClient) resourceFor(gvk schema.GroupVersionKind, namespace string) (dynamic.ResourceInterface, bool, error) {
	var versions []string
	if gvk.Version != "" {
		versions = append(versions, gvk.Version)
	}
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), versions...)
	if err != nil {
		return nil, false, err
	}
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return c.client.Resource(mapping.Resource), false, nil
	}
	if namespace == "" {
		return nil, true, fmt.Errorf("namespace is required for %s", gvk.Kind)
	}
	return c.client.Resource(mapping.Resource).Namespace(namespace), true, nil
}

// resetMapper makes kinds of a newly applied CRD visible.
func (c clusterClient) resetMapper() {
	if rm, ok := c.mapper.(meta.ResettableRESTMapper); ok {
		klog.V(4).Infof("resetting REST mapper")
		rm.Reset()
	}
}

type deleteOutcome int

const (
	deleted deleteOutcome = iota
	deleteSkipped
	deleteFailed
)

// deleteObject removes one inventory object. Objects that are annotated to
// be kept, or that belong to another inventory, are skipped; the reason is
// returned. Objects that are already gone count as deleted.
func (c clusterClient) deleteObject(ctx context.Context, invID string, id object.ObjMetadata, dryRun bool) (deleteOutcome, string, error) {
	ri, _, err := c.resourceFor(id.GroupKind.WithVersion(""), id.Namespace)
	if meta.IsNoMatchError(err) {
		klog.V(4).Infof("%s: kind is no longer served, nothing to delete", id)
		return deleted, "", nil
	}
	if err != nil {
		return deleteFailed, "", err
	}
	live, err := ri.Get(ctx, id.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		klog.V(4).Infof("%s: already deleted", id)
		return deleted, "", nil
	}
	if err != nil {
		return deleteFailed, "", err
	}
	if object.PreventDeletion(live) {
		return deleteSkipped, fmt.Sprintf("annotated with %s: %s", object.OnRemoveAnnotation, object.OnRemoveKeep), nil
	}
	owner, _ := object.HasAnnotation(live, object.OwningInventoryAnnotation)
	if err := inventory.CanPrune(invID, owner); err != nil {
		return deleteSkipped, err.Error(), nil
	}
	if dryRun {
		return deleted, "", nil
	}
	propagation := metav1.DeletePropagationBackground
	err = ri.Delete(ctx, id.Name, metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil && !apierrors.IsNotFound(err) {
		return deleteFailed, "", err
	}
	klog.V(4).Infof("%s: deleted", id)
	return deleted, "", nil
}

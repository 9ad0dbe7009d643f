// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/jsonpath"
)

// resolver reads deferred values, either from the objects applied earlier
// in the same run or from objects the stack does not declare.
type resolver struct {
	clusterClient
	// applied holds the live object of every resource applied so far, by
	// logical name.
	applied map[string]*unstructured.Unstructured
}

// resolve returns the value the substitution reads. obj is the object
// being applied; its namespace is the default for source objects.
func (r *resolver) resolve(ctx context.Context, name string, obj *unstructured.Unstructured, sub deferred.Substitution) (interface{}, error) {
	src := sub.Source
	unresolved := func(format string, args ...interface{}) error {
		return &UnresolvedValueError{Resource: name, Source: src, Reason: fmt.Sprintf(format, args...)}
	}

	var source *unstructured.Unstructured
	if src.Resource != "" {
		source = r.applied[src.Resource]
		if source == nil {
			return nil, unresolved("resource %q has not been applied", src.Resource)
		}
	} else {
		ref := *src.Object
		ri, namespaced, err := r.resourceFor(ref.GroupVersionKind(), ref.Namespace)
		if namespaced && ref.Namespace == "" {
			ref.Namespace = obj.GetNamespace()
			ri, _, err = r.resourceFor(ref.GroupVersionKind(), ref.Namespace)
		}
		if err != nil {
			return nil, unresolved("%v", err)
		}
		source, err = ri.Get(ctx, ref.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return nil, unresolved("object %s not found", ref)
		}
		if err != nil {
			return nil, unresolved("%v", err)
		}
	}

	values, err := jsonpath.Get(source.Object, src.Path)
	if err != nil {
		return nil, unresolved("%v", err)
	}
	if len(values) != 1 {
		return nil, unresolved("expected 1 match for %s, but found %d", src.Path, len(values))
	}
	klog.V(5).Infof("resolved %s for %s: %v", src, name, values[0])
	return values[0], nil
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package ordering sorts object identifiers by kind, so that objects that
// others live in or are typed by (Namespaces, CRDs) come first. Deletion
// uses the reverse order.
package ordering

import (
	"sort"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/crdkit/pkg/object"
)

// kindRanks places the kinds other objects are created in, typed by or
// refer to by name ahead of everything else (rank 0). Webhook
// configurations go last so they cannot block the objects before them.
var kindRanks = func() map[string]int {
	first := []string{
		"Namespace",
		"ResourceQuota",
		"StorageClass",
		"CustomResourceDefinition",
		"ServiceAccount",
		"Role",
		"ClusterRole",
		"RoleBinding",
		"ClusterRoleBinding",
		"ConfigMap",
		"Secret",
		"Service",
		"LimitRange",
		"PriorityClass",
	}
	ranks := map[string]int{
		"MutatingWebhookConfiguration":   1,
		"ValidatingWebhookConfiguration": 1,
	}
	for i, kind := range first {
		ranks[kind] = i - len(first)
	}
	return ranks
}()

// IsLessThan orders group kinds by rank, then by group and kind.
func IsLessThan(i, j schema.GroupKind) bool {
	if ri, rj := kindRanks[i.Kind], kindRanks[j.Kind]; ri != rj {
		return ri < rj
	}
	if i.Group != j.Group {
		return i.Group < j.Group
	}
	return i.Kind < j.Kind
}

func less(i, j object.ObjMetadata) bool {
	if i.GroupKind != j.GroupKind {
		return IsLessThan(i.GroupKind, j.GroupKind)
	}
	if i.Namespace != j.Namespace {
		return i.Namespace < j.Namespace
	}
	return i.Name < j.Name
}

// ForDeletion returns a sorted copy of ids that deletes contents before
// their containers: custom resources first, then their CRDs, Namespaces
// last.
func ForDeletion(ids object.ObjMetadataSet) object.ObjMetadataSet {
	sorted := append(object.ObjMetadataSet{}, ids...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[j], sorted[i])
	})
	return sorted
}

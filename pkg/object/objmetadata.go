// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0
//
// ObjMetadata is the minimal set of information to
// uniquely identify a cluster object once every deferred
// value in its descriptor has been resolved:
//
//	Group/Kind (NOTE: NOT version)
//	Namespace
//	Name
//
// The version is left out because the APIServer does not
// treat a different version as a different object. This
// metadata is what the inventory records for pruning and
// teardown.

package object

import (
	"fmt"
	"sort"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// Separates inventory fields. This string is allowable as a
	// ConfigMap key, but it is not allowed as a character in
	// resource name.
	fieldSeparator = "_"
	// Transform colons in the RBAC resource names to double
	// underscore.
	colonTranscoded = "__"
)

// RBACGroupKind is a map of the RBAC resources. Needed since name validation
// is different than other k8s resources.
var RBACGroupKind = map[schema.GroupKind]bool{
	{Group: rbacv1.GroupName, Kind: "Role"}:               true,
	{Group: rbacv1.GroupName, Kind: "ClusterRole"}:        true,
	{Group: rbacv1.GroupName, Kind: "RoleBinding"}:        true,
	{Group: rbacv1.GroupName, Kind: "ClusterRoleBinding"}: true,
}

// ObjMetadata organizes and stores the identifying information
// for an object. This struct (as a string) is stored in an
// inventory object to keep track of the objects a stack applied.
type ObjMetadata struct {
	Namespace string
	Name      string
	GroupKind schema.GroupKind
}

// CreateObjMetadata returns an ObjMetadata filled with the passed values.
// The fields are trimmed and validated; an error is returned for an empty
// name or GroupKind.
func CreateObjMetadata(namespace string, name string, gk schema.GroupKind) (ObjMetadata, error) {
	// Namespace can be empty, but name cannot.
	name = strings.TrimSpace(name)
	if name == "" {
		return ObjMetadata{}, fmt.Errorf("empty name for object")
	}
	if gk.Empty() {
		return ObjMetadata{}, fmt.Errorf("empty GroupKind for object")
	}
	return ObjMetadata{
		Namespace: strings.TrimSpace(namespace),
		Name:      name,
		GroupKind: gk,
	}, nil
}

// ParseObjMetadata takes a string, splits it into its four fields,
// and returns an ObjMetadata struct storing the four fields.
// Example inventory string:
//
//	monitoring_polaris-backend-config_cloud.google.com_BackendConfig
//
// NOTE: name field can contain double underscore (__), which represents
// a colon. RBAC resources can have this additional character (:) in their name.
func ParseObjMetadata(s string) (ObjMetadata, error) {
	index := strings.Index(s, fieldSeparator)
	if index == -1 {
		return ObjMetadata{}, fmt.Errorf("unable to parse stored object metadata: %s", s)
	}
	namespace := s[:index]
	s = s[index+1:]
	index = strings.LastIndex(s, fieldSeparator)
	if index == -1 {
		return ObjMetadata{}, fmt.Errorf("unable to parse stored object metadata: %s", s)
	}
	kind := s[index+1:]
	s = s[:index]
	index = strings.LastIndex(s, fieldSeparator)
	if index == -1 {
		return ObjMetadata{}, fmt.Errorf("unable to parse stored object metadata: %s", s)
	}
	group := s[index+1:]
	name := strings.ReplaceAll(s[:index], colonTranscoded, ":")
	if strings.Contains(name, fieldSeparator) {
		return ObjMetadata{}, fmt.Errorf("too many fields within: %s", s)
	}
	gk := schema.GroupKind{
		Group: strings.TrimSpace(group),
		Kind:  strings.TrimSpace(kind),
	}
	return CreateObjMetadata(namespace, name, gk)
}

// String returns the inventory encoding of the ObjMetadata. For RBAC
// resources, the "name" field transcodes ":" into double underscore so the
// result stays a valid ConfigMap key.
func (o ObjMetadata) String() string {
	name := o.Name
	if _, exists := RBACGroupKind[o.GroupKind]; exists {
		name = strings.ReplaceAll(name, ":", colonTranscoded)
	}
	return strings.Join([]string{o.Namespace, name, o.GroupKind.Group, o.GroupKind.Kind}, fieldSeparator)
}

// UnstructuredToObjMeta extracts the identifying information from an
// Unstructured object. The values are validated by CreateObjMetadata.
func UnstructuredToObjMeta(obj *unstructured.Unstructured) (ObjMetadata, error) {
	if obj == nil {
		return ObjMetadata{}, fmt.Errorf("nil object")
	}
	return CreateObjMetadata(obj.GetNamespace(), obj.GetName(),
		obj.GroupVersionKind().GroupKind())
}

// ObjMetadataSet is an ordered collection of ObjMetadata.
type ObjMetadataSet []ObjMetadata

// Contains returns true if the set holds the passed id.
func (setA ObjMetadataSet) Contains(id ObjMetadata) bool {
	for _, a := range setA {
		if a == id {
			return true
		}
	}
	return false
}

// Diff returns the ids that are in setA but not in setB (A - B), keeping
// the order of setA.
func (setA ObjMetadataSet) Diff(setB ObjMetadataSet) ObjMetadataSet {
	mapB := setB.toMap()
	diff := ObjMetadataSet{}
	for _, a := range setA {
		if _, found := mapB[a]; !found {
			diff = append(diff, a)
		}
	}
	return diff
}

// Union returns the unique ids of setA followed by the ids of setB that are
// not already present.
func (setA ObjMetadataSet) Union(setB ObjMetadataSet) ObjMetadataSet {
	seen := map[ObjMetadata]struct{}{}
	union := ObjMetadataSet{}
	for _, ids := range []ObjMetadataSet{setA, setB} {
		for _, id := range ids {
			if _, found := seen[id]; found {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	return union
}

// Equal returns true if both sets hold the same ids, ignoring order and
// duplicates.
func (setA ObjMetadataSet) Equal(setB ObjMetadataSet) bool {
	mapA := setA.toMap()
	mapB := setB.toMap()
	if len(mapA) != len(mapB) {
		return false
	}
	for b := range mapB {
		if _, exists := mapA[b]; !exists {
			return false
		}
	}
	return true
}

// Strings returns the sorted inventory encodings of the set.
func (setA ObjMetadataSet) Strings() []string {
	strs := make([]string, 0, len(setA))
	for _, id := range setA {
		strs = append(strs, id.String())
	}
	sort.Strings(strs)
	return strs
}

func (setA ObjMetadataSet) toMap() map[ObjMetadata]struct{} {
	m := make(map[ObjMetadata]struct{}, len(setA))
	for _, a := range setA {
		m[a] = struct{}{}
	}
	return m
}

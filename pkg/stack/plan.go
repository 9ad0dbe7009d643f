// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"fmt"
	"sort"

	"dario.cat/mergo"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/crd"
	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/graph"
	"sigs.k8s.io/crdkit/pkg/jsonpath"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/object/reference"
)

// namespacePath is resolved before any other deferred field, because
// objects read from the cluster default to the namespace of the object
// being applied.
const namespacePath = "$.metadata.namespace"

// plan is the compiled form of a stack: the desired objects with their
// placeholder tokens, and the order to apply them in.
type plan struct {
	waves [][]string
	graph *graph.Graph
	items map[string]*item
	// crdKinds maps the kinds served by CRDs declared in the stack to the
	// logical name of the CRD.
	crdKinds map[schema.GroupKind]string
}

type item struct {
	resource *crd.CustomResource
	object   *unstructured.Unstructured
	subs     []deferred.Substitution
}

// Plan returns the logical resource names grouped into waves. Every
// resource comes after the resources it depends on; resources in one wave
// are independent of each other.
func (s *Stack) Plan() ([][]string, error) {
	p, err := s.compile()
	if err != nil {
		return nil, err
	}
	return p.waves, nil
}

func (s *Stack) compile() (*plan, error) {
	resources := s.Resources()
	p := &plan{
		graph:    graph.New(),
		items:    make(map[string]*item, len(resources)),
		crdKinds: map[schema.GroupKind]string{},
	}

	namespaces := map[string]string{}
	for _, r := range resources {
		p.graph.AddVertex(r.Name())
		obj, err := s.desired(r)
		if err != nil {
			return nil, err
		}
		subs, err := deferred.Scan(obj.Object)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", r.Name(), err)
		}
		sort.SliceStable(subs, func(i, j int) bool {
			return subs[i].TargetPath == namespacePath && subs[j].TargetPath != namespacePath
		})
		p.items[r.Name()] = &item{resource: r, object: obj, subs: subs}

		if object.IsKindNamespace(obj) {
			namespaces[obj.GetName()] = r.Name()
		}
		if gk, found := object.GetCRDGroupKind(obj); found {
			p.crdKinds[gk] = r.Name()
		}
	}

	for _, r := range resources {
		name := r.Name()
		for _, sub := range p.items[name].subs {
			dep := sub.Source.Resource
			if dep == "" {
				continue
			}
			if _, found := p.items[dep]; !found {
				return nil, UnknownDependencyError{Resource: name, Dependency: dep}
			}
			klog.V(3).Infof("%s depends on %s: deferred value at %s", name, dep, sub.TargetPath)
			p.graph.AddEdge(name, dep)
		}
		for _, dep := range r.Options().DependsOn {
			registered, found := p.items[dep.Name()]
			if !found || registered.resource != dep {
				return nil, UnknownDependencyError{Resource: name, Dependency: dep.Name()}
			}
			klog.V(3).Infof("%s depends on %s: dependsOn option", name, dep.Name())
			p.graph.AddEdge(name, dep.Name())
		}
		if ns, found := r.Descriptor().Metadata.Namespace.Get(); found {
			if dep, found := namespaces[ns]; found && dep != name {
				klog.V(3).Infof("%s depends on %s: namespace %s", name, dep, ns)
				p.graph.AddEdge(name, dep)
			}
		}
		if dep, found := p.crdKinds[r.GroupVersionKind().GroupKind()]; found && dep != name {
			klog.V(3).Infof("%s depends on %s: custom resource definition", name, dep)
			p.graph.AddEdge(name, dep)
		}
	}

	waves, err := p.graph.Sort()
	if err != nil {
		return nil, err
	}
	p.waves = waves
	klog.V(3).Infof("plan: %d resource(s) in %d wave(s)", len(resources), len(waves))
	return p, nil
}

// desired encodes the declaration and adds the common labels of the stack.
// Labels set by the declaration win over common labels.
func (s *Stack) desired(r *crd.CustomResource) (*unstructured.Unstructured, error) {
	obj, err := r.Descriptor().ToUnstructured()
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", r.Name(), err)
	}
	if len(s.config.CommonLabels) > 0 {
		labels := obj.GetLabels()
		if labels == nil {
			labels = map[string]string{}
		}
		if err := mergo.Merge(&labels, s.config.CommonLabels); err != nil {
			return nil, fmt.Errorf("resource %q: failed to merge common labels: %w", r.Name(), err)
		}
		obj.SetLabels(labels)
	}
	return obj, nil
}

// reference points at the object of a declared resource. The namespace
// is left out while it is deferred.
func (it *item) reference() reference.ObjectReference {
	gvk := it.object.GroupVersionKind()
	ns, _ := it.resource.Descriptor().Metadata.Namespace.Get()
	return reference.ObjectReference{
		Group:     gvk.Group,
		Kind:      gvk.Kind,
		Name:      it.object.GetName(),
		Namespace: ns,
	}
}

// ranking holds the wave index of every declared object.
type ranking struct {
	byID map[object.ObjMetadata]int
	// byName holds the objects whose namespace is only known after apply,
	// keyed without namespace.
	byName map[object.ObjMetadata]int
}

// of returns the wave of the declared object with the id.
func (r ranking) of(id object.ObjMetadata) (int, bool) {
	if i, found := r.byID[id]; found {
		return i, true
	}
	id.Namespace = ""
	i, found := r.byName[id]
	return i, found
}

// rank returns the wave index of every declared object. Deferred
// namespaces read from other resources of the stack are resolved from the
// desired objects. The rest are matched by group, kind and name.
func (p *plan) rank() ranking {
	r := ranking{
		byID:   map[object.ObjMetadata]int{},
		byName: map[object.ObjMetadata]int{},
	}
	for i, wave := range p.waves {
		for _, name := range wave {
			it := p.items[name]
			id, err := object.UnstructuredToObjMeta(it.object)
			if err != nil {
				continue
			}
			if it.resource.Descriptor().Metadata.Namespace.IsDeferred() {
				ns, found := p.staticNamespace(name, map[string]bool{})
				if !found {
					id.Namespace = ""
					r.byName[id] = i
					continue
				}
				id.Namespace = ns
			}
			r.byID[id] = i
		}
	}
	return r
}

// staticNamespace returns the namespace of the named resource when it can
// be read from the desired objects alone.
func (p *plan) staticNamespace(name string, visited map[string]bool) (string, bool) {
	it, found := p.items[name]
	if !found || visited[name] {
		return "", false
	}
	visited[name] = true
	ns := it.resource.Descriptor().Metadata.Namespace
	if v, found := ns.Get(); found {
		return v, true
	}
	src := ns.Source()
	if src == nil || src.Resource == "" {
		return "", false
	}
	return p.staticValue(*src, visited)
}

// staticValue evaluates the source against the desired object of a
// declared resource, following sources that are themselves deferred.
func (p *plan) staticValue(src deferred.Source, visited map[string]bool) (string, bool) {
	dep, found := p.items[src.Resource]
	if !found {
		return "", false
	}
	if src.Path == namespacePath {
		return p.staticNamespace(src.Resource, visited)
	}
	values, err := jsonpath.Get(dep.object.Object, src.Path)
	if err != nil || len(values) != 1 {
		return "", false
	}
	value, ok := values[0].(string)
	if !ok {
		return "", false
	}
	next, isToken, err := deferred.ParseToken(value)
	if err != nil {
		return "", false
	}
	if !isToken {
		return value, !deferred.ContainsToken(value)
	}
	if next.Resource == "" || visited[next.Resource] {
		return "", false
	}
	return p.staticValue(next, visited)
}

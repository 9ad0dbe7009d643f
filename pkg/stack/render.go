// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/kustomize/kyaml/kio"
	kyaml "sigs.k8s.io/kustomize/kyaml/yaml"
	"sigs.k8s.io/yaml"
)

// Render writes the desired objects as a multi-document YAML stream, in
// apply order. Deferred values are left as placeholder tokens and listed
// in the apply-time-mutation annotation; dependencies are listed in the
// depends-on annotation.
func (s *Stack) Render(w io.Writer) error {
	p, err := s.compile()
	if err != nil {
		return err
	}
	var nodes []*kyaml.RNode
	for _, wave := range p.waves {
		for _, name := range wave {
			obj, err := p.rendered(name)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(obj.Object)
			if err != nil {
				return fmt.Errorf("resource %q: failed to encode: %w", name, err)
			}
			node, err := kyaml.Parse(string(data))
			if err != nil {
				return fmt.Errorf("resource %q: failed to parse: %w", name, err)
			}
			nodes = append(nodes, node)
		}
	}
	return kio.ByteWriter{Writer: w}.Write(nodes)
}

func (p *plan) rendered(name string) (*unstructured.Unstructured, error) {
	it := p.items[name]
	obj := it.object.DeepCopy()
	if len(it.subs) > 0 {
		data, err := yaml.Marshal(it.subs)
		if err != nil {
			return nil, fmt.Errorf("resource %q: failed to encode substitutions: %w", name, err)
		}
		object.SetAnnotation(obj, object.ApplyTimeMutationAnnotation, string(data))
	}
	if deps := p.graph.Dependencies(name); len(deps) > 0 {
		refs := make([]string, 0, len(deps))
		for _, dep := range deps {
			refs = append(refs, p.items[dep].reference().String())
		}
		object.SetAnnotation(obj, object.DependsOnAnnotation, object.JoinAnnotationValues(refs))
	}
	if it.resource.Options().Protect {
		object.SetAnnotation(obj, object.OnRemoveAnnotation, object.OnRemoveKeep)
	}
	return obj, nil
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package stack is the resource-management engine behind the typed
// wrappers in pkg/apis. A Stack collects declarations through
// crd.Registrar, orders them by the dependencies their deferred values
// and options imply, and is then applied, rendered or destroyed.
package stack

import (
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/config"
	"sigs.k8s.io/crdkit/pkg/crd"
)

// Stack is a set of declared resources. It is safe to register resources
// from several goroutines.
type Stack struct {
	config config.StackConfig

	mu        sync.Mutex
	resources []*crd.CustomResource
	byName    map[string]*crd.CustomResource
}

var _ crd.Registrar = &Stack{}

// New returns an empty stack. Defaults are applied to cfg.
func New(cfg config.StackConfig) *Stack {
	cfg.Default()
	return &Stack{
		config: cfg,
		byName: map[string]*crd.CustomResource{},
	}
}

// Config returns the stack settings, with defaults applied.
func (s *Stack) Config() config.StackConfig {
	return s.config
}

// RegisterCustomResource declares one resource. The descriptor is encoded
// right away so that malformed deferred values fail at declaration time.
func (s *Stack) RegisterCustomResource(name string, desc crd.Descriptor, opts crd.ResourceOptions) (*crd.CustomResource, error) {
	if name == "" {
		return nil, errors.New("resource name must not be empty")
	}
	if desc.APIVersion == "" || desc.Kind == "" {
		return nil, fmt.Errorf("resource %q: apiVersion and kind must not be empty", name)
	}
	if desc.Metadata.Name == "" {
		return nil, fmt.Errorf("resource %q: metadata name must not be empty", name)
	}
	for i, dep := range opts.DependsOn {
		if dep == nil {
			return nil, fmt.Errorf("resource %q: dependsOn[%d] is nil", name, i)
		}
	}
	if _, err := desc.ToUnstructured(); err != nil {
		return nil, fmt.Errorf("resource %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.byName[name]; found {
		return nil, DuplicateResourceError{Name: name}
	}
	r := crd.NewCustomResource(name, desc, opts)
	s.resources = append(s.resources, r)
	s.byName[name] = r
	klog.V(3).Infof("registered resource %q (%s %s)", name, desc.Kind, desc.Metadata.Name)
	return r, nil
}

// Resources returns the declared resources in declaration order.
func (s *Stack) Resources() []*crd.CustomResource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*crd.CustomResource(nil), s.resources...)
}

// Resource looks a declared resource up by logical name.
func (s *Stack) Resource(name string) (*crd.CustomResource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, found := s.byName[name]
	return r, found
}

// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// CachingRESTClientGetter caches the RESTMapper so every call to
// ToRESTMapper will get a reference to the same mapper.
type CachingRESTClientGetter struct {
	mx       sync.Mutex
	Delegate genericclioptions.RESTClientGetter

	mapper meta.RESTMapper
}

func (c *CachingRESTClientGetter) ToRESTConfig() (*rest.Config, error) {
	return c.Delegate.ToRESTConfig()
}

func (c *CachingRESTClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	return c.Delegate.ToDiscoveryClient()
}

func (c *CachingRESTClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.mapper != nil {
		return c.mapper, nil
	}
	var err error
	c.mapper, err = c.Delegate.ToRESTMapper()
	return c.mapper, err
}

func (c *CachingRESTClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	return c.Delegate.ToRawKubeConfigLoader()
}

// Clients are the cluster clients of one stack command. The dynamic
// client and the inventory client share one REST mapper, so that a reset
// after a CRD is applied is seen by both.
type Clients struct {
	Dynamic dynamic.Interface
	Mapper  meta.RESTMapper
	// Client reads and writes typed objects, such as the inventory
	// ConfigMap.
	Client client.Client
	// Namespace is the namespace of the current kubeconfig context.
	Namespace string
}

// NewClients builds the clients from the kubeconfig flags.
func NewClients(getter genericclioptions.RESTClientGetter) (*Clients, error) {
	caching := &CachingRESTClientGetter{Delegate: getter}
	cfg, err := caching.ToRESTConfig()
	if err != nil {
		return nil, err
	}
	mapper, err := caching.ToRESTMapper()
	if err != nil {
		return nil, err
	}
	dc, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	c, err := client.New(cfg, client.Options{Scheme: scheme, Mapper: mapper})
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	ns, _, err := caching.ToRawKubeConfigLoader().Namespace()
	if err != nil {
		return nil, err
	}
	return &Clients{Dynamic: dc, Mapper: mapper, Client: c, Namespace: ns}, nil
}

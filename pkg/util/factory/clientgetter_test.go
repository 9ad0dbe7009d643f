// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/crdkit/pkg/testutil"
)

// countingGetter counts the mappers it hands out.
type countingGetter struct {
	*genericclioptions.TestConfigFlags
	mapperCalls int
}

func (g *countingGetter) ToRESTMapper() (meta.RESTMapper, error) {
	g.mapperCalls++
	return g.TestConfigFlags.ToRESTMapper()
}

func newTestFlags() *genericclioptions.TestConfigFlags {
	clientConfig := clientcmd.NewDefaultClientConfig(*clientcmdapi.NewConfig(), &clientcmd.ConfigOverrides{
		ClusterInfo: clientcmdapi.Cluster{Server: "https://127.0.0.1:6443"},
		Context:     clientcmdapi.Context{Namespace: "monitoring"},
	})
	return genericclioptions.NewTestConfigFlags().
		WithClientConfig(clientConfig).
		WithRESTMapper(testutil.NewFakeRESTMapper())
}

func TestCachingRESTClientGetter(t *testing.T) {
	delegate := &countingGetter{TestConfigFlags: newTestFlags()}
	getter := &CachingRESTClientGetter{Delegate: delegate}

	first, err := getter.ToRESTMapper()
	require.NoError(t, err)
	second, err := getter.ToRESTMapper()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, delegate.mapperCalls)
}

func TestNewClients(t *testing.T) {
	clients, err := NewClients(newTestFlags())
	require.NoError(t, err)

	assert.Equal(t, "monitoring", clients.Namespace)
	assert.NotNil(t, clients.Dynamic)
	assert.NotNil(t, clients.Client)
	assert.Same(t, clients.Mapper, clients.Client.RESTMapper())
}

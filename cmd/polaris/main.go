// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Command polaris manages the Polaris dashboard ingress configuration: the
// monitoring Namespace and a BackendConfig that puts IAP in front of the
// dashboard.
package main

import (
	"os"

	"k8s.io/component-base/cli"
	"k8s.io/utils/pointer"
	"sigs.k8s.io/crdkit/pkg/apis/cloud/v1beta1"
	corev1 "sigs.k8s.io/crdkit/pkg/apis/core/v1"
	crdcli "sigs.k8s.io/crdkit/pkg/cli"
	"sigs.k8s.io/crdkit/pkg/crd"
	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/object/reference"
	"sigs.k8s.io/crdkit/pkg/stack"
)

// oauthSecret is created out of band, by whoever owns the OAuth client.
var oauthSecret = reference.ObjectReference{
	Kind: "Secret",
	Name: "polaris-oauth-credentials",
}

func declare(s *stack.Stack) error {
	ns, err := corev1.NewNamespace(s, "monitoring-namespace", corev1.NamespaceArgs{
		Name: "monitoring",
	}, crd.ResourceOptions{})
	if err != nil {
		return err
	}

	_, err = v1beta1.NewBackendConfig(s, "polaris-backend-config", v1beta1.BackendConfigArgs{
		Name:      "polaris-backend-config",
		Namespace: ns.MetadataName(),
		Spec: v1beta1.BackendConfigSpec{
			IAP: &v1beta1.IAPConfig{
				Enabled: true,
				OAuthClientCredentials: &v1beta1.OAuthClientCredentials{
					SecretName: deferred.FromObject[string](oauthSecret, "$.metadata.name"),
				},
			},
			TimeoutSec: pointer.Int64(40),
			ConnectionDraining: &v1beta1.ConnectionDrainingConfig{
				DrainingTimeoutSec: 60,
			},
		},
	}, crd.ResourceOptions{Protect: true})
	return err
}

func main() {
	cmd := crdcli.NewCommand("polaris", declare)
	code := cli.Run(cmd)
	os.Exit(code)
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

//go:build e2e

package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive
	. "github.com/onsi/gomega"    //nolint:revive
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/crdkit/pkg/apis/cloud/v1beta1"
	corev1 "sigs.k8s.io/crdkit/pkg/apis/core/v1"
	"sigs.k8s.io/crdkit/pkg/config"
	"sigs.k8s.io/crdkit/pkg/crd"
	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/object/reference"
	"sigs.k8s.io/crdkit/pkg/stack"
	"sigs.k8s.io/crdkit/pkg/stack/event"
	"sigs.k8s.io/crdkit/pkg/testutil"
	"sigs.k8s.io/crdkit/test/e2e/e2eutil"
)

const (
	oauthSecretName   = "polaris-oauth-credentials"
	backendConfigName = "polaris-backend-config"
)

func createOAuthSecret(ctx context.Context, c client.Client, namespaceName string) {
	secret := &v1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      oauthSecretName,
			Namespace: namespaceName,
		},
		StringData: map[string]string{
			"client_id":     "id",
			"client_secret": "secret",
		},
	}
	Expect(c.Create(ctx, secret)).To(Succeed())
}

// testStack declares a namespace named after the stack and a BackendConfig
// reading the name of the OAuth secret. The BackendConfig lives in the new
// namespace, or in namespaceName when it is protected so that it survives
// the deletion of the stack's namespace.
type testStack struct {
	cfg           config.StackConfig
	appNamespace  object.ObjMetadata
	backendConfig object.ObjMetadata
	withBackend   bool
	protect       bool
	namespaceName string
}

func newTestStack(stackName, namespaceName string) *testStack {
	return &testStack{
		cfg: config.StackConfig{
			Name:               stackName,
			InventoryNamespace: namespaceName,
		},
		appNamespace: object.ObjMetadata{
			Name:      stackName + "-app",
			GroupKind: schema.GroupKind{Kind: "Namespace"},
		},
		backendConfig: object.ObjMetadata{
			Namespace: stackName + "-app",
			Name:      backendConfigName,
			GroupKind: v1beta1.BackendConfig.GroupVersionKind().GroupKind(),
		},
		withBackend:   true,
		namespaceName: namespaceName,
	}
}

func (ts *testStack) protected() *testStack {
	ts.protect = true
	ts.backendConfig.Namespace = ts.namespaceName
	return ts
}

func (ts *testStack) withoutBackend() *testStack {
	ts.withBackend = false
	return ts
}

func (ts *testStack) build() *stack.Stack {
	s := stack.New(ts.cfg)
	ns, err := corev1.NewNamespace(s, "app-namespace", corev1.NamespaceArgs{
		Name: ts.appNamespace.Name,
	}, crd.ResourceOptions{})
	Expect(err).NotTo(HaveOccurred())
	if !ts.withBackend {
		return s
	}

	bcNamespace := ns.MetadataName()
	if ts.protect {
		bcNamespace = deferred.Str(ts.namespaceName)
	}
	secretRef := reference.ObjectReference{
		Kind:      "Secret",
		Name:      oauthSecretName,
		Namespace: ts.namespaceName,
	}
	_, err = v1beta1.NewBackendConfig(s, "backend-config", v1beta1.BackendConfigArgs{
		Name:      backendConfigName,
		Namespace: bcNamespace,
		Spec: v1beta1.BackendConfigSpec{
			IAP: &v1beta1.IAPConfig{
				Enabled: true,
				OAuthClientCredentials: &v1beta1.OAuthClientCredentials{
					SecretName: deferred.FromObject[string](secretRef, "$.metadata.name"),
				},
			},
		},
	}, crd.ResourceOptions{Protect: ts.protect})
	Expect(err).NotTo(HaveOccurred())
	return s
}

func backendConfigRef(id object.ObjMetadata) reference.ObjectReference {
	return reference.ObjectReference{
		Kind:       id.GroupKind.Kind,
		APIVersion: v1beta1.APIVersion,
		Name:       id.Name,
		Namespace:  id.Namespace,
	}
}

func namespaceRef(id object.ObjMetadata) reference.ObjectReference {
	return reference.ObjectReference{Kind: "Namespace", APIVersion: "v1", Name: id.Name}
}

func applyAndDestroyTest(ctx context.Context, cc clusterClients, stackName, namespaceName string) {
	By("Apply resources")
	ts := newTestStack(stackName, namespaceName)
	applier := cc.applier(ts.cfg)
	events := e2eutil.RunCollectNoErr(applier.Run(ctx, ts.build(), stack.ApplierOptions{}))

	expEvents := []testutil.ExpEvent{
		{
			EventType: event.InitType,
			InitEvent: &testutil.ExpInitEvent{
				Waves: [][]string{{"app-namespace"}, {"backend-config"}},
			},
		},
		{
			EventType: event.ApplyType,
			ApplyEvent: &testutil.ExpApplyEvent{
				Resource:   "app-namespace",
				Operation:  event.Created,
				Identifier: ts.appNamespace,
			},
		},
		{
			EventType: event.ApplyType,
			ApplyEvent: &testutil.ExpApplyEvent{
				Resource:   "backend-config",
				Operation:  event.Created,
				Identifier: ts.backendConfig,
			},
		},
	}
	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal(expEvents))

	By("Verify the deferred secret name was resolved")
	bc := e2eutil.AssertUnstructuredExists(ctx, cc.c, backendConfigRef(ts.backendConfig))
	secretName, found, err := unstructured.NestedString(bc.Object, "spec", "iap", "oauthclientCredentials", "secretName")
	Expect(err).NotTo(HaveOccurred())
	Expect(found).To(BeTrue())
	Expect(secretName).To(Equal(oauthSecretName))

	By("Verify inventory")
	inv, err := cc.inventoryClient(ts.cfg).Load(ctx)
	Expect(err).NotTo(HaveOccurred())
	Expect(inv).NotTo(BeNil())
	Expect(inv.Objects.Equal(object.ObjMetadataSet{ts.appNamespace, ts.backendConfig})).To(BeTrue())
	owner, _ := object.HasAnnotation(bc, object.OwningInventoryAnnotation)
	Expect(owner).To(Equal(inv.ID))

	By("Re-apply resources")
	events = e2eutil.RunCollectNoErr(applier.Run(ctx, ts.build(), stack.ApplierOptions{}))
	expEvents[1].ApplyEvent.Operation = event.Configured
	expEvents[2].ApplyEvent.Operation = event.Configured
	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal(expEvents))

	By("Destroy resources")
	events = e2eutil.RunCollectNoErr(cc.destroyer(ts.cfg).Run(ctx, ts.build(), stack.DestroyerOptions{}))
	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal([]testutil.ExpEvent{
		{
			EventType: event.DeleteType,
			DeleteEvent: &testutil.ExpDeleteEvent{
				Operation:  event.Deleted,
				Identifier: ts.backendConfig,
			},
		},
		{
			EventType: event.DeleteType,
			DeleteEvent: &testutil.ExpDeleteEvent{
				Operation:  event.Deleted,
				Identifier: ts.appNamespace,
			},
		},
	}))

	By("Verify resources and inventory are deleted")
	e2eutil.AssertUnstructuredGone(ctx, cc.c, backendConfigRef(ts.backendConfig))
	e2eutil.AssertUnstructuredGone(ctx, cc.c, namespaceRef(ts.appNamespace))
	inv, err = cc.inventoryClient(ts.cfg).Load(ctx)
	Expect(err).NotTo(HaveOccurred())
	Expect(inv).To(BeNil())
}

func dryRunTest(ctx context.Context, cc clusterClients, stackName, namespaceName string) {
	By("Preview resources")
	ts := newTestStack(stackName, namespaceName)
	events := e2eutil.RunCollectNoErr(cc.applier(ts.cfg).Run(ctx, ts.build(), stack.ApplierOptions{DryRun: true}))

	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal([]testutil.ExpEvent{
		{
			EventType: event.InitType,
			InitEvent: &testutil.ExpInitEvent{
				Waves: [][]string{{"app-namespace"}, {"backend-config"}},
			},
		},
		{
			EventType: event.ApplyType,
			ApplyEvent: &testutil.ExpApplyEvent{
				Resource:   "app-namespace",
				Operation:  event.DryRun,
				Identifier: ts.appNamespace,
			},
		},
		{
			EventType: event.ApplyType,
			ApplyEvent: &testutil.ExpApplyEvent{
				Resource:   "backend-config",
				Operation:  event.DryRun,
				Identifier: ts.backendConfig,
			},
		},
	}))

	By("Verify nothing was created")
	_, err := e2eutil.GetUnstructured(ctx, cc.c, namespaceRef(ts.appNamespace))
	Expect(err).To(HaveOccurred())
	inv, err := cc.inventoryClient(ts.cfg).Load(ctx)
	Expect(err).NotTo(HaveOccurred())
	Expect(inv).To(BeNil())
}

func pruneTest(ctx context.Context, cc clusterClients, stackName, namespaceName string) {
	By("Apply resources")
	ts := newTestStack(stackName, namespaceName)
	applier := cc.applier(ts.cfg)
	e2eutil.RunCollectNoErr(applier.Run(ctx, ts.build(), stack.ApplierOptions{}))

	By("Apply the stack without the BackendConfig")
	ts.withoutBackend()
	events := e2eutil.RunCollectNoErr(applier.Run(ctx, ts.build(), stack.ApplierOptions{}))
	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal([]testutil.ExpEvent{
		{
			EventType: event.InitType,
			InitEvent: &testutil.ExpInitEvent{
				Waves: [][]string{{"app-namespace"}},
			},
		},
		{
			EventType: event.ApplyType,
			ApplyEvent: &testutil.ExpApplyEvent{
				Resource:   "app-namespace",
				Operation:  event.Configured,
				Identifier: ts.appNamespace,
			},
		},
		{
			EventType: event.PruneType,
			PruneEvent: &testutil.ExpPruneEvent{
				Operation:  event.Pruned,
				Identifier: ts.backendConfig,
			},
		},
	}))
	e2eutil.AssertUnstructuredGone(ctx, cc.c, backendConfigRef(ts.backendConfig))

	inv, err := cc.inventoryClient(ts.cfg).Load(ctx)
	Expect(err).NotTo(HaveOccurred())
	Expect(inv.Objects).To(testutil.Equal(object.ObjMetadataSet{ts.appNamespace}))

	By("Destroy resources")
	e2eutil.RunCollectNoErr(cc.destroyer(ts.cfg).Run(ctx, ts.build(), stack.DestroyerOptions{}))
	e2eutil.AssertUnstructuredGone(ctx, cc.c, namespaceRef(ts.appNamespace))
}

func deletionPreventionTest(ctx context.Context, cc clusterClients, stackName, namespaceName string) {
	By("Apply resources")
	ts := newTestStack(stackName, namespaceName).protected()
	e2eutil.RunCollectNoErr(cc.applier(ts.cfg).Run(ctx, ts.build(), stack.ApplierOptions{}))

	bc := e2eutil.AssertUnstructuredExists(ctx, cc.c, backendConfigRef(ts.backendConfig))
	Expect(object.PreventDeletion(bc)).To(BeTrue())

	By("Destroy resources")
	events := e2eutil.RunCollectNoErr(cc.destroyer(ts.cfg).Run(ctx, ts.build(), stack.DestroyerOptions{}))
	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal([]testutil.ExpEvent{
		{
			EventType: event.DeleteType,
			DeleteEvent: &testutil.ExpDeleteEvent{
				Operation:  event.DeleteSkipped,
				Identifier: ts.backendConfig,
			},
		},
		{
			EventType: event.DeleteType,
			DeleteEvent: &testutil.ExpDeleteEvent{
				Operation:  event.Deleted,
				Identifier: ts.appNamespace,
			},
		},
	}))

	By("Verify the protected BackendConfig was kept")
	e2eutil.AssertUnstructuredExists(ctx, cc.c, backendConfigRef(ts.backendConfig))
	e2eutil.AssertUnstructuredGone(ctx, cc.c, namespaceRef(ts.appNamespace))
	inv, err := cc.inventoryClient(ts.cfg).Load(ctx)
	Expect(err).NotTo(HaveOccurred())
	Expect(inv).To(BeNil())
}

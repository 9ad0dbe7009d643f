// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

//go:build e2e

package e2e

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive
	. "github.com/onsi/gomega"    //nolint:revive
	"github.com/onsi/gomega/format"
	v1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	"sigs.k8s.io/crdkit/pkg/config"
	"sigs.k8s.io/crdkit/pkg/inventory"
	"sigs.k8s.io/crdkit/pkg/stack"
	"sigs.k8s.io/crdkit/test/e2e/e2eutil"
)

// Parse optional logging flags
// Ex: ginkgo ./test/e2e/... -- -v=5
// Allow init for e2e test (not imported by external code)
// nolint:gochecknoinits
func init() {
	klog.InitFlags(nil)
	klog.SetOutput(GinkgoWriter)
}

var defaultTestTimeout = 5 * time.Minute
var defaultBeforeTestTimeout = 30 * time.Second
var defaultAfterTestTimeout = 30 * time.Second

// clusterClients bundles what an Applier or Destroyer needs for one stack.
type clusterClients struct {
	c       client.Client
	dynamic dynamic.Interface
	mapper  meta.RESTMapper
}

func (cc clusterClients) inventoryClient(cfg config.StackConfig) inventory.Client {
	return &inventory.ConfigMapClient{
		Client:    cc.c,
		Name:      cfg.InventoryName(),
		Namespace: cfg.InventoryNamespace,
	}
}

func (cc clusterClients) applier(cfg config.StackConfig) *stack.Applier {
	return &stack.Applier{
		Client:    cc.dynamic,
		Mapper:    cc.mapper,
		Inventory: cc.inventoryClient(cfg),
	}
}

func (cc clusterClients) destroyer(cfg config.StackConfig) *stack.Destroyer {
	return &stack.Destroyer{
		Client:    cc.dynamic,
		Mapper:    cc.mapper,
		Inventory: cc.inventoryClient(cfg),
	}
}

var _ = Describe("Stack", func() {

	var cc clusterClients

	BeforeSuite(func() {
		// increase from 4000 to handle long event lists
		format.MaxLength = 10000

		cfg, err := ctrl.GetConfig()
		Expect(err).NotTo(HaveOccurred())

		if e2eutil.IsFlowControlEnabled(cfg) {
			cfg.QPS = -1
			cfg.Burst = -1
		}

		scheme := runtime.NewScheme()
		Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())
		Expect(apiextensionsv1.AddToScheme(scheme)).To(Succeed())

		mapper, err := apiutil.NewDynamicRESTMapper(cfg)
		Expect(err).NotTo(HaveOccurred())

		c, err := client.New(cfg, client.Options{
			Scheme: scheme,
			Mapper: mapper,
		})
		Expect(err).NotTo(HaveOccurred())

		dc, err := dynamic.NewForConfig(cfg)
		Expect(err).NotTo(HaveOccurred())
		cc = clusterClients{c: c, dynamic: dc, mapper: mapper}

		ctx, cancel := context.WithTimeout(context.Background(), defaultBeforeTestTimeout)
		defer cancel()
		e2eutil.CreateBackendConfigCRD(ctx, c)
		Expect(ctx.Err()).To(BeNil(), "BeforeSuite context cancelled or timed out")
	})

	AfterSuite(func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultAfterTestTimeout)
		defer cancel()
		e2eutil.DeleteBackendConfigCRD(ctx, cc.c)
		Expect(ctx.Err()).To(BeNil(), "AfterSuite context cancelled or timed out")
	})

	Context("Basic", func() {
		var namespace *v1.Namespace
		var stackName string
		var ctx context.Context
		var cancel context.CancelFunc

		BeforeEach(func() {
			ctx, cancel = context.WithTimeout(context.Background(), defaultTestTimeout)
			stackName = e2eutil.RandomString("test-stack-")
			namespace = e2eutil.CreateRandomNamespace(ctx, cc.c)
			createOAuthSecret(ctx, cc.c, namespace.GetName())
		})

		AfterEach(func() {
			Expect(ctx.Err()).To(BeNil(), "test context cancelled or timed out")
			cancel()
			// new timeout for cleanup
			ctx, cancel = context.WithTimeout(context.Background(), defaultAfterTestTimeout)
			defer cancel()
			e2eutil.DeleteNamespace(ctx, cc.c, namespace)
		})

		It("ApplyDestroy", func() {
			applyAndDestroyTest(ctx, cc, stackName, namespace.GetName())
		})

		It("DryRun", func() {
			dryRunTest(ctx, cc, stackName, namespace.GetName())
		})

		It("Prune", func() {
			pruneTest(ctx, cc, stackName, namespace.GetName())
		})

		It("DeletionPrevention", func() {
			deletionPreventionTest(ctx, cc, stackName, namespace.GetName())
		})
	})
})

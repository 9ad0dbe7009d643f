// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/i18n"
	"sigs.k8s.io/crdkit/pkg/inventory"
	"sigs.k8s.io/crdkit/pkg/printers"
	"sigs.k8s.io/crdkit/pkg/stack"
	"sigs.k8s.io/crdkit/pkg/util/factory"
)

// applyRunner runs `up`, or `preview` when dryRun is set.
type applyRunner struct {
	Command   *cobra.Command
	ioStreams genericclioptions.IOStreams
	factory   cmdutil.Factory
	opts      *stackOptions
	dryRun    bool

	output          string
	inventoryPolicy string
}

func newApplyRunner(f cmdutil.Factory, opts *stackOptions, ioStreams genericclioptions.IOStreams, dryRun bool) *applyRunner {
	r := &applyRunner{
		ioStreams: ioStreams,
		factory:   f,
		opts:      opts,
		dryRun:    dryRun,
	}
	cmd := &cobra.Command{
		Use:                   "up",
		DisableFlagsInUseLine: true,
		Short:                 i18n.T("Apply the stack and prune what it no longer declares"),
		Args:                  cobra.NoArgs,
		RunE:                  r.RunE,
	}
	if dryRun {
		cmd.Use = "preview"
		cmd.Short = i18n.T("Show what up would do, without changing the cluster")
	}

	cmd.Flags().StringVar(&r.output, "output", printers.DefaultPrinter(),
		fmt.Sprintf("Output format, must be one of %s", strings.Join(printers.SupportedPrinters(), ",")))
	cmd.Flags().StringVar(&r.inventoryPolicy, InventoryPolicyFlag, InventoryPolicyStrict,
		"It determines the behavior when the resources don't belong to current inventory. Available options "+
			fmt.Sprintf("%q, %q and %q.", InventoryPolicyStrict, InventoryPolicyAdopt, InventoryPolicyForceAdopt))

	r.Command = cmd
	return r
}

func (r *applyRunner) RunE(cmd *cobra.Command, _ []string) error {
	inventoryPolicy, err := ConvertInventoryPolicy(r.inventoryPolicy)
	if err != nil {
		return err
	}
	printer, err := printers.GetPrinter(r.output, r.ioStreams)
	if err != nil {
		return err
	}

	s, err := r.opts.Stack()
	if err != nil {
		return err
	}
	cfg := s.Config()
	ctx, cancel := withTimeout(cmd.Context(), cfg)
	defer cancel()

	clients, err := factory.NewClients(r.factory)
	if err != nil {
		return err
	}
	applier := &stack.Applier{
		Client: clients.Dynamic,
		Mapper: clients.Mapper,
		Inventory: &inventory.ConfigMapClient{
			Client:    clients.Client,
			Name:      cfg.InventoryName(),
			Namespace: cfg.InventoryNamespace,
		},
		DefaultNamespace: clients.Namespace,
	}

	// Run the applier. It will return a channel where we can receive updates
	// to keep track of progress and any issues.
	ch := applier.Run(ctx, s, stack.ApplierOptions{
		DryRun:          r.dryRun,
		InventoryPolicy: inventoryPolicy,
	})

	// The printer will print updates from the channel. It will block
	// until the channel is closed.
	return printer.Print(ch, r.dryRun)
}

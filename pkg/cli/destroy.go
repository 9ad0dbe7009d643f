// Copyright 2020 The Kubernetes Authors.
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

// destroyRunner encapsulates data necessary to run the destroy command.
type destroyRunner struct {
	Command   *cobra.Command
	ioStreams genericclioptions.IOStreams
	factory   cmdutil.Factory
	opts      *stackOptions

	output string
	dryRun bool
}

func newDestroyRunner(f cmdutil.Factory, opts *stackOptions, ioStreams genericclioptions.IOStreams) *destroyRunner {
	r := &destroyRunner{
		ioStreams: ioStreams,
		factory:   f,
		opts:      opts,
	}
	cmd := &cobra.Command{
		Use:                   "destroy",
		DisableFlagsInUseLine: true,
		Short:                 i18n.T("Delete every object the stack applied, except protected ones"),
		Args:                  cobra.NoArgs,
		RunE:                  r.RunE,
	}

	cmd.Flags().StringVar(&r.output, "output", printers.DefaultPrinter(),
		fmt.Sprintf("Output format, must be one of %s", strings.Join(printers.SupportedPrinters(), ",")))
	cmd.Flags().BoolVar(&r.dryRun, "dry-run", false,
		"Only print the objects that would be deleted")

	r.Command = cmd
	return r
}

func (r *destroyRunner) RunE(cmd *cobra.Command, _ []string) error {
	printer, err := printers.GetPrinter(r.output, r.ioStreams)
	if err != nil {
		return err
	}

	// The program still runs: its plan orders the deletion.
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
	d := &stack.Destroyer{
		Client: clients.Dynamic,
		Mapper: clients.Mapper,
		Inventory: &inventory.ConfigMapClient{
			Client:    clients.Client,
			Name:      cfg.InventoryName(),
			Namespace: cfg.InventoryNamespace,
		},
	}

	ch := d.Run(ctx, s, stack.DestroyerOptions{DryRun: r.dryRun})

	return printer.Print(ch, r.dryRun)
}

// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"k8s.io/kubectl/pkg/util/i18n"
	"sigs.k8s.io/crdkit/pkg/config"
)

// newInitCommand creates the `init` command, which writes a stack config
// file. It reuses the --stack-name and --inventory-namespace flags.
func newInitCommand(f cmdutil.Factory, opts *stackOptions, ioStreams genericclioptions.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:                   "init [DIRECTORY]",
		DisableFlagsInUseLine: true,
		Short:                 i18n.T("Write a stack config file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			io := config.NewInitOptions(f.ToRawKubeConfigLoader(), ioStreams)
			io.Name = opts.stackName
			io.InventoryNamespace = opts.inventoryNamespace
			if err := io.Complete(args); err != nil {
				return err
			}
			return io.Run()
		},
	}
}

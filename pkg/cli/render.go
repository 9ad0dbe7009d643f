// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/kubectl/pkg/util/i18n"
)

// newRenderCommand prints the desired objects without contacting the
// cluster.
func newRenderCommand(opts *stackOptions, ioStreams genericclioptions.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:                   "render",
		DisableFlagsInUseLine: true,
		Short:                 i18n.T("Print the stack as YAML, with deferred values as placeholders"),
		Args:                  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := opts.Stack()
			if err != nil {
				return err
			}
			return s.Render(ioStreams.Out)
		},
	}
}

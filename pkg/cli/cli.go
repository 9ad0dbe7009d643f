// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package cli turns a stack program into a command line tool with the
// up, preview, render, destroy and init subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"sigs.k8s.io/crdkit/pkg/errors"
	"sigs.k8s.io/crdkit/pkg/flowcontrol"
	"sigs.k8s.io/crdkit/pkg/stack"

	// This is here rather than in the libraries because of
	// https://github.com/kubernetes-sigs/kustomize/issues/2060
	_ "k8s.io/client-go/plugin/pkg/client/auth"
)

// Program declares the resources of a stack.
type Program func(s *stack.Stack) error

// NewCommand returns the root command of a stack tool named name.
func NewCommand(name string, program Program) *cobra.Command {
	ioStreams := genericclioptions.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
	return newCommand(name, program, ioStreams)
}

func newCommand(name string, program Program, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage the %s stack", name),
		// We silence error reporting from Cobra here since we want to improve
		// the error messages coming from the commands.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// configure kubectl dependencies and flags
	flags := cmd.PersistentFlags()
	kubeConfigFlags := genericclioptions.NewConfigFlags(true).WithDeprecatedPasswordFlag()
	kubeConfigFlags.AddFlags(flags)
	matchVersionKubeConfigFlags := cmdutil.NewMatchVersionFlags(kubeConfigFlags)
	matchVersionKubeConfigFlags.AddFlags(flags)
	flags.AddGoFlagSet(flag.CommandLine)
	f := cmdutil.NewFactory(matchVersionKubeConfigFlags)

	opts := &stackOptions{name: name, program: program}
	opts.AddFlags(flags)

	// Update ConfigFlags before subcommands run that talk to the server.
	preRunE := newConfigFilerPreRunE(f, kubeConfigFlags)

	clusterCmds := []*cobra.Command{
		newApplyRunner(f, opts, ioStreams, false).Command,
		newApplyRunner(f, opts, ioStreams, true).Command,
		newDestroyRunner(f, opts, ioStreams).Command,
	}
	for _, subCmd := range clusterCmds {
		subCmd.PreRunE = preRunE
	}
	localCmds := []*cobra.Command{
		newRenderCommand(opts, ioStreams),
		newInitCommand(f, opts, ioStreams),
	}
	for _, subCmd := range append(clusterCmds, localCmds...) {
		checkErr(subCmd, name)
		cmd.AddCommand(subCmd)
	}
	return cmd
}

// checkErr prints errors of the command with friendly messages and exit
// codes.
func checkErr(c *cobra.Command, cmdNameBase string) {
	runE := c.RunE
	c.RunE = func(cmd *cobra.Command, args []string) error {
		if err := runE(cmd, args); err != nil {
			errors.CheckErr(cmd.ErrOrStderr(), err, cmdNameBase)
		}
		return nil
	}
}

// newConfigFilerPreRunE returns a cobra command PreRunE function that
// performs a lookup to determine if server-side throttling is enabled. If so,
// client-side throttling is disabled in the ConfigFlags.
func newConfigFilerPreRunE(f cmdutil.Factory, configFlags *genericclioptions.ConfigFlags) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		restConfig, err := f.ToRESTConfig()
		if err != nil {
			return err
		}
		enabled, err := flowcontrol.IsEnabled(ctx, restConfig)
		if err != nil {
			return fmt.Errorf("checking server-side throttling enablement: %w", err)
		}
		if enabled {
			// Disable client-side throttling.
			klog.V(3).Infof("Client-side throttling disabled")
			// WrapConfigFn will affect future Factory.ToRESTConfig() calls.
			configFlags.WrapConfigFn = func(cfg *rest.Config) *rest.Config {
				cfg.QPS = -1
				cfg.Burst = -1
				return cfg
			}
		}
		return nil
	}
}

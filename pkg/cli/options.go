// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/config"
	"sigs.k8s.io/crdkit/pkg/inventory"
	"sigs.k8s.io/crdkit/pkg/stack"
)

const (
	configFlag             = "stack-config"
	nameFlag               = "stack-name"
	inventoryNamespaceFlag = "inventory-namespace"
	fieldManagerFlag       = "field-manager"
	timeoutFlag            = "timeout"

	InventoryPolicyFlag       = "inventory-policy"
	InventoryPolicyStrict     = "strict"
	InventoryPolicyAdopt      = "adopt"
	InventoryPolicyForceAdopt = "force-adopt"
)

// stackOptions are the flags shared by every subcommand. Flags that are
// set win over the stack config file.
type stackOptions struct {
	name    string
	program Program

	flags              *pflag.FlagSet
	configFile         string
	stackName          string
	inventoryNamespace string
	fieldManager       string
	timeout            time.Duration
}

func (o *stackOptions) AddFlags(flags *pflag.FlagSet) {
	o.flags = flags
	flags.StringVar(&o.configFile, configFlag, config.DefaultFilename,
		"Path of the stack config file. A missing default file is not an error.")
	flags.StringVar(&o.stackName, nameFlag, "",
		"Name of the stack; the inventory is named after it. Defaults to the command name.")
	flags.StringVar(&o.inventoryNamespace, inventoryNamespaceFlag, "",
		"Namespace of the inventory ConfigMap")
	flags.StringVar(&o.fieldManager, fieldManagerFlag, "",
		"Field manager recorded on applied objects")
	flags.DurationVar(&o.timeout, timeoutFlag, 0,
		"How long to wait before exiting (default from the stack config, or 2m)")
}

func (o *stackOptions) changed(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}

// Config loads the stack config file and applies the flags.
func (o *stackOptions) Config() (config.StackConfig, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || o.changed(configFlag) {
			return cfg, err
		}
		klog.V(3).Infof("no stack config at %s, using defaults", o.configFile)
	}
	if o.changed(nameFlag) {
		cfg.Name = o.stackName
	}
	if cfg.Name == "" {
		cfg.Name = o.name
	}
	if o.changed(inventoryNamespaceFlag) {
		cfg.InventoryNamespace = o.inventoryNamespace
	}
	if o.changed(fieldManagerFlag) {
		cfg.FieldManager = o.fieldManager
	}
	if o.changed(timeoutFlag) {
		cfg.Timeout = metav1.Duration{Duration: o.timeout}
	}
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Stack runs the program against a new stack.
func (o *stackOptions) Stack() (*stack.Stack, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, err
	}
	s := stack.New(cfg)
	if err := o.program(s); err != nil {
		return nil, fmt.Errorf("declaring stack %q: %w", cfg.Name, err)
	}
	klog.V(3).Infof("stack %q declares %d resource(s)", cfg.Name, len(s.Resources()))
	return s, nil
}

// withTimeout bounds ctx by the stack timeout, if there is one.
func withTimeout(ctx context.Context, cfg config.StackConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout.Duration > 0 {
		return context.WithTimeout(ctx, cfg.Timeout.Duration)
	}
	return context.WithCancel(ctx)
}

func ConvertInventoryPolicy(policy string) (inventory.Policy, error) {
	switch policy {
	case InventoryPolicyStrict:
		return inventory.PolicyMustMatch, nil
	case InventoryPolicyAdopt:
		return inventory.PolicyAdoptIfNoInventory, nil
	case InventoryPolicyForceAdopt:
		return inventory.PolicyAdoptAll, nil
	default:
		return inventory.PolicyMustMatch, fmt.Errorf(
			"inventory policy must be one of strict, adopt, force-adopt")
	}
}

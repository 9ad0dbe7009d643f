// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/klog/v2"
)

var invalidNameChars = regexp.MustCompile(`[^a-z0-9.-]+`)

type namespaceLoader interface {
	Namespace() (string, bool, error)
}

// InitOptions contains the fields necessary to write a new stack config
// file.
type InitOptions struct {
	loader    namespaceLoader
	ioStreams genericclioptions.IOStreams

	// Dir is the directory the config file is written to.
	Dir string
	// Name of the stack; defaults to the directory name.
	Name string
	// InventoryNamespace defaults to the namespace of the current
	// kubeconfig context.
	InventoryNamespace string
}

// NewInitOptions takes the namespace from the kubeconfig loader, usually
// factory.ToRawKubeConfigLoader().
func NewInitOptions(loader namespaceLoader, ioStreams genericclioptions.IOStreams) *InitOptions {
	return &InitOptions{
		loader:    loader,
		ioStreams: ioStreams,
	}
}

// Complete fills in the InitOptions fields. The only optional argument is
// the directory, which defaults to the working directory.
func (i *InitOptions) Complete(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("need at most one 'directory' arg; have %d", len(args))
	}
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	dir, err := NormalizeDir(dir)
	if err != nil {
		return err
	}
	i.Dir = dir
	klog.V(4).Infof("init directory: %s", i.Dir)

	if i.Name == "" {
		i.Name = defaultName(i.Dir)
	}
	if i.InventoryNamespace == "" {
		ns, _, err := i.loader.Namespace()
		if err != nil {
			return err
		}
		i.InventoryNamespace = ns
	}
	fmt.Fprintf(i.ioStreams.Out, "namespace: %s is used for inventory object\n", i.InventoryNamespace)
	return nil
}

// NormalizeDir returns full absolute directory path of the
// passed directory or an error.
func NormalizeDir(dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("invalid directory argument: %s", dirPath)
	}
	return filepath.Abs(dirPath)
}

// defaultName turns a directory name into a DNS-1123 friendly stack name.
func defaultName(dir string) string {
	name := invalidNameChars.ReplaceAllString(strings.ToLower(filepath.Base(dir)), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "stack"
	}
	return name
}

func (i *InitOptions) Run() error {
	cfg := StackConfig{
		Name:               i.Name,
		InventoryNamespace: i.InventoryNamespace,
	}
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := filepath.Join(i.Dir, DefaultFilename)
	klog.V(4).Infof("creating stack config: %s", path)
	if err := Write(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(i.ioStreams.Out, "Initialized: %s\n", path)
	return nil
}

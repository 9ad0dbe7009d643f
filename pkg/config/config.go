// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the per-stack settings file. Command line flags
// override the values read from the file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultFilename is the settings file looked up in the working
	// directory when no --config flag is given.
	DefaultFilename = "crdkit.yaml"

	DefaultInventoryNamespace = "default"
	DefaultFieldManager       = "crdkit"
	DefaultTimeout            = 2 * time.Minute

	inventorySuffix = "-inventory"
)

// StackConfig holds the settings of one stack.
type StackConfig struct {
	// Name identifies the stack. The inventory ConfigMap is named after it.
	Name string `json:"name"`

	// InventoryNamespace is where the inventory ConfigMap lives.
	// +optional
	InventoryNamespace string `json:"inventoryNamespace,omitempty"`

	// FieldManager is recorded as the manager of every write.
	// +optional
	FieldManager string `json:"fieldManager,omitempty"`

	// CommonLabels are added to every declared object. Labels set by a
	// declaration win.
	// +optional
	CommonLabels map[string]string `json:"commonLabels,omitempty"`

	// Timeout bounds a whole apply or destroy run.
	// +optional
	Timeout metav1.Duration `json:"timeout,omitempty"`
}

// Load reads the settings file at path. Unknown fields are an error.
func Load(path string) (StackConfig, error) {
	var cfg StackConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read stack config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse stack config %s: %w", path, err)
	}
	klog.V(4).Infof("loaded stack config %s: name=%q", path, cfg.Name)
	return cfg, nil
}

// Write stores the settings at path. An existing file is not replaced.
func Write(path string, cfg StackConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to encode stack config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("unable to create stack config file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("unable to write stack config file %s: %w", path, err)
	}
	return nil
}

// Default fills in the optional fields that are empty.
func (c *StackConfig) Default() {
	if c.InventoryNamespace == "" {
		c.InventoryNamespace = DefaultInventoryNamespace
	}
	if c.FieldManager == "" {
		c.FieldManager = DefaultFieldManager
	}
	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = DefaultTimeout
	}
}

// InventoryName is the name of the inventory ConfigMap.
func (c StackConfig) InventoryName() string {
	return c.Name + inventorySuffix
}

// Validate checks the values that end up in object names and labels.
func (c StackConfig) Validate() error {
	verr := &ValidationError{}
	if c.Name == "" {
		verr.add("name", "must not be empty")
	} else {
		for _, msg := range validation.IsDNS1123Subdomain(c.InventoryName()) {
			verr.add("name", msg)
		}
	}
	if c.InventoryNamespace != "" {
		for _, msg := range validation.IsDNS1123Label(c.InventoryNamespace) {
			verr.add("inventoryNamespace", msg)
		}
	}
	keys := make([]string, 0, len(c.CommonLabels))
	for k := range c.CommonLabels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, msg := range validation.IsQualifiedName(k) {
			verr.add(fmt.Sprintf("commonLabels[%s]", k), msg)
		}
		for _, msg := range validation.IsValidLabelValue(c.CommonLabels[k]) {
			verr.add(fmt.Sprintf("commonLabels[%s]", k), msg)
		}
	}
	if c.Timeout.Duration < 0 {
		verr.add("timeout", "must not be negative")
	}
	if len(verr.Violations) == 0 {
		return nil
	}
	return verr
}

// ValidationError lists every invalid field of a StackConfig.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) add(field, msg string) {
	e.Violations = append(e.Violations, fmt.Sprintf("%s: %s", field, msg))
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid stack config: %s", strings.Join(e.Violations, "; "))
}

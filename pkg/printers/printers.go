// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package printers

import (
	"fmt"
	"sort"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"sigs.k8s.io/crdkit/pkg/printers/events"
	"sigs.k8s.io/crdkit/pkg/printers/json"
	"sigs.k8s.io/crdkit/pkg/printers/printer"
)

const (
	EventsPrinter = "events"
	JSONPrinter   = "json"
)

var printerFactories = map[string]func(genericclioptions.IOStreams) printer.Printer{
	EventsPrinter: func(ioStreams genericclioptions.IOStreams) printer.Printer {
		return events.NewPrinter(ioStreams, printer.PreviewStringer{})
	},
	JSONPrinter: json.NewPrinter,
}

// GetPrinter returns the printer for the --output value.
func GetPrinter(printerType string, ioStreams genericclioptions.IOStreams) (printer.Printer, error) {
	newPrinter, found := printerFactories[printerType]
	if !found {
		return nil, fmt.Errorf("unknown output type %q, must be one of %v", printerType, SupportedPrinters())
	}
	return newPrinter(ioStreams), nil
}

func SupportedPrinters() []string {
	names := make([]string, 0, len(printerFactories))
	for name := range printerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func DefaultPrinter() string {
	return EventsPrinter
}

// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/print/list"
	"sigs.k8s.io/crdkit/pkg/print/stats"
	"sigs.k8s.io/crdkit/pkg/printers/printer"
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// NewPrinter prints one line per event and a summary at the end.
func NewPrinter(ioStreams genericclioptions.IOStreams, drs printer.DryRunStringer) printer.Printer {
	return &list.BaseListPrinter{
		FormatterFactory: func(dryRun bool) list.Formatter {
			return NewFormatter(ioStreams, dryRun, drs)
		},
	}
}

func NewFormatter(ioStreams genericclioptions.IOStreams, dryRun bool, drs printer.DryRunStringer) list.Formatter {
	return &formatter{
		ioStreams: ioStreams,
		suffix:    drs.String(dryRun),
	}
}

type formatter struct {
	ioStreams genericclioptions.IOStreams
	suffix    string
}

func (ef *formatter) FormatInitEvent(ie event.InitEvent) error {
	for i, wave := range ie.Waves {
		ef.print("wave %d: %s", i+1, strings.Join(wave, ", "))
	}
	return nil
}

func (ef *formatter) FormatApplyEvent(ae event.ApplyEvent) error {
	if ae.Error != nil {
		ef.print("%s apply failed: %s", applyEventToString(ae), ae.Error.Error())
		return nil
	}
	op := strings.ToLower(ae.Operation.String())
	if ae.Operation == event.DryRun {
		op = "applied"
	}
	ef.print("%s %s%s", applyEventToString(ae), op, ef.suffix)
	return nil
}

func (ef *formatter) FormatPruneEvent(pe event.PruneEvent) error {
	gk := pe.Identifier.GroupKind
	if pe.Error != nil {
		ef.print("%s prune failed: %s", resourceIDToString(gk, pe.Identifier.Name),
			pe.Error.Error())
		return nil
	}

	switch pe.Operation {
	case event.Pruned:
		ef.print("%s pruned%s", resourceIDToString(gk, pe.Identifier.Name), ef.suffix)
	case event.PruneSkipped:
		ef.print("%s prune skipped: %s", resourceIDToString(gk, pe.Identifier.Name), pe.Reason)
	}
	return nil
}

func (ef *formatter) FormatDeleteEvent(de event.DeleteEvent) error {
	gk := de.Identifier.GroupKind
	name := de.Identifier.Name

	if de.Error != nil {
		ef.print("%s deletion failed: %s", resourceIDToString(gk, name),
			de.Error.Error())
		return nil
	}

	switch de.Operation {
	case event.Deleted:
		ef.print("%s deleted%s", resourceIDToString(gk, name), ef.suffix)
	case event.DeleteSkipped:
		ef.print("%s delete skipped: %s", resourceIDToString(gk, name), de.Reason)
	}
	return nil
}

// The caller reports the error itself.
func (ef *formatter) FormatErrorEvent(_ event.ErrorEvent) error {
	return nil
}

func (ef *formatter) FormatSummary(s stats.Stats) error {
	if as := s.ApplyStats; as.Sum() > 0 {
		ef.print("%d resource(s) applied. %d created, %d configured, %d failed",
			as.Sum()-as.Failed, as.Created, as.Configured, as.Failed)
	}
	if ps := s.PruneStats; ps.Sum() > 0 {
		ef.print("%d resource(s) pruned, %d skipped, %d failed to prune", ps.Pruned, ps.Skipped, ps.Failed)
	}
	if ds := s.DeleteStats; ds.Sum() > 0 {
		ef.print("%d resource(s) deleted, %d skipped, %d failed to delete", ds.Deleted, ds.Skipped, ds.Failed)
	}
	return nil
}

func (ef *formatter) print(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(ef.ioStreams.Out, format+"\n", a...)
}

// applyEventToString names the object, or the declaration when the object
// could not be identified.
func applyEventToString(ae event.ApplyEvent) string {
	if ae.Identifier == (object.ObjMetadata{}) {
		return ae.Resource
	}
	return resourceIDToString(ae.Identifier.GroupKind, ae.Identifier.Name)
}

// resourceIDToString returns the string representation of a GroupKind and a resource name.
func resourceIDToString(gk schema.GroupKind, name string) string {
	return fmt.Sprintf("%s/%s", strings.ToLower(gk.String()), name)
}

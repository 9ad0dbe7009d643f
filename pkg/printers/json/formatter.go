// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/print/list"
	"sigs.k8s.io/crdkit/pkg/print/stats"
	"sigs.k8s.io/crdkit/pkg/printers/printer"
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

func NewPrinter(ioStreams genericclioptions.IOStreams) printer.Printer {
	return &list.BaseListPrinter{
		FormatterFactory: func(dryRun bool) list.Formatter {
			return NewFormatter(ioStreams, dryRun)
		},
	}
}

func NewFormatter(ioStreams genericclioptions.IOStreams, dryRun bool) list.Formatter {
	return &formatter{
		ioStreams: ioStreams,
		dryRun:    dryRun,
		now:       time.Now,
	}
}

type formatter struct {
	ioStreams genericclioptions.IOStreams
	dryRun    bool
	now       func() time.Time
}

func (jf *formatter) FormatInitEvent(ie event.InitEvent) error {
	return jf.printEvent("init", map[string]interface{}{
		"waves":  ie.Waves,
		"dryRun": jf.dryRun,
	})
}

func (jf *formatter) FormatApplyEvent(ae event.ApplyEvent) error {
	eventInfo := jf.baseResourceEvent(ae.Identifier)
	eventInfo["resource"] = ae.Resource
	eventInfo["operation"] = ae.Operation.String()
	if ae.Error != nil {
		eventInfo["error"] = ae.Error.Error()
	}
	return jf.printEvent("apply", eventInfo)
}

func (jf *formatter) FormatPruneEvent(pe event.PruneEvent) error {
	eventInfo := jf.baseResourceEvent(pe.Identifier)
	eventInfo["operation"] = pe.Operation.String()
	if pe.Reason != "" {
		eventInfo["reason"] = pe.Reason
	}
	if pe.Error != nil {
		eventInfo["error"] = pe.Error.Error()
	}
	return jf.printEvent("prune", eventInfo)
}

func (jf *formatter) FormatDeleteEvent(de event.DeleteEvent) error {
	eventInfo := jf.baseResourceEvent(de.Identifier)
	eventInfo["operation"] = de.Operation.String()
	if de.Reason != "" {
		eventInfo["reason"] = de.Reason
	}
	if de.Error != nil {
		eventInfo["error"] = de.Error.Error()
	}
	return jf.printEvent("delete", eventInfo)
}

func (jf *formatter) FormatErrorEvent(ee event.ErrorEvent) error {
	return jf.printEvent("error", map[string]interface{}{
		"error": ee.Err.Error(),
	})
}

func (jf *formatter) FormatSummary(s stats.Stats) error {
	as, ps, ds := s.ApplyStats, s.PruneStats, s.DeleteStats
	return jf.printEvent("summary", map[string]interface{}{
		"applied": map[string]interface{}{
			"created":    as.Created,
			"configured": as.Configured,
			"dryRun":     as.DryRun,
			"failed":     as.Failed,
		},
		"pruned": map[string]interface{}{
			"pruned":  ps.Pruned,
			"skipped": ps.Skipped,
			"failed":  ps.Failed,
		},
		"deleted": map[string]interface{}{
			"deleted": ds.Deleted,
			"skipped": ds.Skipped,
			"failed":  ds.Failed,
		},
	})
}

func (jf *formatter) baseResourceEvent(identifier object.ObjMetadata) map[string]interface{} {
	return map[string]interface{}{
		"group":     identifier.GroupKind.Group,
		"kind":      identifier.GroupKind.Kind,
		"namespace": identifier.Namespace,
		"name":      identifier.Name,
	}
}

func (jf *formatter) printEvent(t string, content map[string]interface{}) error {
	m := make(map[string]interface{})
	m["timestamp"] = jf.now().UTC().Format(time.RFC3339)
	m["type"] = t
	for key, val := range content {
		m[key] = val
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(jf.ioStreams.Out, string(b)+"\n")
	return err
}

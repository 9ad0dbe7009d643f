// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package list

import (
	"sigs.k8s.io/crdkit/pkg/print/common"
	"sigs.k8s.io/crdkit/pkg/print/stats"
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// Formatter writes single events, and the summary once the channel is
// closed.
type Formatter interface {
	FormatInitEvent(ie event.InitEvent) error
	FormatApplyEvent(ae event.ApplyEvent) error
	FormatPruneEvent(pe event.PruneEvent) error
	FormatDeleteEvent(de event.DeleteEvent) error
	FormatErrorEvent(ee event.ErrorEvent) error
	FormatSummary(s stats.Stats) error
}

type FormatterFactory func(dryRun bool) Formatter

type BaseListPrinter struct {
	FormatterFactory FormatterFactory
}

// Print outputs the events from the provided channel, one per line.
// This function will block until the channel is closed. The run is always
// read to the end, so that the sender is never left blocked; the first
// error event is returned, or a ResultError if any resource failed.
func (b *BaseListPrinter) Print(ch <-chan event.Event, dryRun bool) error {
	var s stats.Stats
	var runErr, printErr error
	formatter := b.FormatterFactory(dryRun)
	for e := range ch {
		if printErr != nil {
			continue
		}
		s.Handle(e)
		switch e.Type {
		case event.InitType:
			printErr = formatter.FormatInitEvent(e.InitEvent)
		case event.ErrorType:
			if runErr == nil {
				runErr = e.ErrorEvent.Err
			}
			printErr = formatter.FormatErrorEvent(e.ErrorEvent)
		case event.ApplyType:
			printErr = formatter.FormatApplyEvent(e.ApplyEvent)
		case event.PruneType:
			printErr = formatter.FormatPruneEvent(e.PruneEvent)
		case event.DeleteType:
			printErr = formatter.FormatDeleteEvent(e.DeleteEvent)
		}
	}
	if printErr != nil {
		return printErr
	}
	if err := formatter.FormatSummary(s); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	return common.ResultErrorFromStats(s)
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package printer

import (
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// Printer consumes the events of one apply or destroy run. Print returns
// once the channel is closed.
type Printer interface {
	Print(ch <-chan event.Event, dryRun bool) error
}

// DryRunStringer is the suffix appended to operations of a dry run.
type DryRunStringer interface {
	String(dryRun bool) string
}

type PreviewStringer struct{}

func (PreviewStringer) String(dryRun bool) string {
	if !dryRun {
		return ""
	}
	return " (preview)"
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"fmt"

	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// Stats captures the summarized numbers of one apply or destroy run.
type Stats struct {
	// Waves is the number of apply waves in the plan.
	Waves int

	ApplyStats  ApplyStats
	PruneStats  PruneStats
	DeleteStats DeleteStats
}

// FailedActuationSum returns the number of resources that failed actuation.
func (s *Stats) FailedActuationSum() int {
	return s.ApplyStats.Failed + s.PruneStats.Failed + s.DeleteStats.Failed
}

// Handle updates the stats based on an event.
func (s *Stats) Handle(e event.Event) {
	switch e.Type {
	case event.InitType:
		s.Waves = len(e.InitEvent.Waves)
	case event.ApplyType:
		s.ApplyStats.Inc(e.ApplyEvent.Operation)
	case event.PruneType:
		s.PruneStats.Inc(e.PruneEvent.Operation)
	case event.DeleteType:
		s.DeleteStats.Inc(e.DeleteEvent.Operation)
	}
}

type ApplyStats struct {
	Created    int
	Configured int
	DryRun     int
	Failed     int
}

func (a *ApplyStats) Inc(op event.ApplyEventOperation) {
	switch op {
	case event.Created:
		a.Created++
	case event.Configured:
		a.Configured++
	case event.DryRun:
		a.DryRun++
	case event.ApplyFailed:
		a.Failed++
	default:
		panic(fmt.Errorf("invalid apply operation %s", op.String()))
	}
}

func (a *ApplyStats) Sum() int {
	return a.Created + a.Configured + a.DryRun + a.Failed
}

type PruneStats struct {
	Pruned  int
	Skipped int
	Failed  int
}

func (p *PruneStats) Inc(op event.PruneEventOperation) {
	switch op {
	case event.Pruned:
		p.Pruned++
	case event.PruneSkipped:
		p.Skipped++
	case event.PruneFailed:
		p.Failed++
	default:
		panic(fmt.Errorf("invalid prune operation %s", op.String()))
	}
}

func (p *PruneStats) Sum() int {
	return p.Pruned + p.Skipped + p.Failed
}

type DeleteStats struct {
	Deleted int
	Skipped int
	Failed  int
}

func (d *DeleteStats) Inc(op event.DeleteEventOperation) {
	switch op {
	case event.Deleted:
		d.Deleted++
	case event.DeleteSkipped:
		d.Skipped++
	case event.DeleteFailed:
		d.Failed++
	default:
		panic(fmt.Errorf("invalid delete operation %s", op.String()))
	}
}

func (d *DeleteStats) Sum() int {
	return d.Deleted + d.Skipped + d.Failed
}

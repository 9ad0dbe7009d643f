// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"context"
	"sort"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/inventory"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/ordering"
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// Destroyer deletes every object recorded in the inventory of a stack.
type Destroyer struct {
	Client    dynamic.Interface
	Mapper    meta.RESTMapper
	Inventory inventory.Client
}

// DestroyerOptions control one destroy run.
type DestroyerOptions struct {
	// DryRun reports what would be deleted without deleting it.
	DryRun bool
}

// Run deletes the objects of the stack in reverse apply order. Protected
// objects, and objects owned by another inventory, are left in place and
// dropped from the inventory. The inventory is deleted once nothing is
// left in it. The caller must read the channel until it is closed.
func (d *Destroyer) Run(ctx context.Context, s *Stack, opts DestroyerOptions) <-chan event.Event {
	eventChannel := make(chan event.Event)
	go func() {
		defer close(eventChannel)
		d.run(ctx, s, opts, eventChannel)
	}()
	return eventChannel
}

func (d *Destroyer) run(ctx context.Context, s *Stack, opts DestroyerOptions, events chan<- event.Event) {
	sendError := func(err error) {
		events <- event.Event{Type: event.ErrorType, ErrorEvent: event.ErrorEvent{Err: err}}
	}
	inv, err := d.Inventory.Load(ctx)
	if err != nil {
		sendError(err)
		return
	}
	cfg := s.Config()
	if inv == nil {
		sendError(inventory.NoInventoryError{Name: cfg.Name, Namespace: cfg.InventoryNamespace})
		return
	}
	klog.V(3).Infof("destroying stack %q: %d object(s) in inventory %s", cfg.Name, len(inv.Objects), inv.ID)

	c := clusterClient{client: d.Client, mapper: d.Mapper}
	var remaining object.ObjMetadataSet
	for _, id := range deletionOrder(s, inv.Objects) {
		if err := ctx.Err(); err != nil {
			sendError(err)
			return
		}
		de := event.DeleteEvent{Identifier: id}
		outcome, reason, err := c.deleteObject(ctx, inv.ID, id, opts.DryRun)
		switch outcome {
		case deleted:
			de.Operation = event.Deleted
		case deleteSkipped:
			de.Operation = event.DeleteSkipped
			de.Reason = reason
		case deleteFailed:
			de.Operation = event.DeleteFailed
			de.Error = err
			remaining = append(remaining, id)
		}
		events <- event.Event{Type: event.DeleteType, DeleteEvent: de}
	}

	if opts.DryRun {
		return
	}
	if len(remaining) > 0 {
		err = d.Inventory.Store(ctx, &inventory.Inventory{ID: inv.ID, Objects: remaining})
	} else {
		err = d.Inventory.Delete(ctx)
	}
	if err != nil {
		sendError(err)
	}
}

// deletionOrder deletes objects the stack still declares in reverse plan
// order, after the objects it no longer knows. Ties are broken by kind so
// that Namespaces and CRDs go last.
func deletionOrder(s *Stack, ids object.ObjMetadataSet) object.ObjMetadataSet {
	sorted := ordering.ForDeletion(ids)
	p, err := s.compile()
	if err != nil {
		klog.V(3).Infof("destroy: stack cannot be planned, ordering by kind only: %v", err)
		return sorted
	}
	ranks := p.rank()
	rankOf := func(id object.ObjMetadata) int {
		if r, found := ranks.of(id); found {
			return r
		}
		return len(p.waves)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return rankOf(sorted[i]) > rankOf(sorted[j])
	})
	return sorted
}

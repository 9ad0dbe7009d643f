// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/deferred"
	"sigs.k8s.io/crdkit/pkg/inventory"
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/ordering"
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// inventoryStoreTimeout bounds the final inventory write of a run whose
// context was cancelled, so that applied objects are still recorded.
const inventoryStoreTimeout = 30 * time.Second

// Applier applies a stack to the cluster, wave by wave, and prunes the
// objects of the previous apply that are no longer declared.
type Applier struct {
	Client    dynamic.Interface
	Mapper    meta.RESTMapper
	Inventory inventory.Client

	// DefaultNamespace is given to namespaced objects declared without a
	// namespace. Empty means "default".
	DefaultNamespace string
}

// ApplierOptions control one apply run.
type ApplierOptions struct {
	// DryRun reads from the cluster but does not change it. Deferred
	// values that cannot be resolved yet are left as tokens.
	DryRun bool

	// InventoryPolicy decides whether existing objects that belong to no
	// or another inventory are taken over.
	InventoryPolicy inventory.Policy
}

// Run applies the stack. Progress is reported on the returned channel,
// which is closed when the run is over. The caller must read the channel
// until it is closed.
func (a *Applier) Run(ctx context.Context, s *Stack, opts ApplierOptions) <-chan event.Event {
	eventChannel := make(chan event.Event)
	go func() {
		defer close(eventChannel)
		r := &applyRun{
			resolver: resolver{
				clusterClient: clusterClient{client: a.Client, mapper: a.Mapper},
				applied:       map[string]*unstructured.Unstructured{},
			},
			applier: a,
			stack:   s,
			opts:    opts,
			events:  eventChannel,
			failed:  map[string]bool{},
			owners:  map[object.ObjMetadata]string{},
		}
		r.run(ctx)
	}()
	return eventChannel
}

type applyRun struct {
	resolver
	applier *Applier
	stack   *Stack
	opts    ApplierOptions
	events  chan<- event.Event

	plan   *plan
	invID  string
	failed map[string]bool
	// owners maps every object applied in this run to its resource.
	owners map[object.ObjMetadata]string
}

func (r *applyRun) sendError(err error) {
	r.events <- event.Event{Type: event.ErrorType, ErrorEvent: event.ErrorEvent{Err: err}}
}

func (r *applyRun) run(ctx context.Context) {
	p, err := r.stack.compile()
	if err != nil {
		r.sendError(err)
		return
	}
	r.plan = p
	r.events <- event.Event{Type: event.InitType, InitEvent: event.InitEvent{Waves: p.waves}}

	prev, err := r.applier.Inventory.Load(ctx)
	if err != nil {
		r.sendError(err)
		return
	}
	r.invID = uuid.New().String()
	if prev != nil {
		r.invID = prev.ID
	} else {
		prev = &inventory.Inventory{ID: r.invID}
	}
	klog.V(3).Infof("applying stack %q with inventory %s", r.stack.Config().Name, r.invID)

	var applied object.ObjMetadataSet
	complete := true
waves:
	for _, wave := range p.waves {
		for _, name := range wave {
			if err := ctx.Err(); err != nil {
				r.sendError(err)
				complete = false
				break waves
			}
			e := r.applyResource(ctx, name)
			r.events <- event.Event{Type: event.ApplyType, ApplyEvent: e}
			if e.Operation == event.ApplyFailed {
				r.failed[name] = true
				complete = false
				continue
			}
			applied = append(applied, e.Identifier)
		}
	}

	objs := applied
	if complete {
		objs = append(objs, r.prune(ctx, prev.Objects.Diff(applied))...)
	} else {
		// Nothing is pruned when the stack was only partly applied: the
		// missing objects may still be declared.
		klog.V(3).Infof("skipping prune: stack was not fully applied")
		objs = prev.Objects.Union(applied)
	}

	if r.opts.DryRun {
		return
	}
	storeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(context.Background(), inventoryStoreTimeout)
		defer cancel()
	}
	if err := r.applier.Inventory.Store(storeCtx, &inventory.Inventory{ID: r.invID, Objects: objs}); err != nil {
		r.sendError(err)
	}
}

// applyResource resolves, stamps and writes one declared object.
func (r *applyRun) applyResource(ctx context.Context, name string) event.ApplyEvent {
	it := r.plan.items[name]
	ae := event.ApplyEvent{Resource: name}
	fail := func(err error) event.ApplyEvent {
		klog.V(3).Infof("apply %s failed: %v", name, err)
		ae.Operation = event.ApplyFailed
		ae.Error = err
		return ae
	}

	for _, dep := range r.plan.graph.Dependencies(name) {
		if r.failed[dep] {
			return fail(DependencyFailedError{Resource: name, Dependency: dep})
		}
	}

	obj := it.object.DeepCopy()
	subs := it.subs
	for len(subs) > 0 && subs[0].TargetPath == namespacePath {
		if err := r.substitute(ctx, name, obj, subs[0]); err != nil {
			return fail(err)
		}
		subs = subs[1:]
	}

	gvk := obj.GroupVersionKind()
	ri, namespaced, err := r.resourceFor(gvk, obj.GetNamespace())
	if namespaced && obj.GetNamespace() == "" {
		obj.SetNamespace(r.defaultNamespace())
		ri, _, err = r.resourceFor(gvk, obj.GetNamespace())
	}
	if err != nil {
		if !(r.opts.DryRun && meta.IsNoMatchError(err) && r.servedByStack(obj)) {
			return fail(err)
		}
		// The CRD is declared in this stack but not applied, because this
		// is a dry run.
		ri = nil
	}
	if r.opts.DryRun && isToken(obj.GetNamespace()) {
		ri = nil
	}

	for _, sub := range subs {
		if err := r.substitute(ctx, name, obj, sub); err != nil {
			return fail(err)
		}
	}

	object.SetAnnotation(obj, object.OwningInventoryAnnotation, r.invID)
	if it.resource.Options().Protect {
		object.SetAnnotation(obj, object.OnRemoveAnnotation, object.OnRemoveKeep)
	}
	id, err := object.UnstructuredToObjMeta(obj)
	if err != nil {
		return fail(err)
	}
	ae.Identifier = id
	if other, found := r.owners[id]; found {
		return fail(DuplicateObjectError{Resource: name, Other: other, Identifier: id})
	}
	r.owners[id] = name
	klog.V(4).Infof("applying %s:\n%s", id, object.YamlStringer{O: obj})

	if ri == nil {
		return r.dryRun(name, obj, ae)
	}
	live, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
	var result *unstructured.Unstructured
	switch {
	case apierrors.IsNotFound(err):
		if r.opts.DryRun {
			return r.dryRun(name, obj, ae)
		}
		result, err = ri.Create(ctx, obj, metav1.CreateOptions{FieldManager: r.stack.Config().FieldManager})
		if err != nil {
			return fail(err)
		}
		ae.Operation = event.Created
	case err != nil:
		return fail(err)
	default:
		owner, _ := object.HasAnnotation(live, object.OwningInventoryAnnotation)
		if err := r.opts.InventoryPolicy.CanApply(r.invID, owner); err != nil {
			return fail(err)
		}
		if r.opts.DryRun {
			return r.dryRun(name, obj, ae)
		}
		obj.SetResourceVersion(live.GetResourceVersion())
		result, err = ri.Update(ctx, obj, metav1.UpdateOptions{FieldManager: r.stack.Config().FieldManager})
		if err != nil {
			return fail(err)
		}
		ae.Operation = event.Configured
	}

	r.applied[name] = result
	ae.Object = result
	if object.IsCRD(result) {
		r.resetMapper()
	}
	return ae
}

func (r *applyRun) dryRun(name string, obj *unstructured.Unstructured, ae event.ApplyEvent) event.ApplyEvent {
	r.applied[name] = obj
	ae.Operation = event.DryRun
	ae.Object = obj
	return ae
}

// substitute resolves one deferred value into obj. During a dry run a
// value that cannot be resolved yet, such as a field only the server
// fills in, stays a token.
func (r *applyRun) substitute(ctx context.Context, name string, obj *unstructured.Unstructured, sub deferred.Substitution) error {
	value, err := r.resolve(ctx, name, obj, sub)
	if err != nil {
		var unresolved *UnresolvedValueError
		if r.opts.DryRun && errors.As(err, &unresolved) {
			klog.V(3).Infof("dry run: leaving %s unresolved: %v", sub.TargetPath, err)
			return nil
		}
		return err
	}
	return sub.Apply(obj.Object, value)
}

func isToken(s string) bool {
	_, found, _ := deferred.ParseToken(s)
	return found
}

func (r *applyRun) servedByStack(obj *unstructured.Unstructured) bool {
	_, found := r.plan.crdKinds[obj.GroupVersionKind().GroupKind()]
	return found
}

func (r *applyRun) defaultNamespace() string {
	if r.applier.DefaultNamespace != "" {
		return r.applier.DefaultNamespace
	}
	return metav1.NamespaceDefault
}

// prune deletes the objects of the previous apply that are no longer
// declared, and returns those that must stay in the inventory because
// they could not be deleted.
func (r *applyRun) prune(ctx context.Context, candidates object.ObjMetadataSet) object.ObjMetadataSet {
	var kept object.ObjMetadataSet
	for _, id := range ordering.ForDeletion(candidates) {
		pe := event.PruneEvent{Identifier: id}
		outcome, reason, err := r.deleteObject(ctx, r.invID, id, r.opts.DryRun)
		switch outcome {
		case deleted:
			pe.Operation = event.Pruned
		case deleteSkipped:
			pe.Operation = event.PruneSkipped
			pe.Reason = reason
		case deleteFailed:
			pe.Operation = event.PruneFailed
			pe.Error = err
			kept = append(kept, id)
		}
		r.events <- event.Event{Type: event.PruneType, PruneEvent: pe}
	}
	return kept
}

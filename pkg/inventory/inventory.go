// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package inventory records which cluster objects a stack applied, so that
// objects dropped from the stack can be pruned and a destroy knows what to
// delete.
package inventory

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"

	"sigs.k8s.io/crdkit/pkg/object"
)

const (
	// InventoryLabel is the label stored on the inventory ConfigMap. The
	// value is a unique identifier (a UUID) of the stack.
	InventoryLabel = "crdkit.sigs.k8s.io/inventory-id"
	// InventoryHash is the annotation holding the hash of the set of
	// objects recorded in the inventory.
	InventoryHash = "crdkit.sigs.k8s.io/inventory-hash"
)

// Inventory is the recorded state of one stack.
type Inventory struct {
	// ID is stamped on every applied object as the owning inventory.
	ID      string
	Objects object.ObjMetadataSet
}

// Client loads and stores the inventory of one stack.
type Client interface {
	// Load returns nil, without error, when no inventory exists yet.
	Load(ctx context.Context) (*Inventory, error)
	Store(ctx context.Context, inv *Inventory) error
	// Delete succeeds when the inventory does not exist.
	Delete(ctx context.Context) error
}

// Hash returns the hex fnv32a hash of the sorted object strings, each
// terminated by a newline. It is used to quickly tell whether two
// inventories hold the same objects.
func Hash(objs object.ObjMetadataSet) (string, error) {
	h := fnv.New32a()
	for _, s := range objs.Strings() {
		if _, err := h.Write([]byte(s + "\n")); err != nil {
			return "", err
		}
	}
	return strconv.FormatUint(uint64(h.Sum32()), 16), nil
}

// Policy decides what happens when an applied object already exists and
// belongs to another inventory, or to none.
type Policy int

const (
	// PolicyMustMatch only updates objects owned by this inventory.
	PolicyMustMatch Policy = iota
	// PolicyAdoptIfNoInventory also takes over objects that have no
	// owning inventory.
	PolicyAdoptIfNoInventory
	// PolicyAdoptAll takes over any object.
	PolicyAdoptAll
)

func (p Policy) String() string {
	switch p {
	case PolicyMustMatch:
		return "MustMatch"
	case PolicyAdoptIfNoInventory:
		return "AdoptIfNoInventory"
	case PolicyAdoptAll:
		return "AdoptAll"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// CanApply returns nil if an object whose owning inventory annotation is
// owner (empty when absent) may be changed by the inventory id. A live
// object that does not exist yet has no owner to check, so callers only
// call this for existing objects.
func (p Policy) CanApply(id, owner string) error {
	switch {
	case owner == id:
		return nil
	case owner == "" && p != PolicyMustMatch:
		return nil
	case p == PolicyAdoptAll:
		return nil
	}
	return &PolicyPreventedActuationError{Policy: p, Owner: owner}
}

// CanPrune returns nil if an object may be deleted by the inventory id.
// Only owned objects are pruned, whatever the policy.
func CanPrune(id, owner string) error {
	if owner != id {
		return &PolicyPreventedActuationError{Policy: PolicyMustMatch, Owner: owner}
	}
	return nil
}

// PolicyPreventedActuationError is returned for objects owned by another
// inventory.
type PolicyPreventedActuationError struct {
	Policy Policy
	Owner  string
}

func (e *PolicyPreventedActuationError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("inventory policy %s prevented actuation: object has no owning inventory", e.Policy)
	}
	return fmt.Sprintf("inventory policy %s prevented actuation: object is owned by inventory %q", e.Policy, e.Owner)
}

// NoInventoryError is returned when an operation needs a stored inventory
// and there is none.
type NoInventoryError struct {
	Name      string
	Namespace string
}

func (e NoInventoryError) Error() string {
	return fmt.Sprintf("no inventory found for stack %q in namespace %q", e.Name, e.Namespace)
}

// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/crdkit/pkg/object"
)

// Type determines the type of events that are available.
type Type int

const (
	InitType Type = iota
	ErrorType
	ApplyType
	PruneType
	DeleteType
)

func (t Type) String() string {
	switch t {
	case InitType:
		return "Init"
	case ErrorType:
		return "Error"
	case ApplyType:
		return "Apply"
	case PruneType:
		return "Prune"
	case DeleteType:
		return "Delete"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Event is the type of the objects that will be returned through the
// channel returned from a call to Run. Only the field matching Type is
// filled in.
type Event struct {
	Type Type

	// InitEvent lists the apply waves before anything is sent to the
	// cluster.
	InitEvent InitEvent

	// ErrorEvent ends a run that could not continue.
	ErrorEvent ErrorEvent

	ApplyEvent  ApplyEvent
	PruneEvent  PruneEvent
	DeleteEvent DeleteEvent
}

// InitEvent holds the logical resource names, grouped into waves.
type InitEvent struct {
	Waves [][]string
}

type ErrorEvent struct {
	Err error
}

type ApplyEventOperation int

const (
	Created ApplyEventOperation = iota
	Configured
	DryRun
	ApplyFailed
)

func (o ApplyEventOperation) String() string {
	switch o {
	case Created:
		return "Created"
	case Configured:
		return "Configured"
	case DryRun:
		return "DryRun"
	case ApplyFailed:
		return "Failed"
	}
	return fmt.Sprintf("ApplyEventOperation(%d)", int(o))
}

// ApplyEvent reports the outcome for one declared resource.
type ApplyEvent struct {
	// Resource is the logical name of the declaration.
	Resource   string
	Operation  ApplyEventOperation
	Identifier object.ObjMetadata
	Object     *unstructured.Unstructured
	Error      error
}

type PruneEventOperation int

const (
	Pruned PruneEventOperation = iota
	PruneSkipped
	PruneFailed
)

func (o PruneEventOperation) String() string {
	switch o {
	case Pruned:
		return "Pruned"
	case PruneSkipped:
		return "Skipped"
	case PruneFailed:
		return "Failed"
	}
	return fmt.Sprintf("PruneEventOperation(%d)", int(o))
}

// PruneEvent reports an object of a previous apply that is no longer
// declared.
type PruneEvent struct {
	Operation  PruneEventOperation
	Identifier object.ObjMetadata
	// Reason explains a skip.
	Reason string
	Error  error
}

type DeleteEventOperation int

const (
	Deleted DeleteEventOperation = iota
	DeleteSkipped
	DeleteFailed
)

func (o DeleteEventOperation) String() string {
	switch o {
	case Deleted:
		return "Deleted"
	case DeleteSkipped:
		return "Skipped"
	case DeleteFailed:
		return "Failed"
	}
	return fmt.Sprintf("DeleteEventOperation(%d)", int(o))
}

// DeleteEvent reports one object removed (or kept) by a destroy.
type DeleteEvent struct {
	Operation  DeleteEventOperation
	Identifier object.ObjMetadata
	Reason     string
	Error      error
}

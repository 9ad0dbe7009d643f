// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"sigs.k8s.io/crdkit/pkg/object"
	"sigs.k8s.io/crdkit/pkg/stack/event"
)

// ExpEvent is the comparable part of an event.Event. Live objects and skip
// reasons are left out.
type ExpEvent struct {
	EventType event.Type

	InitEvent   *ExpInitEvent
	ErrorEvent  *ExpErrorEvent
	ApplyEvent  *ExpApplyEvent
	PruneEvent  *ExpPruneEvent
	DeleteEvent *ExpDeleteEvent
}

type ExpInitEvent struct {
	Waves [][]string
}

type ExpErrorEvent struct {
	Err error
}

type ExpApplyEvent struct {
	Resource   string
	Operation  event.ApplyEventOperation
	Identifier object.ObjMetadata
	Error      error
}

type ExpPruneEvent struct {
	Operation  event.PruneEventOperation
	Identifier object.ObjMetadata
	Error      error
}

type ExpDeleteEvent struct {
	Operation  event.DeleteEventOperation
	Identifier object.ObjMetadata
	Error      error
}

// EventsToExpEvents converts a run's events for comparison with Equal or
// AssertEqual. Expected errors can be written with EqualErrorType or
// EqualErrorString.
func EventsToExpEvents(events []event.Event) []ExpEvent {
	result := make([]ExpEvent, 0, len(events))
	for _, e := range events {
		result = append(result, EventToExpEvent(e))
	}
	return result
}

func EventToExpEvent(e event.Event) ExpEvent {
	switch e.Type {
	case event.InitType:
		return ExpEvent{
			EventType: event.InitType,
			InitEvent: &ExpInitEvent{Waves: e.InitEvent.Waves},
		}

	case event.ErrorType:
		return ExpEvent{
			EventType:  event.ErrorType,
			ErrorEvent: &ExpErrorEvent{Err: e.ErrorEvent.Err},
		}

	case event.ApplyType:
		return ExpEvent{
			EventType: event.ApplyType,
			ApplyEvent: &ExpApplyEvent{
				Resource:   e.ApplyEvent.Resource,
				Identifier: e.ApplyEvent.Identifier,
				Operation:  e.ApplyEvent.Operation,
				Error:      e.ApplyEvent.Error,
			},
		}

	case event.PruneType:
		return ExpEvent{
			EventType: event.PruneType,
			PruneEvent: &ExpPruneEvent{
				Identifier: e.PruneEvent.Identifier,
				Operation:  e.PruneEvent.Operation,
				Error:      e.PruneEvent.Error,
			},
		}

	case event.DeleteType:
		return ExpEvent{
			EventType: event.DeleteType,
			DeleteEvent: &ExpDeleteEvent{
				Identifier: e.DeleteEvent.Identifier,
				Operation:  e.DeleteEvent.Operation,
				Error:      e.DeleteEvent.Error,
			},
		}
	}
	return ExpEvent{}
}

// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package json provides a printer that outputs the eventstream in json
// format. Each event is printed as a json object, so the output will
// appear as a stream of json objects, each representing a single event.
//
// Every event will contain the following properties:
//   - timestamp: RFC3339-formatted timestamp describing when the event happened.
//   - type: Describes the type of the event. Type values include:
//   - init - InitEvent
//   - error - ErrorEvent
//   - apply - ApplyEvent
//   - prune - PruneEvent
//   - delete - DeleteEvent
//   - summary - aggregate stats collected by the printer
//
// Init events have the following fields:
// * waves (array of arrays of strings) - the logical resource names, in apply order
// * dryRun (boolean) - whether the run changes the cluster
//
// Error events have the following fields:
// * error (string) - a fatal error message
//
// Operation events (apply, prune and delete) correspond to an operation
// performed on a single object. For these events, the group, kind, name,
// and namespace fields identify the object.
//
// Operation events have the following fields:
//   - group (string, optional) - The object's API group.
//   - kind (string) - The object's kind.
//   - name (string) - The object's name.
//   - namespace (string, optional) - The object's namespace.
//   - operation (string) - The operation performed, such as "Created",
//     "Configured", "Pruned", "Skipped" or "Failed".
//   - resource (string, apply only) - The logical name of the declaration.
//   - reason (string, optional) - Why a prune or delete was skipped.
//   - error (string, optional) - Why the operation failed.
//
// The summary event is printed last. It has the fields applied, pruned and
// deleted, each holding the counts per operation.
package json

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"fmt"

	"sigs.k8s.io/crdkit/pkg/print/stats"
)

// ResultErrorFromStats takes a stats object and returns either a ResultError
// or nil depending on whether any resource failed to apply, prune or delete.
func ResultErrorFromStats(s stats.Stats) error {
	if s.FailedActuationSum() > 0 {
		return &ResultError{
			Stats: s,
		}
	}
	return nil
}

// ResultError is returned from printers when the run completed, but one or
// more resources failed.
type ResultError struct {
	Stats stats.Stats
}

func (a *ResultError) Error() string {
	return fmt.Sprintf("%d resources failed", a.Stats.FailedActuationSum())
}

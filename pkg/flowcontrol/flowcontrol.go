// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package flowcontrol detects whether the API server enforces priority
// and fairness, in which case client-side throttling only slows a stack
// down.
package flowcontrol

import (
	"context"
	"fmt"
	"net/http"

	flowcontrolapi "k8s.io/api/flowcontrol/v1beta2"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/rest"
)

const pingPath = "/livez/ping"

// IsEnabled returns true if the server has the PriorityAndFairness flow
// control filter enabled. The check is a HEAD request to the ping endpoint,
// whose response carries the matched flow schema header when flow control
// is on.
func IsEnabled(ctx context.Context, config *rest.Config) (bool, error) {
	// The round tripper handles TLS, headers and auth.
	roundTripper, err := rest.TransportFor(config)
	if err != nil {
		return false, fmt.Errorf("building round tripper: %w", err)
	}

	defaultTLS := config.CAFile != "" || len(config.CAData) > 0 || config.Insecure
	url, _, err := rest.DefaultServerURL(config.Host, config.APIPath, schema.GroupVersion{}, defaultTLS)
	if err != nil {
		return false, fmt.Errorf("building server URL: %w", err)
	}
	url.Path = pingPath

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url.String(), nil)
	if err != nil {
		return false, fmt.Errorf("building %s request: %w", pingPath, err)
	}
	resp, err := roundTripper.RoundTrip(req)
	if err != nil {
		return false, fmt.Errorf("making %s request: %w", pingPath, err)
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	return resp.Header.Get(flowcontrolapi.ResponseHeaderMatchedFlowSchemaUID) != "", nil
}

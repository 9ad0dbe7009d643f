// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package v1beta1

import (
	"sigs.k8s.io/crdkit/pkg/deferred"
)

// BackendConfigSpec is the spec for a GKE BackendConfig resource, which
// configures the Google Cloud load balancer backend serving a Service.
type BackendConfigSpec struct {
	// +optional
	IAP *IAPConfig `json:"iap,omitempty"`
	// +optional
	CDN *CDNConfig `json:"cdn,omitempty"`
	// +optional
	SecurityPolicy *SecurityPolicyConfig `json:"securityPolicy,omitempty"`
	// TimeoutSec is the backend service timeout, in seconds.
	// +optional
	TimeoutSec *int64 `json:"timeoutSec,omitempty"`
	// +optional
	ConnectionDraining *ConnectionDrainingConfig `json:"connectionDraining,omitempty"`
	// +optional
	SessionAffinity *SessionAffinityConfig `json:"sessionAffinity,omitempty"`
	// +optional
	CustomRequestHeaders *CustomRequestHeadersConfig `json:"customRequestHeaders,omitempty"`
	// +optional
	HealthCheck *HealthCheckConfig `json:"healthCheck,omitempty"`
	// +optional
	Logging *LogConfig `json:"logging,omitempty"`
}

// IAPConfig puts Identity-Aware Proxy in front of the backend.
type IAPConfig struct {
	Enabled bool `json:"enabled"`
	// +optional
	OAuthClientCredentials *OAuthClientCredentials `json:"oauthclientCredentials,omitempty"`
}

// OAuthClientCredentials points at the Secret holding the OAuth client of
// the IAP.
type OAuthClientCredentials struct {
	// SecretName is the name of a Secret in the namespace of the
	// BackendConfig, with client_id and client_secret keys.
	SecretName deferred.String `json:"secretName"`
	// +optional
	ClientID string `json:"clientID,omitempty"`
	// +optional
	ClientSecret string `json:"clientSecret,omitempty"`
}

type CDNConfig struct {
	Enabled bool `json:"enabled"`
	// +optional
	CachePolicy *CacheKeyPolicy `json:"cachePolicy,omitempty"`
}

type CacheKeyPolicy struct {
	IncludeHost          bool     `json:"includeHost,omitempty"`
	IncludeProtocol      bool     `json:"includeProtocol,omitempty"`
	IncludeQueryString   bool     `json:"includeQueryString,omitempty"`
	QueryStringBlacklist []string `json:"queryStringBlacklist,omitempty"`
	QueryStringWhitelist []string `json:"queryStringWhitelist,omitempty"`
}

// SecurityPolicyConfig attaches a Cloud Armor policy by name.
type SecurityPolicyConfig struct {
	Name deferred.String `json:"name"`
}

type ConnectionDrainingConfig struct {
	DrainingTimeoutSec int64 `json:"drainingTimeoutSec,omitempty"`
}

type SessionAffinityConfig struct {
	// +kubebuilder:validation:Enum=CLIENT_IP;GENERATED_COOKIE;NONE
	AffinityType string `json:"affinityType,omitempty"`
	// +optional
	AffinityCookieTTLSec *int64 `json:"affinityCookieTtlSec,omitempty"`
}

type CustomRequestHeadersConfig struct {
	Headers []string `json:"headers,omitempty"`
}

type HealthCheckConfig struct {
	CheckIntervalSec   *int64  `json:"checkIntervalSec,omitempty"`
	TimeoutSec         *int64  `json:"timeoutSec,omitempty"`
	HealthyThreshold   *int64  `json:"healthyThreshold,omitempty"`
	UnhealthyThreshold *int64  `json:"unhealthyThreshold,omitempty"`
	Type               *string `json:"type,omitempty"`
	Port               *int64  `json:"port,omitempty"`
	RequestPath        *string `json:"requestPath,omitempty"`
}

type LogConfig struct {
	Enable bool `json:"enable,omitempty"`
	// +optional
	SampleRate *float64 `json:"sampleRate,omitempty"`
}

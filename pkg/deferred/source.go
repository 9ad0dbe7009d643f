// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package deferred

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"sigs.k8s.io/crdkit/pkg/object/reference"
)

const (
	tokenPrefix = "$(crdkit:"
	tokenSuffix = ")"
)

var tokenPattern = regexp.MustCompile(`\$\(crdkit:([A-Za-z0-9_-]+)\)`)

// Source says where a deferred value is read from. Exactly one of Resource
// and Object is set.
type Source struct {
	// Resource is the logical name of a resource declared in the same stack.
	Resource string `json:"resource,omitempty"`

	// Object references a cluster object that the stack does not declare.
	// A namespace-scoped reference without namespace defaults to the
	// namespace of the object holding the deferred value.
	Object *reference.ObjectReference `json:"object,omitempty"`

	// Path is a JSONPath expression evaluated against the source object.
	// Example: "$.metadata.name"
	Path string `json:"path"`
}

// Validate checks that the source names exactly one origin and a path.
func (s Source) Validate() error {
	if s.Path == "" {
		return errors.New("deferred source has an empty path")
	}
	switch {
	case s.Resource != "" && s.Object != nil:
		return fmt.Errorf("deferred source %s names both a resource and an object", s)
	case s.Resource == "" && s.Object == nil:
		return fmt.Errorf("deferred source %s names neither a resource nor an object", s)
	case s.Object != nil:
		return s.Object.Validate()
	}
	return nil
}

// Equal fulfills the Equal interface from github.com/google/go-cmp.
func (s Source) Equal(o Source) bool {
	if s.Resource != o.Resource || s.Path != o.Path {
		return false
	}
	if s.Object == nil || o.Object == nil {
		return s.Object == nil && o.Object == nil
	}
	return s.Object.Equal(*o.Object)
}

func (s Source) String() string {
	if s.Object != nil {
		return fmt.Sprintf("object %s %s", s.Object, s.Path)
	}
	return fmt.Sprintf("resource %q %s", s.Resource, s.Path)
}

// Token returns the placeholder standing in for the value until it is
// resolved. The token embeds the whole source, so it can be parsed back
// without any side table.
func (s Source) Token() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	jsonBytes, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode deferred source %s: %w", s, err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(jsonBytes) + tokenSuffix, nil
}

// ContainsToken reports whether s holds at least one placeholder token.
func ContainsToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// ParseToken returns the source of a string that is exactly one token.
// It returns false, without error, for any other string.
func ParseToken(s string) (Source, bool, error) {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return Source{}, false, nil
	}
	src, err := decodeToken(m[1])
	if err != nil {
		return Source{}, false, err
	}
	return src, true, nil
}

func decodeToken(encoded string) (Source, error) {
	jsonBytes, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Source{}, fmt.Errorf("malformed deferred value token %q: %w", encoded, err)
	}
	var src Source
	if err := json.Unmarshal(jsonBytes, &src); err != nil {
		return Source{}, fmt.Errorf("malformed deferred value token %q: %w", encoded, err)
	}
	return src, src.Validate()
}

// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package deferred

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"k8s.io/klog/v2"
	"sigs.k8s.io/crdkit/pkg/jsonpath"
)

var plainKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Substitution replaces Token in the field at TargetPath with the value
// read from Source.
type Substitution struct {
	Source Source `json:"source"`

	// TargetPath is a JSONPath reference to a field in the target object.
	// Example: "$.spec.iap.oauthclientCredentials.secretName"
	TargetPath string `json:"targetPath"`

	// Token is the placeholder written in the target field.
	Token string `json:"token"`
}

// Scan walks the object and returns one substitution per distinct token in
// each string field. Map keys are visited in sorted order, so the result is
// stable for the same input.
func Scan(obj map[string]interface{}) ([]Substitution, error) {
	var subs []Substitution
	err := scan("$", obj, &subs)
	return subs, err
}

func scan(path string, value interface{}, subs *[]Substitution) error {
	switch typed := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := scan(childPath(path, k), typed[k], subs); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, item := range typed {
			if err := scan(fmt.Sprintf("%s[%d]", path, i), item, subs); err != nil {
				return err
			}
		}
	case string:
		seen := map[string]bool{}
		for _, m := range tokenPattern.FindAllStringSubmatch(typed, -1) {
			if seen[m[0]] {
				continue
			}
			seen[m[0]] = true
			src, err := decodeToken(m[1])
			if err != nil {
				return fmt.Errorf("field %s: %w", path, err)
			}
			klog.V(5).Infof("deferred value found: target=%s, source=%s", path, src)
			*subs = append(*subs, Substitution{Source: src, TargetPath: path, Token: m[0]})
		}
	}
	return nil
}

func childPath(parent, key string) string {
	if plainKey.MatchString(key) {
		return parent + "." + key
	}
	return parent + "['" + strings.ReplaceAll(key, "'", `\'`) + "']"
}

// Apply writes the resolved value into the target field of obj. When the
// field holds nothing but the token, the field takes the value as is, so a
// deferred bool stays a bool. Otherwise the token is replaced inside the
// string by the formatted value.
func (s Substitution) Apply(obj map[string]interface{}, value interface{}) error {
	values, err := jsonpath.Get(obj, s.TargetPath)
	if err != nil {
		return fmt.Errorf("failed to read target field (%s): %w", s.TargetPath, err)
	}
	if len(values) != 1 {
		return fmt.Errorf("expected 1 match for target field (%s), but found %d", s.TargetPath, len(values))
	}
	current, ok := values[0].(string)
	if !ok {
		return fmt.Errorf("target field (%s) is %T, expected string holding %s", s.TargetPath, values[0], s.Token)
	}

	var newValue interface{}
	if current == s.Token {
		newValue = value
	} else {
		valueString, err := valueToString(value)
		if err != nil {
			return fmt.Errorf("failed to stringify source field value for (%s): %w", s.TargetPath, err)
		}
		newValue = strings.ReplaceAll(current, s.Token, valueString)
	}
	klog.V(5).Infof("substitution: target=%s, source=%s, old=%q, new=%v", s.TargetPath, s.Source, current, newValue)

	found, err := jsonpath.Set(obj, s.TargetPath, newValue)
	if err != nil {
		return fmt.Errorf("failed to set target field (%s): %w", s.TargetPath, err)
	}
	if found != 1 {
		return fmt.Errorf("expected 1 match for target field (%s), but found %d", s.TargetPath, found)
	}
	return nil
}

// valueToString formats scalars plainly and everything else as json.
func valueToString(value interface{}) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case int, int32, int64, float32, float64, bool:
		return fmt.Sprintf("%v", typed), nil
	default:
		jsonBytes, err := json.Marshal(typed)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value to json: %#v", value)
		}
		return string(jsonBytes), nil
	}
}

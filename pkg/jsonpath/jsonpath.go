// Copyright 2021 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package jsonpath reads and writes fields of unstructured objects addressed
// by JSONPath expressions, such as "$.metadata.namespace" or
// `$.spec.rules[?(@.host=="example.com")].port`.
package jsonpath

import (
	"encoding/json"
	"fmt"

	"github.com/spyzhov/ajson"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"k8s.io/klog/v2"
)

// Get evaluates the expression against the object and returns every value
// it matches. Numbers are returned as int64 when they are integral, the
// same way unstructured objects store them. No match is not an error.
func Get(obj map[string]interface{}, expression string) ([]interface{}, error) {
	root, err := toNode(obj)
	if err != nil {
		return nil, err
	}
	nodes, err := root.JSONPath(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate jsonpath expression (%s): %w", expression, err)
	}
	values := make([]interface{}, 0, len(nodes))
	for _, node := range nodes {
		value, err := unpack(node)
		if err != nil {
			return nil, fmt.Errorf("failed to read value at %s: %w", node.Path(), err)
		}
		values = append(values, value)
	}
	klog.V(7).Infof("jsonpath get %q: %d match(es)", expression, len(values))
	return values, nil
}

// Set replaces every field matched by the expression with the value and
// returns the number of fields replaced. Fields that do not exist are not
// created. The object is updated in place.
func Set(obj map[string]interface{}, expression string, value interface{}) (int, error) {
	root, err := toNode(obj)
	if err != nil {
		return 0, err
	}
	nodes, err := root.JSONPath(expression)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate jsonpath expression (%s): %w", expression, err)
	}
	if len(nodes) == 0 {
		return 0, nil
	}
	valueBytes, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal value to json: %w", err)
	}
	for _, node := range nodes {
		valueNode, err := ajson.Unmarshal(valueBytes)
		if err != nil {
			return 0, fmt.Errorf("failed to parse value: %w", err)
		}
		if err := setNode(node, valueNode); err != nil {
			return 0, fmt.Errorf("failed to set value at %s: %w", node.Path(), err)
		}
	}
	outBytes, err := ajson.Marshal(root)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal object to json: %w", err)
	}
	result := map[string]interface{}{}
	if err := utiljson.Unmarshal(outBytes, &result); err != nil {
		return 0, fmt.Errorf("failed to unmarshal object from json: %w", err)
	}
	for k := range obj {
		delete(obj, k)
	}
	for k, v := range result {
		obj[k] = v
	}
	klog.V(7).Infof("jsonpath set %q: %d match(es)", expression, len(nodes))
	return len(nodes), nil
}

// setNode overwrites node with a copy of value using the typed setters.
func setNode(node, value *ajson.Node) error {
	switch value.Type() {
	case ajson.Null:
		return node.SetNull()
	case ajson.Numeric:
		return node.SetNumeric(value.MustNumeric())
	case ajson.String:
		return node.SetString(value.MustString())
	case ajson.Bool:
		return node.SetBool(value.MustBool())
	case ajson.Array:
		items := value.MustArray()
		children := make([]*ajson.Node, 0, len(items))
		for _, item := range items {
			children = append(children, item.Clone())
		}
		return node.SetArray(children)
	case ajson.Object:
		fields := value.MustObject()
		children := make(map[string]*ajson.Node, len(fields))
		for key, field := range fields {
			children[key] = field.Clone()
		}
		return node.SetObject(children)
	default:
		return fmt.Errorf("unsupported json node type %v", value.Type())
	}
}

func toNode(obj map[string]interface{}) (*ajson.Node, error) {
	jsonBytes, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal object to json: %w", err)
	}
	root, err := ajson.Unmarshal(jsonBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object json: %w", err)
	}
	return root, nil
}

// unpack round-trips through the apimachinery decoder so integers come back
// as int64 instead of float64.
func unpack(node *ajson.Node) (interface{}, error) {
	nodeBytes, err := ajson.Marshal(node)
	if err != nil {
		return nil, err
	}
	wrapped := []byte(`{"v":` + string(nodeBytes) + `}`)
	var holder map[string]interface{}
	if err := utiljson.Unmarshal(wrapped, &holder); err != nil {
		return nil, err
	}
	return holder["v"], nil
}

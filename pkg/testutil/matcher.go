// Copyright 2022 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// cmpOptions compare errors with errors.Is, so expected errors may be
// written with EqualErrorType or EqualErrorString.
var cmpOptions = []cmp.Option{
	cmpopts.EquateErrors(),
}

// Equal is a Gomega matcher backed by go-cmp. Failures carry a diff.
//
//	Expect(testutil.EventsToExpEvents(events)).To(testutil.Equal(expected))
func Equal(expected interface{}) types.GomegaMatcher {
	return &diffMatcher{expected: expected}
}

type diffMatcher struct {
	expected interface{}
	diff     string
}

func (m *diffMatcher) Match(actual interface{}) (bool, error) {
	m.diff = cmp.Diff(m.expected, actual, cmpOptions...)
	return m.diff == "", nil
}

func (m *diffMatcher) FailureMessage(actual interface{}) string {
	return format.Message(actual, "to deeply equal", m.expected) + "\nDiff (-expected +actual):\n" + indentLines(m.diff)
}

func (m *diffMatcher) NegatedFailureMessage(actual interface{}) string {
	return format.Message(actual, "not to deeply equal", m.expected)
}

func indentLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = format.Indent + lines[i]
	}
	return strings.Join(lines, "\n")
}

// AssertEqual is Equal for plain tests.
func AssertEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if diff := cmp.Diff(expected, actual, cmpOptions...); diff != "" {
		t.Errorf("unexpected value (-expected +actual):\n%s", diff)
	}
}

// matchingError stands in for an expected error. It is "equal" to every
// error it matches.
type matchingError struct {
	description string
	matches     func(error) bool
}

func (e matchingError) Error() string {
	return e.description
}

func (e matchingError) Is(err error) bool {
	return err != nil && e.matches(err)
}

// EqualErrorType matches any error of the same dynamic type as err.
func EqualErrorType(err error) error {
	want := reflect.TypeOf(err)
	return matchingError{
		description: fmt.Sprintf("any %s", want),
		matches: func(got error) bool {
			return reflect.TypeOf(got) == want
		},
	}
}

// EqualErrorString matches any error whose message is msg.
func EqualErrorString(msg string) error {
	return matchingError{
		description: msg,
		matches: func(got error) bool {
			return got.Error() == msg
		},
	}
}

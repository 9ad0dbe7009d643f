// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/template"

	cmdutil "k8s.io/kubectl/pkg/cmd/util"
	"sigs.k8s.io/crdkit/pkg/config"
	"sigs.k8s.io/crdkit/pkg/graph"
	"sigs.k8s.io/crdkit/pkg/inventory"
)

const (
	DefaultErrorExitCode = 1
	TimeoutErrorExitCode = 3
)

var errorMsgForType map[reflect.Type]string

//nolint:gochecknoinits
func init() {
	errorMsgForType = make(map[reflect.Type]string)
	errorMsgForType[reflect.TypeOf(inventory.NoInventoryError{})] = `
Stack {{printf "%q" .err.Name}} has no inventory in namespace {{printf "%q" .err.Namespace}}.

Nothing was applied by this stack yet, or the inventory was deleted.
Run "{{.cmdNameBase}} up" to apply the stack.
`

	errorMsgForType[reflect.TypeOf(config.ValidationError{})] = `
Invalid stack config:
{{- range .err.Violations}}
  {{.}}
{{- end}}
`

	errorMsgForType[reflect.TypeOf(graph.CyclicDependencyError{})] = `
The stack cannot be ordered, its resources depend on each other:
  {{.err}}
`
}

// CheckErr looks up the appropriate error message and exit status for known
// errors. It will print the information to the provided io.Writer. If we
// don't know the error, it delegates to the error handling in cmdutil.
func CheckErr(w io.Writer, err error, cmdNameBase string) {
	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(w, "Timeout: %v\n", err)
		os.Exit(TimeoutErrorExitCode)
	}

	errText, found := textForError(err, cmdNameBase)
	if found {
		if len(errText) > 0 {
			if !strings.HasSuffix(errText, "\n") {
				errText += "\n"
			}
			fmt.Fprint(w, errText)
		}
		os.Exit(DefaultErrorExitCode)
	}

	cmdutil.CheckErr(err)
}

// textForError looks up the error message based on the type of the error,
// or of the first error in its chain with a known type.
func textForError(baseErr error, cmdNameBase string) (string, bool) {
	knownErr, tmplText, found := findKnownErr(baseErr)
	if !found {
		return "", false
	}

	tmpl, err := template.New("errMsg").Parse(tmplText)
	if err != nil {
		// Just return false here instead of the error. It will just
		// mean a less informative error message and we rather show the
		// original error.
		return "", false
	}
	var b bytes.Buffer
	err = tmpl.Execute(&b, map[string]interface{}{
		"cmdNameBase": cmdNameBase,
		"err":         knownErr,
	})
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(b.String()), true
}

func findKnownErr(err error) (error, string, bool) {
	for ; err != nil; err = errors.Unwrap(err) {
		errType, found := findErrType(err)
		if !found {
			continue
		}
		if tmplText, found := errorMsgForType[errType]; found {
			return err, tmplText, true
		}
	}
	return nil, "", false
}

// findErrType finds the type of the error. It returns the real type in the
// event the error is actually a pointer to a type.
func findErrType(err error) (reflect.Type, bool) {
	switch reflect.ValueOf(err).Kind() {
	case reflect.Ptr:
		// If the value of the interface is a pointer, we use the type
		// of the real value.
		return reflect.ValueOf(err).Elem().Type(), true
	case reflect.Struct:
		return reflect.TypeOf(err), true
	default:
		return nil, false
	}
}

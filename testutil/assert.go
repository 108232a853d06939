// Package testutil carries the assertion helpers and scenario builders
// shared across this repository's package-level tests, the way the
// teacher's testutil package carries its hand-rolled assert/require
// functions: no testify, just reflect.DeepEqual and t.Helper().
package testutil

import (
	"fmt"
	"reflect"
	"testing"
)

// AssertEqual fails the test if expected and actual are not
// reflect.DeepEqual.
func AssertEqual(t testing.TB, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("not equal:\nexpected: %v\nactual  : %v%s", expected, actual, formatMsg(msgAndArgs...))
	}
}

// AssertTrue fails the test if condition is false.
func AssertTrue(t testing.TB, condition bool, msgAndArgs ...any) {
	t.Helper()
	if !condition {
		t.Errorf("expected condition to be true%s", formatMsg(msgAndArgs...))
	}
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v%s", err, formatMsg(msgAndArgs...))
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Errorf("expected an error but got nil%s", formatMsg(msgAndArgs...))
	}
}

// RequireNoError fails and stops the test immediately if err is non-nil.
func RequireNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("required no error but got: %v%s", err, formatMsg(msgAndArgs...))
	}
}

func formatMsg(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if len(msgAndArgs) == 1 {
		return fmt.Sprintf("\nmessage: %v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf("\nmessage: %s", fmt.Sprintf(format, msgAndArgs[1:]...))
	}
	return fmt.Sprintf("\nmessage: %v", msgAndArgs)
}

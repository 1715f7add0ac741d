// Package testutils unwraps the (value, error) returns that pervade this
// module's test fixtures, such as DummyTransport.Consume.
package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NoErr unwraps a (value, error) return, failing the test on error.
func NoErr[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

// Err asserts that a (value, error) return carries an error.
func Err[T any](t *testing.T) func(T, error) error {
	return func(_ T, err error) error {
		t.Helper()
		require.Error(t, err)
		return err
	}
}

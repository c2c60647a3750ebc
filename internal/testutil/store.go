// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sverrirab/generic-rest/internal/store"
)

// StartStore opens a store and runs its writer until the test ends.
//
// Cleanup cancels the writer, waits for it to return, then closes the store.
func StartStore(t testing.TB, opts store.Options) *store.Store {
	t.Helper()

	s, err := store.Open(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = s.Close()
	})
	return s
}

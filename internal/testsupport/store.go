package testsupport

import (
	"testing"

	"tract/internal/history"
)

// MustOpenHistory opens the history ledger for a working directory and
// registers cleanup.
func MustOpenHistory(t testing.TB, root string) *history.Store {
	t.Helper()
	store, err := history.Open(root)
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close history store: %v", err)
		}
	})
	return store
}

package testsupport

import (
	"testing"

	"curator/internal/config"
	"curator/internal/queue"
)

// MustOpenStore opens the curator database for the supplied config and closes
// it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

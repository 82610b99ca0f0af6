package testutil

import (
	"strconv"
	"testing"

	"cfgsync-go/internal/cache"
)

// NewTestCache creates an in-memory sqlite cache with migrations applied.
// The cache is closed automatically when the test ends.
func NewTestCache(t *testing.T) *cache.SQLiteCache {
	t.Helper()

	c, err := cache.NewSQLiteCache(":memory:")
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
	})
	return c
}

// SequenceIDGenerator returns "id-1", "id-2", ... in order. Not safe for
// concurrent use.
type SequenceIDGenerator struct {
	n int
}

func (g *SequenceIDGenerator) New() string {
	g.n++
	return "id-" + strconv.Itoa(g.n)
}

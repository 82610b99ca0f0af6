package cache_test

import (
	"testing"

	"cfgsync-go/internal/cache"
	"cfgsync-go/internal/cfgsync"
)

func TestMemoryCache_RecordIsolation(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	doc := cfgsync.DefaultDocument()
	doc.App.AccountCode = "AAA"
	if err := c.StoreRecord(doc); err != nil {
		t.Fatalf("StoreRecord() error = %v", err)
	}

	// Mutating the caller's document after the store must not leak in.
	doc.App.AccountCode = "BBB"
	rec, err := c.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.App.AccountCode != "AAA" {
		t.Errorf("AccountCode = %q, want the stored value", rec.App.AccountCode)
	}

	// Mutating a returned record must not leak back either.
	rec.EditedSections[cfgsync.SectionApp] = true
	again, _ := c.Record()
	if again.EditedSections[cfgsync.SectionApp] {
		t.Error("returned record shares state with the cache")
	}
}

func TestMemoryCache_Reset(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	if err := c.StoreRecord(cfgsync.DefaultDocument()); err != nil {
		t.Fatalf("StoreRecord() error = %v", err)
	}
	if err := c.MarkEdited(cfgsync.SectionApp); err != nil {
		t.Fatalf("MarkEdited() error = %v", err)
	}
	if err := c.SetSealedGitHubToken("sealed"); err != nil {
		t.Fatalf("SetSealedGitHubToken() error = %v", err)
	}

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	has, _ := c.HasRecord()
	if has {
		t.Error("record survived the reset")
	}
	edited, _ := c.EditedSections()
	if len(edited) != 0 {
		t.Errorf("edited flags survived the reset: %v", edited)
	}
	tok, _ := c.SealedGitHubToken()
	if tok != "" {
		t.Error("sealed token survived the reset")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
)

func TestDefaultTaxonomyHasAllCategories(t *testing.T) {
	tax := DefaultTaxonomy()

	if len(tax.BillingKeywords) == 0 {
		t.Error("expected non-empty BillingKeywords")
	}
	if len(tax.TechnicalKeywords) == 0 {
		t.Error("expected non-empty TechnicalKeywords")
	}
	if len(tax.LegalKeywords) == 0 {
		t.Error("expected non-empty LegalKeywords")
	}
	if len(tax.UrgencyFlags) == 0 {
		t.Error("expected non-empty UrgencyFlags")
	}
}

func TestTaxonomyStoreGetReflectsSet(t *testing.T) {
	store := NewTaxonomyStore(DefaultTaxonomy())
	initial := store.Get()
	if len(initial.BillingKeywords) == 0 {
		t.Fatal("expected initial taxonomy to be populated")
	}

	store.set(Taxonomy{BillingKeywords: []string{"custom"}})
	if got := store.Get(); len(got.BillingKeywords) != 1 || got.BillingKeywords[0] != "custom" {
		t.Errorf("Get() after set() = %+v, want custom taxonomy", got)
	}
}

func TestWatchTaxonomyFileEmptyPathIsNoop(t *testing.T) {
	store := NewTaxonomyStore(DefaultTaxonomy())
	stop, err := WatchTaxonomyFile("", store, logr.Discard())
	if err != nil {
		t.Fatalf("WatchTaxonomyFile(\"\") error = %v", err)
	}
	stop() // must not panic
}

func TestWatchTaxonomyFileLoadsInitialContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	content := "billing_keywords:\n  - invoice\n  - refund\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test taxonomy file: %v", err)
	}

	store := NewTaxonomyStore(Taxonomy{})
	stop, err := WatchTaxonomyFile(path, store, logr.Discard())
	if err != nil {
		t.Fatalf("WatchTaxonomyFile() error = %v", err)
	}
	defer stop()

	got := store.Get()
	if len(got.BillingKeywords) != 2 || got.BillingKeywords[0] != "invoice" {
		t.Errorf("BillingKeywords = %v, want [invoice refund]", got.BillingKeywords)
	}
}

func TestWatchTaxonomyFileMissingFileReturnsError(t *testing.T) {
	store := NewTaxonomyStore(DefaultTaxonomy())
	_, err := WatchTaxonomyFile("/nonexistent/path/taxonomy.yaml", store, logr.Discard())
	if err == nil {
		t.Fatal("expected an error for a missing taxonomy file")
	}
}

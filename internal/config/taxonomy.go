package config

import (
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	triageerrors "github.com/jordigilh/triagex/pkg/shared/errors"
)

// Taxonomy holds the keyword sets the keyword-based classifier and urgency
// scorer match against. Values are stored as loaded; the classifier and
// scorer lower-case each keyword and the ticket text at match time, so
// matching is case-insensitive.
type Taxonomy struct {
	BillingKeywords   []string `yaml:"billing_keywords"`
	TechnicalKeywords []string `yaml:"technical_keywords"`
	LegalKeywords     []string `yaml:"legal_keywords"`
	UrgencyFlags      []string `yaml:"urgency_flags"`
}

// DefaultTaxonomy matches the keyword lists the triage prototype shipped
// with.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		BillingKeywords: []string{
			"invoice", "payment", "charge", "refund", "billing", "subscription",
			"receipt", "overcharged", "price", "transaction", "credit card", "debit",
		},
		TechnicalKeywords: []string{
			"bug", "error", "crash", "broken", "not working", "login", "500",
			"timeout", "slow", "outage", "down", "failed", "integration", "api",
			"server", "null", "exception",
		},
		LegalKeywords: []string{
			"lawsuit", "legal", "compliance", "gdpr", "terms of service", "privacy",
			"attorney", "court", "contract", "violation", "copyright", "liability", "breach",
		},
		UrgencyFlags: []string{
			"asap", "urgent", "immediately", "critical", "emergency", "broken",
			"down", "not working", "losing money", "production", "outage",
			"right now", "as soon as possible",
		},
	}
}

func loadTaxonomyFile(path string) (Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, triageerrors.FailedToWithDetails("read taxonomy file", "config", path, err)
	}
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Taxonomy{}, triageerrors.ParseError(path, "YAML", err)
	}
	return t, nil
}

// TaxonomyStore holds the active Taxonomy behind an atomic pointer so
// readers never block on a reload and a reload can never hand a reader a
// half-written value.
type TaxonomyStore struct {
	value atomic.Pointer[Taxonomy]
}

// NewTaxonomyStore seeds the store with an initial taxonomy.
func NewTaxonomyStore(initial Taxonomy) *TaxonomyStore {
	s := &TaxonomyStore{}
	s.value.Store(&initial)
	return s
}

// Get returns the currently active taxonomy.
func (s *TaxonomyStore) Get() Taxonomy {
	return *s.value.Load()
}

func (s *TaxonomyStore) set(t Taxonomy) {
	s.value.Store(&t)
}

// WatchTaxonomyFile loads path into the store and, if path is non-empty,
// starts a goroutine that reloads the store whenever the file changes on
// disk. The returned stop function closes the underlying watcher; it is a
// no-op when path is empty (nothing to watch). Load errors on the initial
// read are returned; reload errors are only logged, since a reload should
// never crash an already-running pipeline over a bad edit.
func WatchTaxonomyFile(path string, store *TaxonomyStore, log logr.Logger) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}

	t, err := loadTaxonomyFile(path)
	if err != nil {
		return func() {}, err
	}
	store.set(t)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return func() {}, triageerrors.FailedTo("start taxonomy file watcher", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return func() {}, triageerrors.FailedToWithDetails("watch taxonomy file", "config", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := loadTaxonomyFile(path)
				if err != nil {
					log.Error(err, "taxonomy reload failed, keeping previous taxonomy", "path", path)
					continue
				}
				store.set(reloaded)
				log.Info("taxonomy reloaded", "path", path)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error(werr, "taxonomy watcher error")
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}

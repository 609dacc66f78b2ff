// Package classifier maps ticket text to a support category, with a
// keyword variant and a model variant satisfying the same Classifier
// contract so the circuit breaker in pkg/breaker can swap between them
// without knowing which is live.
package classifier

import (
	"context"
	"strings"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/domain"
)

// Classifier maps free text to one of the four fixed categories. Total
// function: every input, including the empty string, returns a category
// and no error from the category contract itself (the model variant's
// Classify may still return an error on a transport failure — callers
// under the circuit breaker treat that the same as a timeout).
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Category, error)
}

// KeywordClassifier counts case-insensitive substring hits against the
// taxonomy's per-category keyword lists and returns the unique argmax,
// falling back to General on no match or a tie.
type KeywordClassifier struct {
	taxonomy *config.TaxonomyStore
}

// NewKeywordClassifier builds a KeywordClassifier reading from the given
// taxonomy store, so keyword-set reloads take effect without rebuilding
// the classifier.
func NewKeywordClassifier(taxonomy *config.TaxonomyStore) *KeywordClassifier {
	return &KeywordClassifier{taxonomy: taxonomy}
}

// Classify never returns an error; ctx is accepted only to satisfy the
// Classifier interface.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (domain.Category, error) {
	t := c.taxonomy.Get()
	lower := strings.ToLower(text)

	counts := map[domain.Category]int{
		domain.Billing:   countHits(lower, t.BillingKeywords),
		domain.Technical: countHits(lower, t.TechnicalKeywords),
		domain.Legal:     countHits(lower, t.LegalKeywords),
	}

	best := domain.General
	bestCount := 0
	tied := false
	for _, cat := range []domain.Category{domain.Billing, domain.Technical, domain.Legal} {
		n := counts[cat]
		switch {
		case n > bestCount:
			best = cat
			bestCount = n
			tied = false
		case n == bestCount && n > 0:
			tied = true
		}
	}

	if bestCount == 0 || tied {
		return domain.General, nil
	}
	return best, nil
}

func countHits(lowerText string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lowerText, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

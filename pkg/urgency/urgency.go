// Package urgency maps ticket text to an urgency score in [0,1], with a
// keyword variant and a sentiment-based model variant satisfying the
// same Scorer contract.
package urgency

import (
	"context"
	"strings"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/shared/math"
)

// Scorer maps free text to an urgency score in [0,1].
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

const (
	baseUrgency        = 0.1
	perMatchIncrement  = 0.2
	maxUrgency         = 1.0
)

// KeywordScorer starts at a base urgency and adds a fixed increment per
// matched urgency phrase, clamped to 1.0.
type KeywordScorer struct {
	taxonomy *config.TaxonomyStore
}

// NewKeywordScorer builds a KeywordScorer reading from the given taxonomy
// store.
func NewKeywordScorer(taxonomy *config.TaxonomyStore) *KeywordScorer {
	return &KeywordScorer{taxonomy: taxonomy}
}

// Score never returns an error; ctx is accepted only to satisfy the Scorer
// interface.
func (s *KeywordScorer) Score(_ context.Context, text string) (float64, error) {
	lower := strings.ToLower(text)
	score := baseUrgency
	for _, phrase := range s.taxonomy.Get().UrgencyFlags {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			score += perMatchIncrement
		}
	}
	return math.Clamp(score, 0, maxUrgency), nil
}

// Package dedup detects storms of near-duplicate tickets within a sliding
// time window, using cosine similarity over embedded ticket text.
package dedup

import (
	"sync"
	"time"

	"github.com/jordigilh/triagex/pkg/embedding"
	"github.com/jordigilh/triagex/pkg/shared/math"
)

// Verdict is the outcome of checking a new ticket against the window.
type Verdict string

const (
	// Normal means the ticket is not part of a storm.
	Normal Verdict = "normal"
	// Master means this ticket is the one that tips a cluster of
	// near-duplicates into a storm — the caller should raise an incident
	// alert for it.
	Master Verdict = "master"
	// Suppress means a storm is already in progress; the ticket is
	// recorded but should not generate its own alert.
	Suppress Verdict = "suppress"
)

type record struct {
	at        time.Time
	text      string
	embedding []float64
}

// Detector holds a sliding window of recently seen tickets and classifies
// each new one against it. It is safe for concurrent use.
type Detector struct {
	mu         sync.Mutex
	window     []record
	vectorizer embedding.Vectorizer

	similarity float64
	windowSize time.Duration
	threshold  int
}

// New builds a Detector. similarity is the cosine-similarity threshold
// above which two tickets are considered near-duplicates; windowSize
// bounds how far back matches are considered; threshold is the exact
// count of prior matches (within the window) that tips a ticket from
// "normal" to "master", with any count beyond that becoming "suppress".
func New(vectorizer embedding.Vectorizer, similarity float64, windowSize time.Duration, threshold int) *Detector {
	return &Detector{
		vectorizer: vectorizer,
		similarity: similarity,
		windowSize: windowSize,
		threshold:  threshold,
	}
}

// Check records text at time `at` and returns the verdict for it,
// evicting entries older than the window first.
func (d *Detector) Check(at time.Time, text string) Verdict {
	vec := d.vectorizer.Embed(text)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.evict(at)

	matches := 0
	for _, r := range d.window {
		if math.CosineSimilarity(vec, r.embedding) > d.similarity {
			matches++
		}
	}

	d.window = append(d.window, record{at: at, text: text, embedding: vec})

	switch {
	case matches == d.threshold:
		return Master
	case matches > d.threshold:
		return Suppress
	default:
		return Normal
	}
}

// evict drops window entries older than windowSize relative to at. Must
// be called with mu held.
func (d *Detector) evict(at time.Time) {
	cutoff := at.Add(-d.windowSize)
	i := 0
	for ; i < len(d.window); i++ {
		if d.window[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		d.window = d.window[i:]
	}
}

// Size returns the current number of tickets held in the window,
// regardless of similarity — useful for metrics and tests.
func (d *Detector) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.window)
}

// Package embedding turns ticket text into fixed-length vectors for the
// storm/duplicate detector's cosine-similarity comparisons. It has no
// dependency on an external embedding service: the default vectorizer
// hashes character trigrams into a fixed-width bag, which is stable,
// deterministic, and good enough to cluster near-duplicate complaints
// without a network round trip per ticket.
package embedding

import (
	"hash/fnv"
	"math"
	"strings"
)

// Dimensions is the fixed length of every vector this package produces.
const Dimensions = 256

// Vectorizer turns text into a fixed-length embedding.
type Vectorizer interface {
	Embed(text string) []float64
}

// ShingleVectorizer hashes character trigrams into a Dimensions-wide bag
// of counts, then L2-normalizes. Two texts that share many trigrams —
// the common case for templated or copy-pasted support tickets — land
// close together under cosine similarity.
type ShingleVectorizer struct{}

// NewShingleVectorizer builds a ShingleVectorizer. It holds no state and
// a zero value works equally well; the constructor exists for symmetry
// with the model-backed classifier/scorer constructors.
func NewShingleVectorizer() *ShingleVectorizer {
	return &ShingleVectorizer{}
}

// Embed returns a Dimensions-length vector for text. The empty string
// returns an all-zero vector.
func (v *ShingleVectorizer) Embed(text string) []float64 {
	vec := make([]float64, Dimensions)
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return vec
	}

	runes := []rune(lower)
	if len(runes) < 3 {
		bucket := hashBucket(lower)
		vec[bucket]++
		return normalize(vec)
	}

	for i := 0; i+3 <= len(runes); i++ {
		shingle := string(runes[i : i+3])
		vec[hashBucket(shingle)]++
	}
	return normalize(vec)
}

func hashBucket(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(Dimensions))
}

func normalize(vec []float64) []float64 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return vec
	}
	norm := math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Package breaker provides a latency-bounded wrapper around the primary
// (model) classifier and urgency scorer that falls back to the keyword
// variants on timeout, error, or an open circuit.
package breaker

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"

	"github.com/jordigilh/triagex/pkg/classifier"
	"github.com/jordigilh/triagex/pkg/domain"
	"github.com/jordigilh/triagex/pkg/urgency"
)

// Result is the outcome of a Triage call.
type Result struct {
	Category  domain.Category
	Urgency   float64
	ModelUsed domain.ModelUsed
}

// joint is what the primary worker-pool task produces: both the
// classification and urgency score from a single dispatch, so the
// breaker's deadline covers both model calls together rather than
// budgeting 500ms to each separately.
type joint struct {
	category domain.Category
	urgency  float64
}

// Wrapper runs the primary classifier/scorer pair under a hard deadline
// and a bounded worker pool, falling back to the keyword variants on
// timeout, error, or an open circuit. No cross-invocation state beyond the
// pool slots and the gobreaker's own open/half-open tracking is required.
type Wrapper struct {
	primaryClassifier classifier.Classifier
	primaryScorer     urgency.Scorer
	fallbackClassifier classifier.Classifier
	fallbackScorer     urgency.Scorer

	deadline time.Duration
	pool     chan struct{} // bounded worker-pool semaphore, size = ModelPoolSize
	cb       *gobreaker.CircuitBreaker

	log logr.Logger
}

// New builds a Wrapper. poolSize bounds how many primary dispatches may
// run concurrently, to prevent unbounded model contention under load.
func New(
	primaryClassifier classifier.Classifier,
	primaryScorer urgency.Scorer,
	fallbackClassifier classifier.Classifier,
	fallbackScorer urgency.Scorer,
	deadline time.Duration,
	poolSize int,
	log logr.Logger,
) *Wrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "triage-primary-classifier",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Wrapper{
		primaryClassifier:  primaryClassifier,
		primaryScorer:      primaryScorer,
		fallbackClassifier: fallbackClassifier,
		fallbackScorer:     fallbackScorer,
		deadline:           deadline,
		pool:               make(chan struct{}, poolSize),
		cb:                 cb,
		log:                log,
	}
}

// Triage runs the primary classify+score dispatch under the configured
// deadline. On timeout, primary error, or an open circuit, it falls back
// to the keyword path, which has no timeout of its own.
func (w *Wrapper) Triage(ctx context.Context, text string) Result {
	result, ok := w.tryPrimary(ctx, text)
	if ok {
		return result
	}
	return w.fallback(ctx, text)
}

func (w *Wrapper) tryPrimary(ctx context.Context, text string) (Result, bool) {
	select {
	case w.pool <- struct{}{}:
		defer func() { <-w.pool }()
	default:
		// Pool saturated: treat like a timeout rather than queueing
		// behind an unbounded number of waiters, keeping the 500ms SLA
		// meaningful under load.
		w.log.V(1).Info("primary classifier pool saturated, failing over")
		return Result{}, false
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, w.deadline)
	defer cancel()

	type outcome struct {
		j   joint
		err error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		j, err := w.runPrimary(deadlineCtx, text)
		resultCh <- outcome{j, err}
	}()

	select {
	case <-deadlineCtx.Done():
		w.log.V(1).Info("primary classifier deadline exceeded, failing over", "text_len", len(text))
		return Result{}, false
	case out := <-resultCh:
		if out.err != nil {
			w.log.V(1).Info("primary classifier error, failing over", "error", out.err.Error())
			return Result{}, false
		}
		return Result{Category: out.j.category, Urgency: out.j.urgency, ModelUsed: domain.ModelPrimary}, true
	}
}

// runPrimary executes the primary classify+score calls through the
// gobreaker circuit breaker, so repeated failures trip the breaker open
// and stop dispatching to a degraded model entirely rather than paying
// the deadline on every call.
func (w *Wrapper) runPrimary(ctx context.Context, text string) (joint, error) {
	out, err := w.cb.Execute(func() (interface{}, error) {
		category, err := w.primaryClassifier.Classify(ctx, text)
		if err != nil {
			return nil, err
		}
		score, err := w.primaryScorer.Score(ctx, text)
		if err != nil {
			return nil, err
		}
		return joint{category: category, urgency: score}, nil
	})
	if err != nil {
		return joint{}, err
	}
	return out.(joint), nil
}

func (w *Wrapper) fallback(ctx context.Context, text string) Result {
	category, _ := w.fallbackClassifier.Classify(ctx, text)
	score, _ := w.fallbackScorer.Score(ctx, text)
	return Result{Category: category, Urgency: score, ModelUsed: domain.ModelFallback}
}

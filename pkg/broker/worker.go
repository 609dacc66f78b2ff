package broker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jordigilh/triagex/pkg/alerting"
	"github.com/jordigilh/triagex/pkg/dedup"
	"github.com/jordigilh/triagex/pkg/domain"
	"github.com/jordigilh/triagex/pkg/metrics"
	"github.com/jordigilh/triagex/pkg/queue"
	triageerrors "github.com/jordigilh/triagex/pkg/shared/errors"
)

var tracer = otel.Tracer("github.com/jordigilh/triagex/pkg/broker")

// popTimeout bounds each blocking pop, so the drain loop periodically
// checks ctx for cancellation even when the queue is idle.
const popTimeout = 2 * time.Second

// popRetryInterval is the first delay before retrying a pop that failed
// with a transient broker error; later retries grow exponentially.
const popRetryInterval = 2 * time.Second

// Worker drains tickets from a Broker, classifies them against the
// storm/duplicate detector, enqueues them for assignment, and raises
// alerts according to the detector's verdict.
type Worker struct {
	broker   *Broker
	queue    *queue.Queue
	detector *dedup.Detector
	notifier *alerting.Notifier
	metrics  *metrics.Metrics
	log      logr.Logger
}

// NewWorker builds a Worker wiring together the broker, priority queue,
// storm detector, and alert notifier it drains tickets through. m may be
// nil, in which case storm-verdict counts are simply not recorded.
func NewWorker(b *Broker, q *queue.Queue, d *dedup.Detector, n *alerting.Notifier, m *metrics.Metrics, log logr.Logger) *Worker {
	return &Worker{broker: b, queue: q, detector: d, notifier: n, metrics: m, log: log}
}

// Run drains tickets until ctx is canceled. A transient broker error is
// retried with backoff; a malformed or otherwise unprocessable ticket is
// logged and skipped so one bad record never wedges the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ticket, ok, err := w.popWithBackoff(ctx)
		if err != nil {
			if triageerrors.IsRetryable(err) {
				w.log.Info("broker pop abandoned after retries", "error", err.Error())
			} else {
				w.log.Info("skipping malformed broker record", "error", err.Error())
			}
			continue
		}
		if !ok {
			continue
		}

		w.process(ctx, ticket)
	}
}

// popWithBackoff retries a single Pop call against transient broker
// errors (connection resets, unreachable Redis) using exponential
// backoff, giving up once ctx is canceled. A malformed record is not
// retryable — it returns immediately via backoff.Permanent so one bad
// record never wedges the loop behind five growing-delay attempts.
func (w *Worker) popWithBackoff(ctx context.Context) (domain.Ticket, bool, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = popRetryInterval
	result, err := backoff.Retry(ctx, func() (popResult, error) {
		ticket, ok, popErr := w.broker.Pop(ctx, popTimeout)
		if popErr != nil {
			if !triageerrors.IsRetryable(popErr) {
				return popResult{}, backoff.Permanent(popErr)
			}
			return popResult{}, popErr
		}
		return popResult{ticket: ticket, ok: ok}, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(5))
	return result.ticket, result.ok, err
}

type popResult struct {
	ticket domain.Ticket
	ok     bool
}

func (w *Worker) process(ctx context.Context, ticket domain.Ticket) {
	_, span := tracer.Start(ctx, "broker.drain")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket.id", ticket.ID),
		attribute.String("ticket.correlation_id", ticket.CorrelationID),
	)

	ticket.Processed = true

	verdict := w.detector.Check(ticket.Timestamp, ticket.Text)
	span.SetAttributes(attribute.String("storm.verdict", string(verdict)))
	if w.metrics != nil {
		w.metrics.StormVerdicts.WithLabelValues(string(verdict)).Inc()
	}

	w.log.V(1).Info("drained ticket", "ticket_id", ticket.ID, "correlation_id", ticket.CorrelationID, "storm_verdict", string(verdict))

	if err := w.queue.Enqueue(ticket); err != nil {
		w.log.Info("failed to enqueue drained ticket", "ticket_id", ticket.ID, "correlation_id", ticket.CorrelationID, "error", err.Error())
	}

	w.notifier.Notify(ticket, verdict)
}

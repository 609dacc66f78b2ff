// Package ingress exposes the triage pipeline over HTTP: ticket
// submission, queue inspection, and routing, built on chi with request
// validation, CORS, and an OpenTelemetry span around ticket submission.
package ingress

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jordigilh/triagex/pkg/assignment"
	"github.com/jordigilh/triagex/pkg/breaker"
	"github.com/jordigilh/triagex/pkg/broker"
	"github.com/jordigilh/triagex/pkg/domain"
	"github.com/jordigilh/triagex/pkg/metrics"
	"github.com/jordigilh/triagex/pkg/queue"
)

var tracer = otel.Tracer("github.com/jordigilh/triagex/pkg/ingress")

// SubmitRequest is the body of POST /ticket. The ticket id is supplied by
// the caller, not generated server-side.
type SubmitRequest struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// SubmitResponse is the body of a successful POST /ticket.
type SubmitResponse struct {
	Status        string          `json:"status"`
	TicketID      string          `json:"ticket_id"`
	Category      domain.Category `json:"category"`
	IsHighUrgency bool            `json:"is_high_urgency"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	BrokerDepth int    `json:"broker_depth"`
	PQDepth     int    `json:"pq_depth"`
}

// QueueResponse is the body of GET /queue.
type QueueResponse struct {
	PQDepth int             `json:"pq_depth"`
	Tickets []domain.Ticket `json:"tickets"`
}

// RouteResponse is the body of POST /route.
type RouteResponse struct {
	Assignments []assignment.Record `json:"assignments"`
}

// Server wires the HTTP surface to the rest of the pipeline.
type Server struct {
	breaker              *breaker.Wrapper
	broker               *broker.Broker
	queue                *queue.Queue
	agents               []*domain.Agent
	metrics              *metrics.Metrics
	validate             *validator.Validate
	highUrgencyThreshold float64
	peekMax              int
	log                  logr.Logger
}

// New builds a Server and its chi router. peekMax bounds the limit query
// parameter accepted by GET /queue (clamped to [1, peekMax]).
func New(
	b *breaker.Wrapper,
	brk *broker.Broker,
	q *queue.Queue,
	agents []*domain.Agent,
	m *metrics.Metrics,
	highUrgencyThreshold float64,
	peekMax int,
	log logr.Logger,
) *Server {
	return &Server{
		breaker:              b,
		broker:               brk,
		queue:                q,
		agents:               agents,
		metrics:              m,
		validate:             validator.New(),
		highUrgencyThreshold: highUrgencyThreshold,
		peekMax:              peekMax,
		log:                  log,
	}
}

// Router builds the chi mux with middleware and every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/ticket", s.handleSubmit)
	r.Get("/queue", s.handlePeek)
	r.Get("/ticket/next", s.handleNext)
	r.Post("/route", s.handleRoute)
	r.Get("/agents", s.handleAgents)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "triagex"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		BrokerDepth: s.broker.Depth(r.Context()),
		PQDepth:     s.queue.Size(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ingress.submit")
	defer span.End()

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}
	if err := s.validate.Struct(req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}

	result := s.breaker.Triage(ctx, req.Text)
	ticket := domain.NewTicket(req.ID, req.Text, result.Category, result.Urgency, result.ModelUsed)
	ticket.IsHighUrgency = domain.IsHighUrgencyAt(result.Urgency, s.highUrgencyThreshold)

	span.SetAttributes(
		attribute.String("ticket.id", ticket.ID),
		attribute.String("ticket.correlation_id", ticket.CorrelationID),
		attribute.String("ticket.category", string(ticket.Category)),
		attribute.Float64("ticket.urgency", ticket.Urgency),
		attribute.String("ticket.model_used", string(ticket.ModelUsed)),
		attribute.Bool("ticket.high_urgency", ticket.IsHighUrgency),
	)

	if s.metrics != nil {
		s.metrics.TicketsIngested.WithLabelValues(string(ticket.Category)).Inc()
		if result.ModelUsed == domain.ModelFallback {
			s.metrics.BreakerTrips.Inc()
		}
	}

	if err := s.broker.Push(ctx, ticket); err != nil {
		s.log.Info("failed to push ticket to broker", "ticket_id", ticket.ID, "correlation_id", ticket.CorrelationID, "error", err.Error())
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		Status:        "accepted",
		TicketID:      ticket.ID,
		Category:      ticket.Category,
		IsHighUrgency: ticket.IsHighUrgency,
	})
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r, "limit", 10)
	limit = clampInt(limit, 1, s.peekMax)

	tickets := s.queue.Peek(limit)
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.queue.Size()))
	}
	writeJSON(w, http.StatusOK, QueueResponse{
		PQDepth: s.queue.Size(),
		Tickets: tickets,
	})
}

func (s *Server) handleNext(w http.ResponseWriter, _ *http.Request) {
	ticket, ok, err := s.queue.Dequeue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist queue snapshot")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "queue empty")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// handleRoute solves a routing batch against up to limit tickets taken
// from the queue by priority. It does not remove tickets from the
// queue — routing is advisory, not a drain; the queue's contents are
// unchanged by a call here.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := intQueryParam(r, "limit", 10)

	tickets := s.queue.Peek(limit)
	records := assignment.Route(tickets, s.agents)

	correlationIDs := make(map[string]string, len(tickets))
	for _, t := range tickets {
		correlationIDs[t.ID] = t.CorrelationID
	}
	for _, rec := range records {
		s.log.V(1).Info("assigned ticket", "ticket_id", rec.TicketID, "correlation_id", correlationIDs[rec.TicketID], "agent", rec.AgentName)
	}

	if s.metrics != nil {
		s.metrics.AssignmentLatency.Observe(time.Since(start).Seconds())
	}

	writeJSON(w, http.StatusOK, RouteResponse{Assignments: records})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agents)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func intQueryParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

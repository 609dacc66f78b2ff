package ingress_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/breaker"
	"github.com/jordigilh/triagex/pkg/broker"
	"github.com/jordigilh/triagex/pkg/classifier"
	"github.com/jordigilh/triagex/pkg/domain"
	"github.com/jordigilh/triagex/pkg/ingress"
	"github.com/jordigilh/triagex/pkg/metrics"
	"github.com/jordigilh/triagex/pkg/queue"
	"github.com/jordigilh/triagex/pkg/urgency"

	"github.com/go-logr/logr"
)

// testMetrics is built once: metrics.New registers with the default
// Prometheus registry, which rejects a second registration.
var testMetrics = metrics.New()

var _ = Describe("Server", func() {
	var (
		router http.Handler
		brk    *broker.Broker
		q      *queue.Queue
	)

	BeforeEach(func() {
		mr, err := miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		brk = broker.NewWithClient(client, "ticket_queue")

		q = queue.New(filepath.Join(GinkgoT().TempDir(), "queue.json"), logr.Discard())

		taxonomy := config.NewTaxonomyStore(config.DefaultTaxonomy())
		kc := classifier.NewKeywordClassifier(taxonomy)
		ks := urgency.NewKeywordScorer(taxonomy)
		b := breaker.New(kc, ks, kc, ks, 500*time.Millisecond, 4, logr.Discard())

		agents := domain.DefaultAgentRegistry()

		server := ingress.New(b, brk, q, agents, testMetrics, 0.75, 50, logr.Discard())
		router = server.Router()
	})

	Describe("GET /health", func() {
		It("reports ok", func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /ticket", func() {
		It("accepts a valid ticket and pushes it to the broker", func() {
			body, _ := json.Marshal(map[string]string{"id": "T1", "text": "I was overcharged on my invoice"})
			req := httptest.NewRequest(http.MethodPost, "/ticket", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var resp ingress.SubmitResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("accepted"))
			Expect(resp.TicketID).To(Equal("T1"))
			Expect(resp.Category).To(Equal(domain.Billing))
		})

		It("rejects an empty text field", func() {
			body, _ := json.Marshal(map[string]string{"id": "T2", "text": "   "})
			req := httptest.NewRequest(http.MethodPost, "/ticket", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a missing id", func() {
			body, _ := json.Marshal(map[string]string{"text": "some complaint"})
			req := httptest.NewRequest(http.MethodPost, "/ticket", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/ticket", bytes.NewReader([]byte("not json")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /queue and GET /ticket/next", func() {
		It("reflects tickets enqueued directly", func() {
			Expect(q.Enqueue(domain.NewTicket("t1", "urgent server down", domain.Technical, 0.9, domain.ModelFallback))).To(Succeed())

			req := httptest.NewRequest(http.MethodGet, "/queue", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp ingress.QueueResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.PQDepth).To(Equal(1))
			Expect(resp.Tickets).To(HaveLen(1))
			Expect(resp.Tickets[0].ID).To(Equal("t1"))

			nextReq := httptest.NewRequest(http.MethodGet, "/ticket/next", nil)
			nextRec := httptest.NewRecorder()
			router.ServeHTTP(nextRec, nextReq)
			Expect(nextRec.Code).To(Equal(http.StatusOK))

			var got domain.Ticket
			Expect(json.Unmarshal(nextRec.Body.Bytes(), &got)).To(Succeed())
			Expect(got.ID).To(Equal("t1"))

			Expect(q.Size()).To(Equal(0))
		})

		It("returns 404 from /ticket/next when the queue is empty", func() {
			req := httptest.NewRequest(http.MethodGet, "/ticket/next", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /route", func() {
		It("routes queued tickets to agents without removing them from the queue", func() {
			Expect(q.Enqueue(domain.NewTicket("t1", "billing issue", domain.Billing, 0.5, domain.ModelFallback))).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/route?limit=5", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp ingress.RouteResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Assignments).To(HaveLen(1))
			Expect(resp.Assignments[0].TicketID).To(Equal("t1"))

			Expect(q.Size()).To(Equal(1))
		})
	})

	Describe("GET /agents", func() {
		It("returns the agent roster", func() {
			req := httptest.NewRequest(http.MethodGet, "/agents", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var agents []domain.Agent
			Expect(json.Unmarshal(rec.Body.Bytes(), &agents)).To(Succeed())
			Expect(agents).To(HaveLen(4))
		})
	})
})

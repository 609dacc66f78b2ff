// Command triagex-server runs the full single-process triage pipeline:
// it accepts tickets over HTTP, classifies them under the latency-bounded
// breaker, hands them to the broker, drains the broker in the
// background through the storm detector into the priority queue, and
// serves queue inspection and routing over the same HTTP surface.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/alerting"
	"github.com/jordigilh/triagex/pkg/breaker"
	"github.com/jordigilh/triagex/pkg/broker"
	"github.com/jordigilh/triagex/pkg/classifier"
	"github.com/jordigilh/triagex/pkg/dedup"
	"github.com/jordigilh/triagex/pkg/domain"
	"github.com/jordigilh/triagex/pkg/embedding"
	"github.com/jordigilh/triagex/pkg/ingress"
	"github.com/jordigilh/triagex/pkg/metrics"
	"github.com/jordigilh/triagex/pkg/queue"
	"github.com/jordigilh/triagex/pkg/shared/logging"
	"github.com/jordigilh/triagex/pkg/urgency"
)

func main() {
	cfg := config.Load()

	log, err := logging.NewLogger(os.Getenv("TRIAGEX_DEBUG") != "")
	if err != nil {
		panic(err)
	}

	taxonomyStore := config.NewTaxonomyStore(config.DefaultTaxonomy())
	stopWatch, err := config.WatchTaxonomyFile(cfg.TaxonomyPath, taxonomyStore, log)
	if err != nil {
		log.Error(err, "failed to load taxonomy file, falling back to built-in defaults")
	}
	defer stopWatch()

	keywordClassifier := classifier.NewKeywordClassifier(taxonomyStore)
	keywordScorer := urgency.NewKeywordScorer(taxonomyStore)

	var primaryClassifier classifier.Classifier = keywordClassifier
	var primaryScorer urgency.Scorer = keywordScorer
	if cfg.AnthropicAPIKey != "" {
		primaryClassifier = classifier.NewModelClassifier(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		primaryScorer = urgency.NewModelScorer(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		log.Info("no Anthropic API key configured, running keyword-only (no primary path to fail over from)")
	}

	triageBreaker := breaker.New(
		primaryClassifier, primaryScorer,
		keywordClassifier, keywordScorer,
		cfg.ClassifierTimeout, cfg.ModelPoolSize,
		log,
	)

	redisAddr := cfg.BrokerHost + ":" + strconv.Itoa(cfg.BrokerPort)
	brokerClient := broker.New(redisAddr, cfg.QueueKey)
	defer brokerClient.Close()

	if err := queue.EnsureDir(cfg.SnapshotPath); err != nil {
		log.Error(err, "failed to create queue snapshot directory")
	}
	ticketQueue := queue.New(cfg.SnapshotPath, log)

	detector := dedup.New(embedding.NewShingleVectorizer(), cfg.StormSimilarity, cfg.StormWindow, cfg.StormThreshold)
	notifier := alerting.New(cfg.WebhookURL, cfg.WebhookAuth, cfg.WebhookThreshold, log)

	agents := domain.DefaultAgentRegistry()
	m := metrics.New()

	drainWorker := broker.NewWorker(brokerClient, ticketQueue, detector, notifier, m, log)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go drainWorker.Run(workerCtx)

	server := ingress.New(triageBreaker, brokerClient, ticketQueue, agents, m, cfg.HighUrgencyThreshold, cfg.PeekMax, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", server.Router())

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("triagex-server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "http server exited")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "graceful shutdown failed")
	}
}
